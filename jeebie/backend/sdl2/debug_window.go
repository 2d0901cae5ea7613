//go:build sdl2

package sdl2

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/valerio/go-jeebie-color/jeebie/display"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

const debugWindowTitle = "VRAM Tiles"

// DebugWindow shows the VRAM tile view next to the game window. It is
// created lazily on first toggle and hidden rather than destroyed on close.
type DebugWindow struct {
	view
	visible bool
}

func NewDebugWindow() *DebugWindow {
	return &DebugWindow{}
}

func (dw *DebugWindow) Init() error {
	return dw.open(debugWindowTitle, video.TileViewWidth, video.TileViewHeight,
		display.DebugPixelScale, sdl.WINDOW_HIDDEN|sdl.WINDOW_RESIZABLE)
}

func (dw *DebugWindow) SetVisible(visible bool) {
	if !dw.opened() {
		return
	}
	dw.visible = visible
	if visible {
		dw.window.Show()
		return
	}
	dw.window.Hide()
}

func (dw *DebugWindow) IsVisible() bool     { return dw.visible }
func (dw *DebugWindow) IsInitialized() bool { return dw.opened() }

// Owns reports whether windowID belongs to the debug window.
func (dw *DebugWindow) Owns(windowID uint32) bool {
	id, ok := dw.id()
	return ok && id == windowID
}

func (dw *DebugWindow) Render(tiles *video.FrameBuffer) error {
	if !dw.visible || tiles == nil {
		return nil
	}
	return dw.present(tiles)
}

func (dw *DebugWindow) Cleanup() {
	dw.destroy()
	dw.visible = false
}
