//go:build sdl2

package sdl2

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/valerio/go-jeebie-color/jeebie/display"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// view is a window showing one framebuffer through a streaming texture.
type view struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	pixels   []byte
}

// open creates the window at w x h framebuffer pixels, scaled by scale.
func (v *view) open(title string, w, h, scale int32, flags uint32) error {
	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED, w*scale, h*scale, flags)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		return fmt.Errorf("creating renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGBA8888, sdl.TEXTUREACCESS_STREAMING, w, h)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		return fmt.Errorf("creating texture: %w", err)
	}

	v.window, v.renderer, v.texture = window, renderer, texture
	return nil
}

func (v *view) opened() bool {
	return v.window != nil
}

func (v *view) id() (uint32, bool) {
	if v.window == nil {
		return 0, false
	}
	id, err := v.window.GetID()
	return id, err == nil
}

// present uploads frame and draws it stretched over the whole window.
func (v *view) present(frame *video.FrameBuffer) error {
	v.pixels = display.ABGRBytes(frame, v.pixels)
	if len(v.pixels) == 0 {
		return nil
	}
	pitch := frame.Width() * display.RGBABytesPerPixel
	if err := v.texture.Update(nil, unsafe.Pointer(&v.pixels[0]), pitch); err != nil {
		return fmt.Errorf("updating texture: %w", err)
	}

	v.renderer.SetDrawColor(0, 0, 0, 0xFF)
	v.renderer.Clear()
	v.renderer.Copy(v.texture, nil, nil)
	v.renderer.Present()
	return nil
}

func (v *view) destroy() {
	if v.texture != nil {
		v.texture.Destroy()
	}
	if v.renderer != nil {
		v.renderer.Destroy()
	}
	if v.window != nil {
		v.window.Destroy()
	}
	*v = view{}
}
