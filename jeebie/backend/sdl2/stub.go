//go:build !sdl2

package sdl2

import (
	"errors"

	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// ErrUnavailable is returned by Init when the binary was built without SDL2.
var ErrUnavailable = errors.New("SDL2 backend not available - build with -tags sdl2 to enable")

// Backend stub for when SDL2 is not available
type Backend struct{}

// New creates a stub SDL2 backend that returns an error
func New() *Backend {
	return &Backend{}
}

func (s *Backend) Init(config backend.BackendConfig) error {
	return ErrUnavailable
}

func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	return nil, ErrUnavailable
}

func (s *Backend) Cleanup() error {
	return nil
}

var _ backend.Backend = (*Backend)(nil)
