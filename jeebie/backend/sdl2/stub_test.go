//go:build !sdl2

package sdl2

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-jeebie-color/jeebie/backend"
)

func TestStubReportsUnavailable(t *testing.T) {
	b := New()
	assert.ErrorIs(t, b.Init(backend.BackendConfig{}), ErrUnavailable)
	_, err := b.Update(nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, b.Cleanup())
}
