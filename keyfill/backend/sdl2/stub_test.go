//go:build !sdl2

package sdl2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valerio/go-keyfill/keyfill/backend"
)

func TestStubRefusesToInit(t *testing.T) {
	var b backend.Backend = New()
	err := b.Init(backend.BackendConfig{Title: "keyfill"})
	assert.ErrorContains(t, err, "-tags sdl2")
	assert.NoError(t, b.Cleanup())
}
