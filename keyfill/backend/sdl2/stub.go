//go:build !sdl2

package sdl2

import (
	"errors"

	"github.com/valerio/go-keyfill/keyfill/backend"
	"github.com/valerio/go-keyfill/keyfill/render"
)

// Backend stub for when SDL2 is not available
type Backend struct{}

// New creates a stub SDL2 backend that returns an error
func New() *Backend {
	return &Backend{}
}

// Init returns an error indicating SDL2 is not available
func (s *Backend) Init(config backend.BackendConfig) error {
	return errors.New("SDL2 backend not available - build with -tags sdl2 to enable")
}

// Target returns nil, Init never succeeds
func (s *Backend) Target() render.Target {
	return nil
}

// Update returns an error
func (s *Backend) Update() ([]backend.InputEvent, error) {
	return nil, errors.New("SDL2 backend not available")
}

// Cleanup does nothing
func (s *Backend) Cleanup() error {
	return nil
}
