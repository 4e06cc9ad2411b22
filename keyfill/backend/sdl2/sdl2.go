//go:build sdl2

package sdl2

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-keyfill/keyfill/backend"
	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/input/action"
	"github.com/valerio/go-keyfill/keyfill/input/event"
	"github.com/valerio/go-keyfill/keyfill/render"
	"github.com/veandco/go-sdl2/sdl"
)

// Backend implements the Backend interface using SDL2 bindings.
// It opens one borderless window spanning both panes and composites on the GPU into an offscreen
// render-target texture, so destination alpha survives between blend operations.
// Note: building this requires SDL2 development libraries installed.
// Default builds skip this and use a stub, see build tags (sdl2)
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	canvas   *sdl.Texture
	layers   map[int]*layerTexture
	modes    map[blend.Equation]sdl.BlendMode
	config   backend.BackendConfig
	running  bool
	events   []backend.InputEvent
}

type layerTexture struct {
	texture    *sdl.Texture
	width      int
	height     int
	generation uint64
	uploaded   bool
}

// New creates a new SDL2 backend
func New() *Backend {
	return &Backend{
		layers: make(map[int]*layerTexture),
		modes:  make(map[blend.Equation]sdl.BlendMode),
	}
}

// Init opens the output window at the configured position
func (s *Backend) Init(config backend.BackendConfig) error {
	s.config = config

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %w", err)
	}
	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "0")

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_BORDERLESS)
	if config.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	window, err := sdl.CreateWindow(
		config.Title,
		int32(config.X),
		int32(config.Y),
		display.CanvasWidth,
		display.CanvasHeight,
		flags,
	)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("failed to create window: %w", err)
	}
	s.window = window

	rendererFlags := uint32(sdl.RENDERER_ACCELERATED | sdl.RENDERER_TARGETTEXTURE)
	if config.VSync {
		rendererFlags |= sdl.RENDERER_PRESENTVSYNC
	}
	renderer, err := sdl.CreateRenderer(window, -1, rendererFlags)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	s.renderer = renderer

	// ARGB8888 is B,G,R,A in memory on little-endian hosts, the layer byte order.
	canvas, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_TARGET,
		display.CanvasWidth,
		display.CanvasHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create canvas texture: %w", err)
	}
	s.canvas = canvas

	if err := renderer.SetRenderTarget(canvas); err != nil {
		s.Cleanup()
		return fmt.Errorf("failed to bind canvas texture: %w", err)
	}

	s.running = true
	slog.Info("SDL2 backend initialized", "x", config.X, "y", config.Y, "vsync", config.VSync)
	return nil
}

func (s *Backend) Target() render.Target {
	return s
}

// Update processes window events and returns the operator actions they produced
func (s *Backend) Update() ([]backend.InputEvent, error) {
	s.events = s.events[:0]
	if !s.running {
		return nil, nil
	}

	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		s.handleEvent(e)
	}
	return s.events, nil
}

// Cleanup cleans up SDL2 resources
func (s *Backend) Cleanup() error {
	slog.Info("Cleaning up SDL2 backend")

	for _, lt := range s.layers {
		lt.texture.Destroy()
	}
	s.layers = make(map[int]*layerTexture)
	if s.canvas != nil {
		s.canvas.Destroy()
		s.canvas = nil
	}
	if s.renderer != nil {
		s.renderer.Destroy()
		s.renderer = nil
	}
	if s.window != nil {
		s.window.Destroy()
		s.window = nil
	}
	sdl.Quit()
	s.running = false

	return nil
}

func (s *Backend) handleEvent(e sdl.Event) {
	switch e := e.(type) {
	case *sdl.QuitEvent:
		s.running = false
		s.events = append(s.events, backend.InputEvent{Action: action.Quit, Type: event.Press})

	case *sdl.KeyboardEvent:
		// Ignore key repeat events
		if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
			return
		}
		if act, ok := keyMapping[e.Keysym.Sym]; ok {
			s.events = append(s.events, backend.InputEvent{Action: act, Type: event.Press})
		}
	}
}

// keyMapping maps SDL2 keys to actions
var keyMapping = map[sdl.Keycode]action.Action{
	sdl.K_F1:     action.ModeShow,
	sdl.K_F2:     action.ModeClear,
	sdl.K_F3:     action.ModeBlack,
	sdl.K_F12:    action.Snapshot,
	sdl.K_ESCAPE: action.Quit,
}
