// Package config collects the keyfill command's settings and checks them before anything is started.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valerio/go-keyfill/keyfill"
	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/handoff"
)

// Output backends.
const (
	BackendSDL2     = "sdl2"
	BackendHeadless = "headless"
	BackendTerminal = "terminal"
)

// Config is the complete runtime configuration of a keyfill process.
type Config struct {
	Backend    string
	Listen     string // empty disables the control server
	WindowX    int
	WindowY    int
	Fullscreen bool
	VSync      bool
	FPS        float64
	Limiter    string
	Policy     string
	MaxLayers  int
	MaxUpload  int64
	Workers    int

	HeadlessFrames   int
	SnapshotInterval int
	SnapshotDir      string

	FFmpegBinary string
	FFmpegInput  string // empty disables the ffmpeg producer
	FFmpegLayer  int
	FFmpegLoop   bool

	TestCardLayer int // negative disables the test card

	InitialMode string
	LogLevel    string
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		Backend:       BackendSDL2,
		Listen:        display.DefaultListenAddr,
		FPS:           display.DefaultFPS,
		Limiter:       "adaptive",
		Policy:        handoff.PingPong.String(),
		MaxLayers:     display.DefaultMaxLayers,
		MaxUpload:     display.DefaultMaxUploadBytes,
		FFmpegBinary:  "ffmpeg",
		TestCardLayer: -1,
		InitialMode:   keyfill.Show.String(),
		LogLevel:      "info",
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Backend {
	case BackendSDL2, BackendHeadless, BackendTerminal:
	default:
		add("unknown backend %q (want %s, %s or %s)", c.Backend, BackendSDL2, BackendHeadless, BackendTerminal)
	}
	if c.FPS <= 0 {
		add("fps must be positive, got %v", c.FPS)
	}
	switch c.Limiter {
	case "", "adaptive", "ticker", "none":
	default:
		add("unknown limiter %q", c.Limiter)
	}
	if _, err := handoff.ParsePolicy(c.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.MaxLayers <= 0 {
		add("max layers must be positive, got %d", c.MaxLayers)
	}
	if c.MaxUpload < display.FrameBytes {
		add("max upload must hold at least one frame (%d bytes), got %d", display.FrameBytes, c.MaxUpload)
	}
	if c.Workers < 0 {
		add("workers must not be negative, got %d", c.Workers)
	}
	if c.HeadlessFrames < 0 {
		add("frames must not be negative, got %d", c.HeadlessFrames)
	}
	if c.SnapshotInterval < 0 {
		add("snapshot interval must not be negative, got %d", c.SnapshotInterval)
	}
	if c.FFmpegInput != "" && !c.layerInRange(c.FFmpegLayer) {
		add("ffmpeg layer %d outside [0, %d)", c.FFmpegLayer, c.MaxLayers)
	}
	if c.TestCardLayer >= 0 && !c.layerInRange(c.TestCardLayer) {
		add("test card layer %d outside [0, %d)", c.TestCardLayer, c.MaxLayers)
	}
	if c.FFmpegInput != "" && c.TestCardLayer >= 0 && c.FFmpegLayer == c.TestCardLayer {
		add("ffmpeg and test card both write layer %d", c.FFmpegLayer)
	}
	if _, err := keyfill.ParseDisplayMode(c.InitialMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c Config) layerInRange(i int) bool {
	return i >= 0 && i < c.MaxLayers
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
