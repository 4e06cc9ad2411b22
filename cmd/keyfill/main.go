package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/valerio/go-keyfill/keyfill"
	"github.com/valerio/go-keyfill/keyfill/backend"
	"github.com/valerio/go-keyfill/keyfill/backend/headless"
	"github.com/valerio/go-keyfill/keyfill/backend/sdl2"
	"github.com/valerio/go-keyfill/keyfill/backend/terminal"
	"github.com/valerio/go-keyfill/keyfill/config"
	"github.com/valerio/go-keyfill/keyfill/control"
	"github.com/valerio/go-keyfill/keyfill/handoff"
	"github.com/valerio/go-keyfill/keyfill/input/action"
	"github.com/valerio/go-keyfill/keyfill/input/event"
	"github.com/valerio/go-keyfill/keyfill/layer"
	"github.com/valerio/go-keyfill/keyfill/source"
	"github.com/valerio/go-keyfill/keyfill/timing"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running keyfill", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	def := config.Default()

	app := cli.NewApp()
	app.Name = "keyfill"
	app.Description = "Composites translucent layers into a Key+Fill output pair"
	app.Usage = "keyfill [options]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "backend", Value: def.Backend, EnvVar: "KEYFILL_BACKEND", Usage: "Output backend: sdl2, headless or terminal"},
		cli.StringFlag{Name: "listen", Value: def.Listen, EnvVar: "KEYFILL_LISTEN", Usage: "Control server address (empty disables it)"},
		cli.IntFlag{Name: "x", EnvVar: "KEYFILL_X", Usage: "Output window x position"},
		cli.IntFlag{Name: "y", EnvVar: "KEYFILL_Y", Usage: "Output window y position"},
		cli.BoolFlag{Name: "fullscreen", EnvVar: "KEYFILL_FULLSCREEN", Usage: "Fullscreen output window (sdl2)"},
		cli.BoolFlag{Name: "vsync", EnvVar: "KEYFILL_VSYNC", Usage: "Wait for vertical sync on present (sdl2)"},
		cli.Float64Flag{Name: "fps", Value: def.FPS, EnvVar: "KEYFILL_FPS", Usage: "Compositing rate"},
		cli.StringFlag{Name: "limiter", Value: def.Limiter, EnvVar: "KEYFILL_LIMITER", Usage: "Frame pacing: adaptive, ticker or none"},
		cli.StringFlag{Name: "policy", Value: def.Policy, EnvVar: "KEYFILL_POLICY", Usage: "Frame handoff policy: pingpong or rendezvous"},
		cli.IntFlag{Name: "max-layers", Value: def.MaxLayers, EnvVar: "KEYFILL_MAX_LAYERS", Usage: "Layer capacity"},
		cli.Int64Flag{Name: "max-upload", Value: def.MaxUpload, EnvVar: "KEYFILL_MAX_UPLOAD", Usage: "Maximum control upload size in bytes"},
		cli.IntFlag{Name: "workers", EnvVar: "KEYFILL_WORKERS", Usage: "Software compositing workers (0 = one per CPU)"},
		cli.IntFlag{Name: "frames", EnvVar: "KEYFILL_FRAMES", Usage: "Stop after N frames in headless mode (0 = run until interrupted)"},
		cli.IntFlag{Name: "snapshot-interval", EnvVar: "KEYFILL_SNAPSHOT_INTERVAL", Usage: "Save canvas snapshots every N frames in headless mode (0 = disabled)"},
		cli.StringFlag{Name: "snapshot-dir", EnvVar: "KEYFILL_SNAPSHOT_DIR", Usage: "Directory to save snapshots (default: temp directory in headless mode)"},
		cli.StringFlag{Name: "ffmpeg", Value: def.FFmpegBinary, EnvVar: "KEYFILL_FFMPEG", Usage: "ffmpeg binary"},
		cli.StringFlag{Name: "ffmpeg-input", EnvVar: "KEYFILL_FFMPEG_INPUT", Usage: "Decode this file or URL into a layer"},
		cli.IntFlag{Name: "ffmpeg-layer", EnvVar: "KEYFILL_FFMPEG_LAYER", Usage: "Layer fed by ffmpeg"},
		cli.BoolFlag{Name: "ffmpeg-loop", EnvVar: "KEYFILL_FFMPEG_LOOP", Usage: "Loop the ffmpeg input at its native rate"},
		cli.IntFlag{Name: "test-card", Value: def.TestCardLayer, EnvVar: "KEYFILL_TEST_CARD", Usage: "Deliver a test card to this layer (-1 = disabled)"},
		cli.StringFlag{Name: "mode", Value: def.InitialMode, EnvVar: "KEYFILL_MODE", Usage: "Initial display mode: show, clear or black"},
		cli.StringFlag{Name: "log-level", Value: def.LogLevel, EnvVar: "KEYFILL_LOG_LEVEL", Usage: "Log level: debug, info, warn or error"},
	}
	app.Action = func(c *cli.Context) error {
		cfg := configFromContext(c)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cfg)
	}
	return app
}

func configFromContext(c *cli.Context) config.Config {
	return config.Config{
		Backend:          c.String("backend"),
		Listen:           c.String("listen"),
		WindowX:          c.Int("x"),
		WindowY:          c.Int("y"),
		Fullscreen:       c.Bool("fullscreen"),
		VSync:            c.Bool("vsync"),
		FPS:              c.Float64("fps"),
		Limiter:          c.String("limiter"),
		Policy:           c.String("policy"),
		MaxLayers:        c.Int("max-layers"),
		MaxUpload:        c.Int64("max-upload"),
		Workers:          c.Int("workers"),
		HeadlessFrames:   c.Int("frames"),
		SnapshotInterval: c.Int("snapshot-interval"),
		SnapshotDir:      c.String("snapshot-dir"),
		FFmpegBinary:     c.String("ffmpeg"),
		FFmpegInput:      c.String("ffmpeg-input"),
		FFmpegLayer:      c.Int("ffmpeg-layer"),
		FFmpegLoop:       c.Bool("ffmpeg-loop"),
		TestCardLayer:    c.Int("test-card"),
		InitialMode:      c.String("mode"),
		LogLevel:         c.String("log-level"),
	}
}

// setupLogging writes text logs to an interactive stderr and JSON otherwise.
func setupLogging(level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newBackend(cfg config.Config) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendHeadless:
		snapshots, err := headless.CreateSnapshotConfig(cfg.SnapshotInterval, cfg.SnapshotDir)
		if err != nil {
			return nil, err
		}
		return headless.New(cfg.HeadlessFrames, snapshots), nil
	case config.BackendTerminal:
		return terminal.New(), nil
	case config.BackendSDL2:
		return sdl2.New(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// statusLine summarizes the mode and the visible layers.
func statusLine(state *keyfill.State) string {
	var visible []string
	for _, st := range state.Layers().Status() {
		if st.Visible {
			visible = append(visible, strconv.Itoa(st.Index))
		}
	}
	return fmt.Sprintf("mode=%s layers=[%s]", state.Mode(), strings.Join(visible, " "))
}

func run(cfg config.Config) error {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	setupLogging(level)

	policy, _ := handoff.ParsePolicy(cfg.Policy)
	mode, _ := keyfill.ParseDisplayMode(cfg.InitialMode)
	store := layer.NewStore(cfg.MaxLayers, policy)
	state := keyfill.NewState(store, mode)

	b, err := newBackend(cfg)
	if err != nil {
		return err
	}
	err = b.Init(backend.BackendConfig{
		Title:      "keyfill",
		X:          cfg.WindowX,
		Y:          cfg.WindowY,
		Fullscreen: cfg.Fullscreen,
		VSync:      cfg.VSync,
		Workers:    cfg.Workers,
		Status:     func() string { return statusLine(state) },
	})
	if err != nil {
		return fmt.Errorf("failed to initialize %s backend: %w", cfg.Backend, err)
	}
	defer b.Cleanup()

	limiter, err := timing.New(cfg.Limiter, cfg.FPS)
	if err != nil {
		return err
	}

	loop := keyfill.NewLoop(state, b, limiter, cfg.SnapshotDir)
	adapter := control.NewAdapter(state, loop.Compositor().Stats)
	registerModeActions(loop, adapter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	producers, stopProducers := context.WithCancel(gctx)

	if cfg.Listen != "" {
		server := control.NewServer(cfg.Listen, adapter, cfg.MaxUpload)
		g.Go(func() error { return server.Run(producers) })
	}
	startProducers(producers, g, cfg, adapter)

	slog.Info("keyfill started", "backend", cfg.Backend, "policy", policy, "fps", cfg.FPS, "listen", cfg.Listen)
	loopErr := loop.Run(gctx)

	stopProducers()
	store.Close()
	if err := g.Wait(); err != nil {
		return err
	}
	return loopErr
}

func registerModeActions(loop *keyfill.Loop, adapter *control.Adapter) {
	modes := map[action.Action]keyfill.DisplayMode{
		action.ModeShow:  keyfill.Show,
		action.ModeClear: keyfill.Clear,
		action.ModeBlack: keyfill.Black,
	}
	for act, mode := range modes {
		loop.Input().On(act, event.Press, func() {
			adapter.SetMode(mode)
			slog.Info("Display mode changed", "mode", mode)
		})
	}
}

// startProducers runs the configured frame producers. Their failures are logged, not fatal.
func startProducers(ctx context.Context, g *errgroup.Group, cfg config.Config, w source.LayerWriter) {
	if cfg.TestCardLayer >= 0 {
		card := &source.TestCard{Layer: cfg.TestCardLayer}
		g.Go(func() error {
			if err := card.Run(ctx, w); err != nil {
				slog.Error("Test card failed", "layer", card.Layer, "error", err)
			}
			return nil
		})
	}

	if cfg.FFmpegInput != "" {
		ff := &source.FFmpeg{
			Binary:   cfg.FFmpegBinary,
			Input:    cfg.FFmpegInput,
			Layer:    cfg.FFmpegLayer,
			FPS:      cfg.FPS,
			Realtime: cfg.FFmpegLoop,
			Loop:     cfg.FFmpegLoop,
		}
		g.Go(func() error {
			n, err := ff.Run(ctx, w)
			if err != nil {
				slog.Error("ffmpeg producer failed", "input", ff.Input, "frames", n, "error", err)
			} else {
				slog.Info("ffmpeg producer finished", "input", ff.Input, "frames", n)
			}
			return nil
		})
	}
}
