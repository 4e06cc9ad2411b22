package headless

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/valerio/go-keyfill/keyfill/backend"
	"github.com/valerio/go-keyfill/keyfill/debug"
	"github.com/valerio/go-keyfill/keyfill/input/action"
	"github.com/valerio/go-keyfill/keyfill/input/event"
	"github.com/valerio/go-keyfill/keyfill/render"
)

// Backend composites in software without any display, for automated runs and batch output.
type Backend struct {
	config         backend.BackendConfig
	target         *render.Software
	frameCount     int
	maxFrames      int
	snapshotConfig SnapshotConfig
}

// SnapshotConfig holds configuration for canvas snapshots
type SnapshotConfig struct {
	Enabled   bool
	Interval  int    // Save snapshot every N frames
	Directory string // Directory to save snapshots
}

// New creates a headless backend that quits after maxFrames cycles, or runs until cancelled
// when maxFrames is zero.
func New(maxFrames int, snapshotConfig SnapshotConfig) *Backend {
	return &Backend{
		maxFrames:      maxFrames,
		snapshotConfig: snapshotConfig,
	}
}

func (h *Backend) Init(config backend.BackendConfig) error {
	h.config = config
	h.target = render.NewSoftware(config.Workers)

	slog.Info("Running headless mode",
		"frames", h.maxFrames,
		"snapshot_interval", h.snapshotConfig.Interval,
		"snapshot_dir", h.snapshotConfig.Directory)
	return nil
}

func (h *Backend) Target() render.Target {
	return h.target
}

// Software exposes the software target, e.g. for snapshots.
func (h *Backend) Software() *render.Software {
	return h.target
}

// Update counts a presented canvas and handles snapshots
func (h *Backend) Update() ([]backend.InputEvent, error) {
	var events []backend.InputEvent

	h.frameCount++

	if h.snapshotConfig.Enabled && h.frameCount%h.snapshotConfig.Interval == 0 {
		h.saveSnapshot()
	}

	if h.frameCount%100 == 0 {
		slog.Debug("Frame progress", "completed", h.frameCount, "total", h.maxFrames)
	}

	if h.maxFrames > 0 && h.frameCount >= h.maxFrames {
		// Save final snapshot if enabled and we haven't just saved one
		if h.snapshotConfig.Enabled && h.frameCount%h.snapshotConfig.Interval != 0 {
			h.saveSnapshot()
		}

		if h.snapshotConfig.Enabled {
			slog.Info("Headless execution completed", "frames", h.frameCount, "png_snapshots_saved_to", h.snapshotConfig.Directory)
		} else {
			slog.Info("Headless execution completed", "frames", h.frameCount)
		}

		// Signal completion via quit event
		events = append(events, backend.InputEvent{Action: action.Quit, Type: event.Press})
	}

	return events, nil
}

func (h *Backend) Cleanup() error {
	return nil
}

// CreateSnapshotConfig creates a snapshot configuration from CLI parameters
func CreateSnapshotConfig(interval int, directory string) (SnapshotConfig, error) {
	config := SnapshotConfig{
		Enabled:  interval > 0,
		Interval: interval,
	}

	if !config.Enabled {
		return config, nil
	}

	if directory == "" {
		tempDir, err := os.MkdirTemp("", "keyfill-snapshots-*")
		if err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = tempDir
	} else {
		if err := os.MkdirAll(directory, 0755); err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = directory
	}

	return config, nil
}

// saveSnapshot writes the Fill and Key panes of the last presented canvas
func (h *Backend) saveSnapshot() {
	base := fmt.Sprintf("keyfill_frame_%d", h.frameCount)
	if _, _, err := debug.SavePanesPNGToDir(h.target.Frame(), base, h.snapshotConfig.Directory); err != nil {
		slog.Error("Failed to save PNG snapshot", "frame", h.frameCount, "error", err)
	}
}
