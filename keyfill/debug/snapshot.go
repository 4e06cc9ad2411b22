package debug

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/valerio/go-keyfill/keyfill/video"
)

// Framer is implemented by targets that keep the last presented canvas in memory.
type Framer interface {
	Frame() *video.FrameBuffer
}

// TakeSnapshot saves the last presented canvas of target, if it has one, into directory.
func TakeSnapshot(target any, directory string) {
	f, ok := target.(Framer)
	if !ok {
		slog.Warn("Snapshot not supported by this output target")
		return
	}
	frame := f.Frame()
	if frame == nil {
		slog.Warn("No frame available for snapshot")
		return
	}
	if _, err := SaveFramePNGToDir(frame, "keyfill_snapshot", directory); err != nil {
		slog.Error("Failed to save snapshot", "error", err)
	}
}

// SaveFramePNGToDir saves a frame buffer as a timestamped PNG in directory (the working
// directory when empty) and returns the file path.
func SaveFramePNGToDir(frame *video.FrameBuffer, baseName, directory string) (string, error) {
	timestamp := time.Now().Format("20060102_150405.000")
	filename := fmt.Sprintf("%s_%s.png", baseName, timestamp)
	return savePNG(frame.ToImage(frame.Bounds()), filename, directory)
}

// SavePanesPNGToDir writes the Fill and Key panes of a canvas as two separate PNG files.
func SavePanesPNGToDir(canvas *video.FrameBuffer, baseName, directory string) (fillPath, keyPath string, err error) {
	fillPath, err = savePNG(canvas.ToImage(video.FillPane), baseName+"_fill.png", directory)
	if err != nil {
		return "", "", err
	}
	keyPath, err = savePNG(canvas.ToImage(video.KeyPane), baseName+"_key.png", directory)
	if err != nil {
		return "", "", err
	}
	return fillPath, keyPath, nil
}

func savePNG(img image.Image, filename, directory string) (string, error) {
	outputDir := directory
	if outputDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		outputDir = cwd
	}

	filePath := filepath.Join(outputDir, filename)
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}

	b := img.Bounds()
	slog.Info("Snapshot saved", "path", filePath, "size", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()), "format", "PNG")
	return filePath, nil
}
