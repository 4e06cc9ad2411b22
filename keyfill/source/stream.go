// Package source provides frame producers that feed layers: raw BGRA streams, ffmpeg and a test card.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/valerio/go-keyfill/keyfill/display"
)

// LayerWriter accepts whole BGRA frames for a layer. control.Adapter implements it.
type LayerWriter interface {
	WriteLayer(index int, frame []byte, pitch int) error
}

// StreamReader reads tightly packed 1920x1080 BGRA frames from r and writes each one to a layer.
type StreamReader struct {
	r     io.Reader
	w     LayerWriter
	layer int
}

func NewStreamReader(r io.Reader, w LayerWriter, layer int) *StreamReader {
	return &StreamReader{r: r, w: w, layer: layer}
}

// Run delivers frames until the stream ends or ctx is cancelled and returns how many were delivered.
// A clean end of stream is not an error; a truncated last frame is.
func (s *StreamReader) Run(ctx context.Context) (int, error) {
	frame := make([]byte, display.FrameBytes)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, nil
		}

		if _, err := io.ReadFull(s.r, frame); err != nil {
			if errors.Is(err, io.EOF) {
				slog.Debug("Frame stream ended", "layer", s.layer, "frames", count)
				return count, nil
			}
			if ctx.Err() != nil {
				return count, nil
			}
			return count, fmt.Errorf("read frame %d: %w", count+1, err)
		}

		if err := s.w.WriteLayer(s.layer, frame, display.FramePitch); err != nil {
			return count, fmt.Errorf("write frame %d to layer %d: %w", count+1, s.layer, err)
		}
		count++
	}
}
