package source

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/gogpu/gg"

	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/video"
)

// Test card regions, in layer coordinates.
var (
	// BarsRect holds opaque colour bars.
	BarsRect = image.Rect(0, 0, display.PaneWidth, display.PaneHeight*6/10)
	// LowerThirdRect is a white band at half opacity, for checking partial keys.
	LowerThirdRect = image.Rect(display.PaneWidth/20, display.PaneHeight*3/4, display.PaneWidth*19/20, display.PaneHeight*9/10)
	// markerSize is the side of the opaque safe-area corner markers.
	markerSize = 48
)

// LowerThirdAlpha is the alpha of the lower-third band.
const LowerThirdAlpha = 128

var barColors = [7][3]float64{
	{0.75, 0.75, 0.75}, // gray
	{0.75, 0.75, 0},    // yellow
	{0, 0.75, 0.75},    // cyan
	{0, 0.75, 0},       // green
	{0.75, 0, 0.75},    // magenta
	{0.75, 0, 0},       // red
	{0, 0, 0.75},       // blue
}

// SafeAreaMarkers returns the rectangles of the four corner markers (5% action-safe inset).
func SafeAreaMarkers() []image.Rectangle {
	x0, y0 := display.PaneWidth/20, display.PaneHeight/20
	x1, y1 := display.PaneWidth-x0-markerSize, display.PaneHeight-y0-markerSize
	var out []image.Rectangle
	for _, p := range []image.Point{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		out = append(out, image.Rect(p.X, p.Y, p.X+markerSize, p.Y+markerSize))
	}
	return out
}

// RenderTestCard draws the test card into a new layer frame. Everything outside the bars, the band
// and the markers is fully transparent.
func RenderTestCard() (*video.FrameBuffer, error) {
	pm := gg.NewPixmap(display.PaneWidth, display.PaneHeight)
	dc := gg.NewContext(display.PaneWidth, display.PaneHeight, gg.WithPixmap(pm))

	fill := func(r image.Rectangle, red, green, blue, alpha float64) error {
		dc.SetRGBA(red, green, blue, alpha)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		return dc.Fill()
	}

	barWidth := BarsRect.Dx() / len(barColors)
	for i, c := range barColors {
		r := image.Rect(i*barWidth, BarsRect.Min.Y, (i+1)*barWidth, BarsRect.Max.Y)
		if i == len(barColors)-1 {
			r.Max.X = BarsRect.Max.X
		}
		if err := fill(r, c[0], c[1], c[2], 1); err != nil {
			return nil, fmt.Errorf("draw bar %d: %w", i, err)
		}
	}

	if err := fill(LowerThirdRect, 1, 1, 1, LowerThirdAlpha/255.0); err != nil {
		return nil, fmt.Errorf("draw lower third: %w", err)
	}

	for _, r := range SafeAreaMarkers() {
		if err := fill(r, 1, 1, 1, 1); err != nil {
			return nil, fmt.Errorf("draw marker: %w", err)
		}
	}

	if err := dc.Close(); err != nil {
		return nil, fmt.Errorf("flush test card: %w", err)
	}
	return pixmapToFrame(pm), nil
}

// pixmapToFrame swizzles the straight-alpha RGBA pixmap into a BGRA frame.
func pixmapToFrame(pm *gg.Pixmap) *video.FrameBuffer {
	frame := video.NewLayerFrame()
	src, dst := pm.Data(), frame.Pix()
	for i := 0; i+3 < len(src) && i+3 < len(dst); i += display.BytesPerPixel {
		dst[i+display.RedOffset] = src[i]
		dst[i+display.GreenOffset] = src[i+1]
		dst[i+display.BlueOffset] = src[i+2]
		dst[i+display.AlphaOffset] = src[i+3]
	}
	return frame
}

// TestCard delivers the test card to a layer once, or repeatedly at Interval.
type TestCard struct {
	Layer    int
	Interval time.Duration
}

// Run renders the card and writes it until ctx is cancelled. With a zero Interval it writes once.
func (t *TestCard) Run(ctx context.Context, w LayerWriter) error {
	frame, err := RenderTestCard()
	if err != nil {
		return err
	}
	if err := w.WriteLayer(t.Layer, frame.Pix(), frame.Pitch()); err != nil {
		return fmt.Errorf("write test card to layer %d: %w", t.Layer, err)
	}
	slog.Info("Test card delivered", "layer", t.Layer, "interval", t.Interval)
	if t.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.WriteLayer(t.Layer, frame.Pix(), frame.Pitch()); err != nil {
				return fmt.Errorf("write test card to layer %d: %w", t.Layer, err)
			}
		}
	}
}
