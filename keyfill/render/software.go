package render

import (
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/layer"
	"github.com/valerio/go-keyfill/keyfill/video"
)

// Software evaluates blend equations exactly on a CPU canvas.
//
// Each call splits its rows into bands blended in parallel and returns once every band is done.
type Software struct {
	canvas    *video.FrameBuffer
	presented *video.FrameBuffer
	workers   int
	frames    uint64
}

// NewSoftware creates a software target with a full Key+Fill canvas. workers <= 0 uses GOMAXPROCS.
func NewSoftware(workers int) *Software {
	return NewSoftwareSize(display.CanvasWidth, display.CanvasHeight, workers)
}

// NewSoftwareSize creates a software target with a canvas of the given size.
func NewSoftwareSize(width, height, workers int) *Software {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Software{
		canvas:    video.NewFrameBuffer(width, height),
		presented: video.NewFrameBuffer(width, height),
		workers:   workers,
	}
}

// Frame returns the last presented canvas. It is only stable between Present calls.
func (s *Software) Frame() *video.FrameBuffer { return s.presented }

// Frames returns how many times Present was called.
func (s *Software) Frames() uint64 { return s.frames }

func (s *Software) Clear(c blend.Color) error {
	s.canvas.Fill(s.canvas.Bounds(), c)
	return nil
}

func (s *Software) Fill(r image.Rectangle, c blend.Color, eq blend.Equation) error {
	if err := eq.Validate(); err != nil {
		return err
	}
	r = r.Intersect(s.canvas.Bounds())
	if r.Empty() {
		return nil
	}
	if eq == blend.Replace {
		s.canvas.Fill(r, c)
		return nil
	}

	return s.bands(r, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			row := s.row(s.canvas.Pix(), s.canvas.Pitch(), r.Min.X, r.Max.X, y)
			for i := 0; i < len(row); i += display.BytesPerPixel {
				store(row[i:], eq.Apply(c, load(row[i:])))
			}
		}
		return nil
	})
}

func (s *Software) Draw(v layer.View, dst image.Rectangle, eq blend.Equation) error {
	if err := eq.Validate(); err != nil {
		return err
	}
	src := image.Rect(0, 0, v.Width, v.Height)
	if v.Height > 0 && len(v.Pixels) < v.Pitch*(v.Height-1)+v.Width*display.BytesPerPixel {
		return fmt.Errorf("%w: layer %d has %d bytes for %dx%d", video.ErrFrameSize, v.Index, len(v.Pixels), v.Width, v.Height)
	}
	r := dst.Intersect(src.Add(dst.Min)).Intersect(s.canvas.Bounds())
	if r.Empty() {
		return nil
	}

	return s.bands(r, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			out := s.row(s.canvas.Pix(), s.canvas.Pitch(), r.Min.X, r.Max.X, y)
			in := s.row(v.Pixels, v.Pitch, r.Min.X-dst.Min.X, r.Max.X-dst.Min.X, y-dst.Min.Y)
			switch eq {
			case blend.SourceOver:
				overRow(out, in)
			case blend.Replace:
				copy(out, in)
			default:
				for i := 0; i < len(out); i += display.BytesPerPixel {
					store(out[i:], eq.Apply(load(in[i:]), load(out[i:])))
				}
			}
		}
		return nil
	})
}

// Present publishes the canvas. The working canvas keeps its contents.
func (s *Software) Present() error {
	copy(s.presented.Pix(), s.canvas.Pix())
	s.frames++
	return nil
}

func (s *Software) row(pix []byte, pitch, x0, x1, y int) []byte {
	return pix[y*pitch+x0*display.BytesPerPixel : y*pitch+x1*display.BytesPerPixel]
}

// bands runs fn over horizontal slices of r in parallel.
func (s *Software) bands(r image.Rectangle, fn func(y0, y1 int) error) error {
	h := r.Dy()
	n := min(s.workers, h)
	if n <= 1 {
		return fn(r.Min.Y, r.Max.Y)
	}

	var g errgroup.Group
	for i := 0; i < n; i++ {
		y0 := r.Min.Y + h*i/n
		y1 := r.Min.Y + h*(i+1)/n
		g.Go(func() error { return fn(y0, y1) })
	}
	return g.Wait()
}

func overRow(dst, src []byte) {
	for i := 0; i < len(dst); i += display.BytesPerPixel {
		switch src[i+display.AlphaOffset] {
		case 0:
			continue
		case display.FullAlpha:
			copy(dst[i:i+display.BytesPerPixel], src[i:i+display.BytesPerPixel])
		default:
			store(dst[i:], blend.Over(load(src[i:]), load(dst[i:])))
		}
	}
}

func load(p []byte) blend.Color {
	return blend.Color{
		R: p[display.RedOffset],
		G: p[display.GreenOffset],
		B: p[display.BlueOffset],
		A: p[display.AlphaOffset],
	}
}

func store(p []byte, c blend.Color) {
	p[display.RedOffset] = c.R
	p[display.GreenOffset] = c.G
	p[display.BlueOffset] = c.B
	p[display.AlphaOffset] = c.A
}
