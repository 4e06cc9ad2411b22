package video

import (
	"errors"
	"fmt"
	"image"

	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/display"
)

// ErrFrameSize is returned when a frame does not hold enough rows for the destination.
var ErrFrameSize = errors.New("frame size mismatch")

// FrameBuffer is a BGRA8888 pixel buffer with straight alpha.
type FrameBuffer struct {
	width  int
	height int
	pitch  int
	buffer []byte
}

// NewFrameBuffer creates a tightly packed frame buffer with the specified size.
func NewFrameBuffer(width, height int) *FrameBuffer {
	pitch := width * display.BytesPerPixel
	return &FrameBuffer{
		width:  width,
		height: height,
		pitch:  pitch,
		buffer: make([]byte, pitch*height),
	}
}

// NewLayerFrame creates a frame buffer sized for one layer (one pane).
func NewLayerFrame() *FrameBuffer {
	return NewFrameBuffer(display.PaneWidth, display.PaneHeight)
}

// NewCanvas creates a frame buffer sized for the whole Key+Fill output.
func NewCanvas() *FrameBuffer {
	return NewFrameBuffer(display.CanvasWidth, display.CanvasHeight)
}

func (fb *FrameBuffer) Width() int  { return fb.width }
func (fb *FrameBuffer) Height() int { return fb.height }
func (fb *FrameBuffer) Pitch() int  { return fb.pitch }

// Bounds returns the buffer rectangle, origin at zero.
func (fb *FrameBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, fb.width, fb.height)
}

// Pix exposes the raw BGRA bytes.
func (fb *FrameBuffer) Pix() []byte {
	return fb.buffer
}

func (fb *FrameBuffer) offset(x, y int) int {
	return y*fb.pitch + x*display.BytesPerPixel
}

func (fb *FrameBuffer) GetPixel(x, y int) blend.Color {
	i := fb.offset(x, y)
	p := fb.buffer[i : i+display.BytesPerPixel : i+display.BytesPerPixel]
	return blend.Color{
		R: p[display.RedOffset],
		G: p[display.GreenOffset],
		B: p[display.BlueOffset],
		A: p[display.AlphaOffset],
	}
}

func (fb *FrameBuffer) SetPixel(x, y int, c blend.Color) {
	i := fb.offset(x, y)
	p := fb.buffer[i : i+display.BytesPerPixel : i+display.BytesPerPixel]
	p[display.RedOffset] = c.R
	p[display.GreenOffset] = c.G
	p[display.BlueOffset] = c.B
	p[display.AlphaOffset] = c.A
}

// Fill sets every pixel inside r (clipped to the buffer) to c.
func (fb *FrameBuffer) Fill(r image.Rectangle, c blend.Color) {
	r = r.Intersect(fb.Bounds())
	if r.Empty() {
		return
	}
	row := fb.buffer[fb.offset(r.Min.X, r.Min.Y):fb.offset(r.Max.X, r.Min.Y)]
	for i := 0; i < len(row); i += display.BytesPerPixel {
		row[i+display.RedOffset] = c.R
		row[i+display.GreenOffset] = c.G
		row[i+display.BlueOffset] = c.B
		row[i+display.AlphaOffset] = c.A
	}
	for y := r.Min.Y + 1; y < r.Max.Y; y++ {
		copy(fb.buffer[fb.offset(r.Min.X, y):], row)
	}
}

// Clear sets every pixel to transparent black.
func (fb *FrameBuffer) Clear() {
	clear(fb.buffer)
}

// CopyFrom copies rows of a BGRA frame with the given pitch into the buffer.
func (fb *FrameBuffer) CopyFrom(src []byte, pitch int) error {
	rowBytes := fb.width * display.BytesPerPixel
	if pitch < rowBytes {
		return fmt.Errorf("%w: pitch %d < %d", ErrFrameSize, pitch, rowBytes)
	}
	if need := pitch*(fb.height-1) + rowBytes; len(src) < need {
		return fmt.Errorf("%w: %d bytes, need %d", ErrFrameSize, len(src), need)
	}
	if pitch == fb.pitch {
		copy(fb.buffer, src[:len(fb.buffer)])
		return nil
	}
	for y := 0; y < fb.height; y++ {
		copy(fb.buffer[y*fb.pitch:y*fb.pitch+rowBytes], src[y*pitch:y*pitch+rowBytes])
	}
	return nil
}

// ToImage converts the buffer (or the sub-rectangle r of it) to a straight-alpha NRGBA image.
func (fb *FrameBuffer) ToImage(r image.Rectangle) *image.NRGBA {
	r = r.Intersect(fb.Bounds())
	img := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := fb.buffer[fb.offset(r.Min.X, y):fb.offset(r.Max.X, y)]
		dst := img.Pix[(y-r.Min.Y)*img.Stride:]
		for i := 0; i < len(src); i += display.BytesPerPixel {
			dst[i+0] = src[i+display.RedOffset]
			dst[i+1] = src[i+display.GreenOffset]
			dst[i+2] = src[i+display.BlueOffset]
			dst[i+3] = src[i+display.AlphaOffset]
		}
	}
	return img
}

// FromImage writes img, already at the buffer's size, into the buffer as straight-alpha BGRA.
func (fb *FrameBuffer) FromImage(img *image.NRGBA) error {
	b := img.Bounds()
	if b.Dx() != fb.width || b.Dy() != fb.height {
		return fmt.Errorf("%w: image %dx%d, buffer %dx%d", ErrFrameSize, b.Dx(), b.Dy(), fb.width, fb.height)
	}
	for y := 0; y < fb.height; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+fb.width*4]
		dst := fb.buffer[y*fb.pitch:]
		for i := 0; i < len(src); i += 4 {
			dst[i+display.RedOffset] = src[i+0]
			dst[i+display.GreenOffset] = src[i+1]
			dst[i+display.BlueOffset] = src[i+2]
			dst[i+display.AlphaOffset] = src[i+3]
		}
	}
	return nil
}
