package video

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/display"
)

func TestFrameBufferPixelLayout(t *testing.T) {
	fb := NewFrameBuffer(4, 2)
	fb.SetPixel(1, 1, blend.Color{R: 1, G: 2, B: 3, A: 4})

	i := fb.Pitch() + display.BytesPerPixel
	// BGRA byte order in memory
	assert.Equal(t, []byte{3, 2, 1, 4}, fb.Pix()[i:i+4])
	assert.Equal(t, blend.Color{R: 1, G: 2, B: 3, A: 4}, fb.GetPixel(1, 1))
}

func TestFrameBufferFill(t *testing.T) {
	fb := NewFrameBuffer(8, 8)
	c := blend.Color{R: 9, G: 8, B: 7, A: 255}
	fb.Fill(image.Rect(2, 2, 4, 100), c)

	assert.Equal(t, c, fb.GetPixel(2, 2))
	assert.Equal(t, c, fb.GetPixel(3, 7))
	assert.Equal(t, blend.TransparentBlack, fb.GetPixel(4, 2))
	assert.Equal(t, blend.TransparentBlack, fb.GetPixel(1, 7))

	fb.Clear()
	assert.Equal(t, blend.TransparentBlack, fb.GetPixel(3, 3))
}

func TestFrameBufferCopyFrom(t *testing.T) {
	t.Run("tight pitch", func(t *testing.T) {
		fb := NewFrameBuffer(2, 2)
		src := []byte{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
		require.NoError(t, fb.CopyFrom(src, 8))
		assert.Equal(t, src, fb.Pix())
	})

	t.Run("padded pitch", func(t *testing.T) {
		fb := NewFrameBuffer(1, 2)
		src := []byte{1, 2, 3, 4, 0xEE, 0xEE, 0xEE, 0xEE, 5, 6, 7, 8}
		require.NoError(t, fb.CopyFrom(src, 8))
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, fb.Pix())
	})

	t.Run("short frame", func(t *testing.T) {
		fb := NewFrameBuffer(2, 2)
		assert.ErrorIs(t, fb.CopyFrom(make([]byte, 10), 8), ErrFrameSize)
		assert.ErrorIs(t, fb.CopyFrom(make([]byte, 64), 4), ErrFrameSize)
	})
}

func TestFrameBufferImageRoundTrip(t *testing.T) {
	fb := NewFrameBuffer(3, 3)
	fb.SetPixel(2, 1, blend.Color{R: 200, G: 100, B: 50, A: 128})

	img := fb.ToImage(image.Rect(1, 1, 3, 3))
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	got := img.NRGBAAt(1, 0)
	assert.Equal(t, []uint8{200, 100, 50, 128}, []uint8{got.R, got.G, got.B, got.A})

	other := NewFrameBuffer(3, 3)
	require.NoError(t, other.FromImage(fb.ToImage(fb.Bounds())))
	assert.Equal(t, fb.Pix(), other.Pix())

	assert.ErrorIs(t, other.FromImage(img), ErrFrameSize)
}

func TestPanes(t *testing.T) {
	assert.Equal(t, display.PaneWidth, FillPane.Dx())
	assert.Equal(t, FillPane.Size(), KeyPane.Size())
	assert.False(t, FillPane.Overlaps(KeyPane))
	assert.Equal(t, image.Rect(0, 0, display.CanvasWidth, display.CanvasHeight), FillPane.Union(KeyPane))
}
