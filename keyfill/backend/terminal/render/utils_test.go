package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/video"
)

func TestScalePane(t *testing.T) {
	canvas := video.NewCanvas()
	canvas.Fill(video.FillPane, blend.Color{R: 200, A: 255})
	canvas.Fill(video.KeyPane, blend.OpaqueWhite)

	fill := ScalePane(canvas, video.FillPane, 32, 18)
	assert.Equal(t, 32, fill.Bounds().Dx())
	assert.Equal(t, color.NRGBA{R: 200, A: 255}, fill.NRGBAAt(16, 9))

	key := ScalePane(canvas, video.KeyPane, 32, 18)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, key.NRGBAAt(0, 0))

	assert.True(t, ScalePane(canvas, video.KeyPane, 0, 5).Bounds().Empty())
}

func TestOverBlack(t *testing.T) {
	r, g, b := OverBlack(color.NRGBA{R: 255, G: 100, B: 0, A: 128})
	assert.Equal(t, uint8(128), r)
	assert.Equal(t, uint8(50), g)
	assert.Equal(t, uint8(0), b)
}
