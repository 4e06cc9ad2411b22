package render

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/valerio/go-keyfill/keyfill/video"
)

// ScalePane downscales one pane of the canvas to w x h preview pixels.
func ScalePane(canvas *video.FrameBuffer, pane image.Rectangle, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	if w <= 0 || h <= 0 {
		return dst
	}
	src := canvas.ToImage(pane)
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// OverBlack flattens a straight-alpha color onto black, which is how a Fill pane looks unkeyed.
func OverBlack(c color.NRGBA) (r, g, b uint8) {
	mul := func(v uint8) uint8 { return uint8((uint16(v)*uint16(c.A) + 127) / 255) }
	return mul(c.R), mul(c.G), mul(c.B)
}

// HalfBlock is the glyph drawing two vertically stacked preview pixels in one cell:
// the foreground paints the top half, the background the bottom half.
const HalfBlock = '▀'
