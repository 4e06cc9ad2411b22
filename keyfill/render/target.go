// Package render defines the rendering primitives the compositor drives and a software implementation.
package render

import (
	"fmt"
	"image"

	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/layer"
)

// Target is a surface the compositor draws the Key+Fill canvas on.
// Calls are issued from the render goroutine only, in order.
type Target interface {
	// Clear sets the whole canvas to c, ignoring blending.
	Clear(c blend.Color) error
	// Fill blends c over every pixel of r with eq.
	Fill(r image.Rectangle, c blend.Color, eq blend.Equation) error
	// Draw blends the layer's pixels into dst with eq. The layer origin maps to dst.Min.
	Draw(v layer.View, dst image.Rectangle, eq blend.Equation) error
	// Present makes everything drawn since the last Present visible at once.
	Present() error
}

// OpError reports which target operation failed.
type OpError struct {
	Op    string // clear, fill, draw or present
	Layer int    // layer index for draw, -1 otherwise
	Err   error
}

func (e *OpError) Error() string {
	if e.Layer >= 0 {
		return fmt.Sprintf("render %s layer %d failed: %v", e.Op, e.Layer, e.Err)
	}
	return fmt.Sprintf("render %s failed: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Wrap returns err as an *OpError for op, or nil when err is nil.
func Wrap(op string, index int, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Layer: index, Err: err}
}
