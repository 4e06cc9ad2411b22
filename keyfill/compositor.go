// Package keyfill composites layers into a Key+Fill canvas and drives the render loop.
package keyfill

import (
	"errors"
	"sync/atomic"

	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/layer"
	"github.com/valerio/go-keyfill/keyfill/render"
	"github.com/valerio/go-keyfill/keyfill/video"
)

// Compositor turns a display mode and a layer snapshot into target operations.
//
// The Fill pane receives the alpha composite of the visible layers. The Key pane receives the same
// layers with the same equation, which leaves the accumulated coverage in its alpha channel, and is
// then converted to a luma matte with one KeyFromAlpha fill.
type Compositor struct {
	cycles   atomic.Uint64
	failures atomic.Uint64
}

// CompositorStats counts compositor cycles and cycles with at least one failed target call.
type CompositorStats struct {
	Cycles   uint64 `json:"cycles"`
	Failures uint64 `json:"failures"`
}

func NewCompositor() *Compositor {
	return &Compositor{}
}

// Cycle renders and presents one canvas. Target errors do not stop the cycle; they are joined and
// returned once every operation has been issued.
func (c *Compositor) Cycle(mode DisplayMode, views []layer.View, t render.Target) error {
	var errs []error
	check := func(op string, index int, err error) {
		if err != nil {
			errs = append(errs, render.Wrap(op, index, err))
		}
	}

	switch mode {
	case Clear:
		check("clear", -1, t.Clear(blend.TransparentBlack))
	case Black:
		check("fill", -1, t.Fill(video.FillPane, blend.OpaqueBlack, blend.Replace))
		check("fill", -1, t.Fill(video.KeyPane, blend.OpaqueWhite, blend.Replace))
	default:
		check("clear", -1, t.Clear(blend.TransparentBlack))
		for _, v := range views {
			if !v.Visible {
				continue
			}
			check("draw", v.Index, t.Draw(v, video.FillPane, blend.SourceOver))
			check("draw", v.Index, t.Draw(v, video.KeyPane, blend.SourceOver))
		}
		check("fill", -1, t.Fill(video.KeyPane, blend.OpaqueWhite, blend.KeyFromAlpha))
	}
	check("present", -1, t.Present())

	c.cycles.Add(1)
	if len(errs) > 0 {
		c.failures.Add(1)
	}
	return errors.Join(errs...)
}

func (c *Compositor) Stats() CompositorStats {
	return CompositorStats{Cycles: c.cycles.Load(), Failures: c.failures.Load()}
}
