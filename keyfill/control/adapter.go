// Package control applies operator commands to the shared output state and serves them over HTTP.
package control

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/valerio/go-keyfill/keyfill"
	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/layer"
	"github.com/valerio/go-keyfill/keyfill/video"
)

// Adapter is the only writer of display mode and layer visibility. Every method is safe for
// concurrent use and never waits on the render loop; WriteLayer waits only on its own layer.
type Adapter struct {
	state *keyfill.State
	stats func() keyfill.CompositorStats
}

// Status is a point-in-time view of the output for the control plane.
type Status struct {
	Mode     keyfill.DisplayMode `json:"mode"`
	Capacity int                 `json:"capacity"`
	Layers   []layer.Status      `json:"layers"`
	keyfill.CompositorStats
}

// NewAdapter creates an adapter over state. stats may be nil when no compositor is running.
func NewAdapter(state *keyfill.State, stats func() keyfill.CompositorStats) *Adapter {
	return &Adapter{state: state, stats: stats}
}

func (a *Adapter) SetMode(m keyfill.DisplayMode) {
	a.state.SetMode(m)
}

// ShowLayer marks layer i visible. Unknown layers are ignored.
func (a *Adapter) ShowLayer(i int) {
	a.state.Layers().Show(i)
}

// HideLayer excludes layer i from compositing without discarding it. Unknown layers are ignored.
func (a *Adapter) HideLayer(i int) {
	a.state.Layers().Hide(i)
}

// WriteLayer delivers one BGRA frame to layer i, creating it if needed.
func (a *Adapter) WriteLayer(i int, frame []byte, pitch int) error {
	return a.state.Layers().Deliver(i, frame, pitch)
}

// WriteImage scales img to the layer size and delivers it to layer i.
func (a *Adapter) WriteImage(i int, img image.Image) error {
	dst := image.NewNRGBA(image.Rect(0, 0, display.PaneWidth, display.PaneHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	frame := video.NewLayerFrame()
	if err := frame.FromImage(dst); err != nil {
		return fmt.Errorf("convert image: %w", err)
	}
	return a.WriteLayer(i, frame.Pix(), frame.Pitch())
}

func (a *Adapter) Status() Status {
	st := Status{
		Mode:     a.state.Mode(),
		Capacity: a.state.Layers().Cap(),
		Layers:   a.state.Layers().Status(),
	}
	if a.stats != nil {
		st.CompositorStats = a.stats()
	}
	return st
}
