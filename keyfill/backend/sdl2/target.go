//go:build sdl2

package sdl2

import (
	"fmt"
	"image"
	"log/slog"
	"unsafe"

	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/layer"
	"github.com/valerio/go-keyfill/keyfill/video"
	"github.com/veandco/go-sdl2/sdl"
)

var factors = map[blend.Factor]sdl.BlendFactor{
	blend.Zero:             sdl.BLENDFACTOR_ZERO,
	blend.One:              sdl.BLENDFACTOR_ONE,
	blend.SrcColor:         sdl.BLENDFACTOR_SRC_COLOR,
	blend.OneMinusSrcColor: sdl.BLENDFACTOR_ONE_MINUS_SRC_COLOR,
	blend.SrcAlpha:         sdl.BLENDFACTOR_SRC_ALPHA,
	blend.OneMinusSrcAlpha: sdl.BLENDFACTOR_ONE_MINUS_SRC_ALPHA,
	blend.DstColor:         sdl.BLENDFACTOR_DST_COLOR,
	blend.OneMinusDstColor: sdl.BLENDFACTOR_ONE_MINUS_DST_COLOR,
	blend.DstAlpha:         sdl.BLENDFACTOR_DST_ALPHA,
	blend.OneMinusDstAlpha: sdl.BLENDFACTOR_ONE_MINUS_DST_ALPHA,
}

var operations = map[blend.Operation]sdl.BlendOperation{
	blend.Add:         sdl.BLENDOPERATION_ADD,
	blend.Subtract:    sdl.BLENDOPERATION_SUBTRACT,
	blend.RevSubtract: sdl.BLENDOPERATION_REV_SUBTRACT,
	blend.Minimum:     sdl.BLENDOPERATION_MINIMUM,
	blend.Maximum:     sdl.BLENDOPERATION_MAXIMUM,
}

// blendMode returns the SDL custom blend mode for eq, composing it on first use.
func (s *Backend) blendMode(eq blend.Equation) (sdl.BlendMode, error) {
	if m, ok := s.modes[eq]; ok {
		return m, nil
	}
	if err := eq.Validate(); err != nil {
		return sdl.BLENDMODE_NONE, err
	}
	m := sdl.ComposeCustomBlendMode(
		factors[eq.SrcColorFactor], factors[eq.DstColorFactor], operations[eq.ColorOp],
		factors[eq.SrcAlphaFactor], factors[eq.DstAlphaFactor], operations[eq.AlphaOp],
	)
	s.modes[eq] = m
	return m, nil
}

func toRect(r image.Rectangle) *sdl.Rect {
	return &sdl.Rect{X: int32(r.Min.X), Y: int32(r.Min.Y), W: int32(r.Dx()), H: int32(r.Dy())}
}

func (s *Backend) Clear(c blend.Color) error {
	if err := s.renderer.SetDrawBlendMode(sdl.BLENDMODE_NONE); err != nil {
		return err
	}
	if err := s.renderer.SetDrawColor(c.R, c.G, c.B, c.A); err != nil {
		return err
	}
	return s.renderer.Clear()
}

func (s *Backend) Fill(r image.Rectangle, c blend.Color, eq blend.Equation) error {
	mode, err := s.blendMode(eq)
	if err != nil {
		return err
	}
	if err := s.renderer.SetDrawBlendMode(mode); err != nil {
		return err
	}
	if err := s.renderer.SetDrawColor(c.R, c.G, c.B, c.A); err != nil {
		return err
	}
	return s.renderer.FillRect(toRect(r))
}

func (s *Backend) Draw(v layer.View, dst image.Rectangle, eq blend.Equation) error {
	mode, err := s.blendMode(eq)
	if err != nil {
		return err
	}
	lt, err := s.layerTexture(v)
	if err != nil {
		return err
	}
	if err := lt.texture.SetBlendMode(mode); err != nil {
		return err
	}
	return s.renderer.Copy(lt.texture, nil, toRect(dst))
}

// layerTexture returns the streaming texture of a layer, uploading its pixels when the generation moved.
func (s *Backend) layerTexture(v layer.View) (*layerTexture, error) {
	if len(v.Pixels) < v.Pitch*v.Height || v.Width <= 0 || v.Height <= 0 {
		return nil, fmt.Errorf("%w: layer %d has %d bytes for %dx%d", video.ErrFrameSize, v.Index, len(v.Pixels), v.Width, v.Height)
	}

	lt, ok := s.layers[v.Index]
	if ok && (lt.width != v.Width || lt.height != v.Height) {
		lt.texture.Destroy()
		delete(s.layers, v.Index)
		ok = false
	}
	if !ok {
		tex, err := s.renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, int32(v.Width), int32(v.Height))
		if err != nil {
			return nil, fmt.Errorf("failed to create layer texture: %w", err)
		}
		lt = &layerTexture{texture: tex, width: v.Width, height: v.Height}
		s.layers[v.Index] = lt
	}

	if !lt.uploaded || lt.generation != v.Generation {
		if err := lt.texture.Update(nil, unsafe.Pointer(&v.Pixels[0]), v.Pitch); err != nil {
			return nil, fmt.Errorf("failed to upload layer %d: %w", v.Index, err)
		}
		lt.generation = v.Generation
		lt.uploaded = true
	}
	return lt, nil
}

// Present copies the canvas texture to the window unblended.
func (s *Backend) Present() error {
	if err := s.renderer.SetRenderTarget(nil); err != nil {
		return err
	}
	// the canvas is rebound even when the copy fails
	defer func() {
		if err := s.renderer.SetRenderTarget(s.canvas); err != nil {
			slog.Warn("Failed to rebind canvas texture", "error", err)
		}
	}()

	if err := s.canvas.SetBlendMode(sdl.BLENDMODE_NONE); err != nil {
		return err
	}
	if err := s.renderer.Copy(s.canvas, nil, nil); err != nil {
		return err
	}
	s.renderer.Present()
	return nil
}

// Frame reads the canvas back into memory for snapshots. It stalls the GPU pipeline.
func (s *Backend) Frame() *video.FrameBuffer {
	fb := video.NewCanvas()
	err := s.renderer.ReadPixels(nil, sdl.PIXELFORMAT_ARGB8888, unsafe.Pointer(&fb.Pix()[0]), display.CanvasPitch)
	if err != nil {
		return nil
	}
	return fb
}
