// Package blend describes custom two-channel blend operations and evaluates them on 8-bit pixels.
//
// An Equation is the (src-factor, dst-factor, op) triple for the color channels plus another triple for
// the alpha channel, the same shape GPU APIs expose as a "custom blend mode". Colors are straight
// (non-premultiplied) 8-bit values; factors are scaled to 0-255 and every result is rounded once.
package blend

import (
	"errors"
	"fmt"
)

// Factor selects the multiplier applied to a source or destination term.
type Factor uint8

const (
	Zero             Factor = iota // 0
	One                            // 1
	SrcColor                       // source channel value
	OneMinusSrcColor               // 1 - source channel value
	SrcAlpha                       // source alpha
	OneMinusSrcAlpha               // 1 - source alpha
	DstColor                       // destination channel value
	OneMinusDstColor               // 1 - destination channel value
	DstAlpha                       // destination alpha
	OneMinusDstAlpha               // 1 - destination alpha
	factorCount
)

// Operation combines the weighted source and destination terms.
type Operation uint8

const (
	Add         Operation = iota // src*sf + dst*df
	Subtract                     // src*sf - dst*df
	RevSubtract                  // dst*df - src*sf
	Minimum                      // min(src, dst), factors ignored
	Maximum                      // max(src, dst), factors ignored
	operationCount
)

// ErrUnsupported is returned by Validate for factors or operations outside the defined set.
var ErrUnsupported = errors.New("unsupported blend equation")

// Equation is a custom blend mode: one (src, dst, op) triple for color and one for alpha.
type Equation struct {
	SrcColorFactor Factor
	DstColorFactor Factor
	ColorOp        Operation
	SrcAlphaFactor Factor
	DstAlphaFactor Factor
	AlphaOp        Operation
}

// The equations the Key+Fill pipeline is built on.
var (
	// SourceOver places a layer on top of existing content:
	// color = src*srcA + dst*(1-srcA), alpha = srcA + dstA*(1-srcA).
	SourceOver = Equation{
		SrcColorFactor: SrcAlpha, DstColorFactor: OneMinusSrcAlpha, ColorOp: Add,
		SrcAlphaFactor: One, DstAlphaFactor: OneMinusSrcAlpha, AlphaOp: Add,
	}

	// KeyFromAlpha turns accumulated coverage into a luma matte when the source is opaque white:
	// color = src*dstA, alpha = src alpha.
	KeyFromAlpha = Equation{
		SrcColorFactor: DstAlpha, DstColorFactor: Zero, ColorOp: Add,
		SrcAlphaFactor: One, DstAlphaFactor: Zero, AlphaOp: Add,
	}

	// Replace overwrites the destination with the source.
	Replace = Equation{
		SrcColorFactor: One, DstColorFactor: Zero, ColorOp: Add,
		SrcAlphaFactor: One, DstAlphaFactor: Zero, AlphaOp: Add,
	}
)

// Validate reports whether every factor and operation of e is defined.
func (e Equation) Validate() error {
	for _, f := range []Factor{e.SrcColorFactor, e.DstColorFactor, e.SrcAlphaFactor, e.DstAlphaFactor} {
		if f >= factorCount {
			return fmt.Errorf("%w: factor %d", ErrUnsupported, f)
		}
	}
	if e.ColorOp >= operationCount || e.AlphaOp >= operationCount {
		return fmt.Errorf("%w: operation %d/%d", ErrUnsupported, e.ColorOp, e.AlphaOp)
	}
	return nil
}

func (e Equation) String() string {
	switch e {
	case SourceOver:
		return "source-over"
	case KeyFromAlpha:
		return "key-from-alpha"
	case Replace:
		return "replace"
	}
	return fmt.Sprintf("custom(%s,%s,%s/%s,%s,%s)",
		e.SrcColorFactor, e.DstColorFactor, e.ColorOp,
		e.SrcAlphaFactor, e.DstAlphaFactor, e.AlphaOp)
}

var factorNames = [...]string{
	"zero", "one", "src-color", "one-minus-src-color", "src-alpha", "one-minus-src-alpha",
	"dst-color", "one-minus-dst-color", "dst-alpha", "one-minus-dst-alpha",
}

func (f Factor) String() string {
	if f < factorCount {
		return factorNames[f]
	}
	return fmt.Sprintf("factor(%d)", uint8(f))
}

var operationNames = [...]string{"add", "subtract", "rev-subtract", "minimum", "maximum"}

func (o Operation) String() string {
	if o < operationCount {
		return operationNames[o]
	}
	return fmt.Sprintf("operation(%d)", uint8(o))
}
