package blend

// Color is a straight-alpha 8-bit color.
type Color struct {
	R, G, B, A uint8
}

var (
	TransparentBlack = Color{}
	OpaqueBlack      = Color{A: 255}
	OpaqueWhite      = Color{R: 255, G: 255, B: 255, A: 255}
)

// div255 divides by 255 rounding to nearest. 255 is odd, so there is never a tie.
func div255(x int32) uint8 {
	if x <= 0 {
		return 0
	}
	v := (x + 127) / 255
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// MulDiv255 returns a*b/255 rounded to nearest.
func MulDiv255(a, b uint8) uint8 {
	return div255(int32(a) * int32(b))
}

// factor resolves f for one channel. s and d are the channel values, sa and da the alphas.
func factor(f Factor, s, d, sa, da uint8) int32 {
	switch f {
	case One:
		return 255
	case SrcColor:
		return int32(s)
	case OneMinusSrcColor:
		return 255 - int32(s)
	case SrcAlpha:
		return int32(sa)
	case OneMinusSrcAlpha:
		return 255 - int32(sa)
	case DstColor:
		return int32(d)
	case OneMinusDstColor:
		return 255 - int32(d)
	case DstAlpha:
		return int32(da)
	case OneMinusDstAlpha:
		return 255 - int32(da)
	}
	return 0
}

func channel(op Operation, sf, df Factor, s, d, sa, da uint8) uint8 {
	switch op {
	case Minimum:
		return min(s, d)
	case Maximum:
		return max(s, d)
	}
	st := int32(s) * factor(sf, s, d, sa, da)
	dt := int32(d) * factor(df, s, d, sa, da)
	switch op {
	case Subtract:
		return div255(st - dt)
	case RevSubtract:
		return div255(dt - st)
	}
	return div255(st + dt)
}

// Apply blends src onto dst and returns the new destination value.
func (e Equation) Apply(src, dst Color) Color {
	sa, da := src.A, dst.A
	return Color{
		R: channel(e.ColorOp, e.SrcColorFactor, e.DstColorFactor, src.R, dst.R, sa, da),
		G: channel(e.ColorOp, e.SrcColorFactor, e.DstColorFactor, src.G, dst.G, sa, da),
		B: channel(e.ColorOp, e.SrcColorFactor, e.DstColorFactor, src.B, dst.B, sa, da),
		A: channel(e.AlphaOp, e.SrcAlphaFactor, e.DstAlphaFactor, sa, da, sa, da),
	}
}

// Over is SourceOver.Apply without the factor dispatch.
func Over(src, dst Color) Color {
	sa := int32(src.A)
	inv := 255 - sa
	return Color{
		R: div255(int32(src.R)*sa + int32(dst.R)*inv),
		G: div255(int32(src.G)*sa + int32(dst.G)*inv),
		B: div255(int32(src.B)*sa + int32(dst.B)*inv),
		A: div255(sa*255 + int32(dst.A)*inv),
	}
}

// Coverage returns the alpha accumulated by compositing alphas bottom to top with SourceOver.
func Coverage(alphas ...uint8) uint8 {
	var acc uint8
	for _, a := range alphas {
		acc = div255(int32(a)*255 + int32(acc)*(255-int32(a)))
	}
	return acc
}
