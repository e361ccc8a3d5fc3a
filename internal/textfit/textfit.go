// Package textfit picks a font size that keeps a string inside a fixed text box.
//
// The model is a deliberate approximation: every glyph is assumed to be
// 0.6 em wide and every line 1.2 em tall. Inputs are mostly URLs, whose glyph
// widths are close enough to uniform for this to hold.
package textfit

import "math"

const (
	charWidthFactor  = 0.6
	lineHeightFactor = 1.2
)

// Params bounds the search.
type Params struct {
	MaxSize float64
	MinSize float64
	Step    float64
}

// DefaultParams matches the template's body text.
var DefaultParams = Params{MaxSize: 10, MinSize: 4, Step: 0.5}

// Box is a field's widget rectangle in points.
type Box struct {
	Width  float64
	Height float64
}

// FontSize returns the largest size in [p.MinSize, p.MaxSize], walking down in
// p.Step increments, at which text is estimated to fit in box. It never
// returns less than p.MinSize; text that does not fit at the floor overflows
// and is left to the field's scroll behaviour.
func FontSize(box Box, text string, p Params) float64 {
	p = p.normalized()
	n := len([]rune(text))
	for size := p.MaxSize; size > p.MinSize; size -= p.Step {
		if Fits(box, n, size) {
			return size
		}
	}
	return p.MinSize
}

// Fits reports whether n characters fit in box at size.
func Fits(box Box, n int, size float64) bool {
	lines := Lines(box.Width, n, size)
	if lines == 0 {
		return false
	}
	return float64(lines)*size*lineHeightFactor <= box.Height
}

// Lines estimates how many wrapped lines n characters need at size. Zero means
// not even one character fits on a line.
func Lines(width float64, n int, size float64) int {
	perLine := int(math.Floor(width / (size * charWidthFactor)))
	if perLine <= 0 {
		return 0
	}
	if n <= perLine {
		return 1
	}
	return (n + perLine - 1) / perLine
}

func (p Params) normalized() Params {
	if p.MinSize <= 0 {
		p.MinSize = DefaultParams.MinSize
	}
	if p.MaxSize < p.MinSize {
		p.MaxSize = p.MinSize
	}
	if p.Step <= 0 {
		p.Step = DefaultParams.Step
	}
	return p
}
