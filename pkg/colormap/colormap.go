// Package colormap provides color scales for hexbin plots: continuous
// maps for numeric aggregates and a categorical palette for level colors.
package colormap

import (
	"fmt"
	"image/color"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
}

// Linear interpolates between control colors.
type Linear struct {
	stops []color.RGBA
}

// At returns the color at position t, clamped to [0, 1].
func (c Linear) At(t float64) color.Color {
	if t <= 0 {
		return c.stops[0]
	}
	if t >= 1 {
		return c.stops[len(c.stops)-1]
	}
	pos := t * float64(len(c.stops)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(c.stops) {
		hi = len(c.stops) - 1
	}
	return lerp(c.stops[lo], c.stops[hi], pos-float64(lo))
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(a.R) + t*(float64(b.R)-float64(a.R))),
		G: uint8(float64(a.G) + t*(float64(b.G)-float64(a.G))),
		B: uint8(float64(a.B) + t*(float64(b.B)-float64(a.B))),
		A: 255,
	}
}

// ByName resolves a continuous colormap; unknown names fall back to
// viridis.
func ByName(name string) Colormap {
	if cm, ok := continuous[name]; ok {
		return cm
	}
	return Viridis
}

var continuous = map[string]Colormap{
	"viridis": Viridis,
	"plasma":  Plasma,
	"magma":   Magma,
}

// Viridis is the matplotlib viridis scale.
var Viridis = Linear{stops: []color.RGBA{
	{68, 1, 84, 255},
	{72, 35, 116, 255},
	{64, 67, 135, 255},
	{52, 94, 141, 255},
	{41, 120, 142, 255},
	{32, 144, 140, 255},
	{34, 167, 132, 255},
	{68, 190, 112, 255},
	{121, 209, 81, 255},
	{189, 222, 38, 255},
	{253, 231, 37, 255},
}}

// Plasma is the matplotlib plasma scale.
var Plasma = Linear{stops: []color.RGBA{
	{13, 8, 135, 255},
	{75, 3, 161, 255},
	{125, 3, 168, 255},
	{168, 34, 150, 255},
	{203, 70, 121, 255},
	{229, 107, 93, 255},
	{248, 148, 65, 255},
	{253, 195, 40, 255},
	{240, 249, 33, 255},
}}

// Magma is the matplotlib magma scale.
var Magma = Linear{stops: []color.RGBA{
	{0, 0, 4, 255},
	{28, 16, 68, 255},
	{79, 18, 123, 255},
	{129, 37, 129, 255},
	{181, 54, 122, 255},
	{229, 80, 100, 255},
	{251, 135, 97, 255},
	{254, 194, 135, 255},
	{252, 253, 191, 255},
}}

// categorical is the tab20-style palette used for level colors.
var categorical = []color.RGBA{
	{31, 119, 180, 255},
	{255, 127, 14, 255},
	{44, 160, 44, 255},
	{214, 39, 40, 255},
	{148, 103, 189, 255},
	{140, 86, 75, 255},
	{227, 119, 194, 255},
	{127, 127, 127, 255},
	{188, 189, 34, 255},
	{23, 190, 207, 255},
	{174, 199, 232, 255},
	{255, 187, 120, 255},
	{152, 223, 138, 255},
	{255, 152, 150, 255},
	{197, 176, 213, 255},
	{196, 156, 148, 255},
	{247, 182, 210, 255},
	{199, 199, 199, 255},
	{219, 219, 141, 255},
	{158, 218, 229, 255},
}

// CategoryColor returns the palette color for a level index, cycling
// past the palette size.
func CategoryColor(i int) color.RGBA {
	if i < 0 {
		i = 0
	}
	return categorical[i%len(categorical)]
}

// CategoryHex returns the palette color for a level index as a #rrggbb
// string, for JSON legends.
func CategoryHex(i int) string {
	c := CategoryColor(i)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
