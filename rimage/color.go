package rimage

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Color is an RGB colour with its HSV coordinates cached.
type Color struct {
	R, G, B uint8
	H, S, V float64
}

// NewColor creates a Color from 8 bit RGB components.
func NewColor(r, g, b uint8) Color {
	h, s, v := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hsv()
	return Color{R: r, G: g, B: b, H: h, S: s, V: v}
}

// NewColorFromHex parses a colour like "#ff0000".
func NewColorFromHex(hex string) (Color, error) {
	cc, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, errors.Wrapf(err, "bad color %q", hex)
	}
	r, g, b := cc.RGB255()
	return NewColor(r, g, b), nil
}

func (c Color) String() string {
	return fmt.Sprintf("%s (%3d,%4.2f,%4.2f)", c.Hex(), int(c.H), c.S, c.V)
}

// Hex returns the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%.2x%.2x%.2x", c.R, c.G, c.B)
}

// RGBA implements color.Color; colours are always opaque.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	a = 0xffff
	return
}

// DistanceLab returns the perceptual distance between two colours.
func (c Color) DistanceLab(b Color) float64 {
	return c.toColorful().DistanceLab(b.toColorful())
}

func (c Color) toColorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Some colors.
var (
	Red     = NewColor(255, 0, 0)
	Green   = NewColor(0, 255, 0)
	Blue    = NewColor(0, 0, 255)
	Yellow  = NewColor(255, 255, 0)
	Magenta = NewColor(255, 0, 255)
	White   = NewColor(255, 255, 255)
	Black   = NewColor(0, 0, 0)
)
