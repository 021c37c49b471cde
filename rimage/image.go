package rimage

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
)

// ToGray16 renders the depth image as a grayscale preview. Cells without depth are black;
// the others are scaled linearly so the lowest depth maps to 1 and the highest to 0xffff.
// Image row 0 is the grid row with the largest y.
func (d *DepthImage) ToGray16() *image.Gray16 {
	n := d.resolution
	img := image.NewGray16(image.Rect(0, 0, n, n))
	lo, hi := math.Inf(1), math.Inf(-1)
	for idx, v := range d.data {
		if d.hits[idx] > 0 || d.filled[idx] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo > hi {
		return img
	}
	scale := 0.0
	if hi > lo {
		scale = float64(math.MaxUint16-1) / (hi - lo)
	}
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			idx := row*n + col
			if d.hits[idx] == 0 && !d.filled[idx] {
				continue
			}
			v := 1 + uint16(math.Round((d.data[idx]-lo)*scale))
			img.SetGray16(col, n-1-row, color.Gray16{Y: v})
		}
	}
	return img
}

// WritePPM encodes img as a binary PPM.
func WritePPM(w io.Writer, img image.Image) error {
	if err := ppm.Encode(w, img); err != nil {
		return errors.Wrap(err, "cannot encode ppm")
	}
	return nil
}
