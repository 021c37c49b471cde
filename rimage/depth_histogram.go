// Package rimage projects clouds into images: depth histograms and their previews.
package rimage

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/textiles/logging"
	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/utils"
)

// DepthImage is a square grid of depths over the XY extent of a cloud. Rows index y and
// columns index x, starting from the corner returned by Origin.
type DepthImage struct {
	resolution int
	cellSize   float64
	originX    float64
	originY    float64

	data   []float64
	hits   []int
	filled []bool
}

// Resolution returns the number of rows, which is also the number of columns.
func (d *DepthImage) Resolution() int {
	return d.resolution
}

// CellSize returns the side length of a cell in cloud units.
func (d *DepthImage) CellSize() float64 {
	return d.cellSize
}

// Origin returns the x, y corner of cell (0, 0).
func (d *DepthImage) Origin() (float64, float64) {
	return d.originX, d.originY
}

// At returns the depth at row, col. Cells no point fell into hold 0 unless filled.
func (d *DepthImage) At(row, col int) float64 {
	return d.data[row*d.resolution+col]
}

// Hits returns how many points fell into the cell.
func (d *DepthImage) Hits(row, col int) int {
	return d.hits[row*d.resolution+col]
}

// Filled reports whether the cell's depth came from upsampling.
func (d *DepthImage) Filled(row, col int) bool {
	return d.filled[row*d.resolution+col]
}

// Occupied returns the number of cells at least one point fell into.
func (d *DepthImage) Occupied() int {
	n := 0
	for _, h := range d.hits {
		if h > 0 {
			n++
		}
	}
	return n
}

// Rows returns a copy of the depths as a row-major matrix.
func (d *DepthImage) Rows() [][]float64 {
	out := make([][]float64, d.resolution)
	for r := range out {
		out[r] = append([]float64(nil), d.data[r*d.resolution:(r+1)*d.resolution]...)
	}
	return out
}

// Cell returns the row and column a point projects to, clamped to the grid.
func (d *DepthImage) Cell(p r3.Vector) (int, int) {
	col := int(math.Floor((p.X - d.originX) / d.cellSize))
	row := int(math.Floor((p.Y - d.originY) / d.cellSize))
	return clampIndex(row, d.resolution), clampIndex(col, d.resolution)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// ProjectDepthHistogram projects cloud onto a resolution x resolution grid centred on its
// XY extent with square cells. Each cell keeps the highest z of the points falling in it.
// With upsampling, empty cells within a bounded distance of a populated cell take the
// depth of the nearest one.
func ProjectDepthHistogram(cloud pc.PointCloud, resolution int, upsampling bool, logger logging.Logger) (*DepthImage, error) {
	if cloud == nil || cloud.Size() == 0 {
		return nil, utils.NewEmptyInputError("depth histogram")
	}
	if resolution <= 0 {
		return nil, utils.NewDegenerateModelError("depth histogram", "resolution must be positive, got %d", resolution)
	}

	meta := cloud.MetaData()
	if meta.MinX > meta.MaxX {
		return nil, utils.NewEmptyInputError("depth histogram")
	}
	span := math.Max(meta.MaxX-meta.MinX, meta.MaxY-meta.MinY)
	cellSize := span / float64(resolution)
	if cellSize == 0 {
		cellSize = 1
	}
	half := cellSize * float64(resolution) / 2
	img := &DepthImage{
		resolution: resolution,
		cellSize:   cellSize,
		originX:    (meta.MinX+meta.MaxX)/2 - half,
		originY:    (meta.MinY+meta.MaxY)/2 - half,
		data:       make([]float64, resolution*resolution),
		hits:       make([]int, resolution*resolution),
		filled:     make([]bool, resolution*resolution),
	}

	cloud.Iterate(0, 0, func(_ int, p r3.Vector, _ pc.Data) bool {
		if !pc.IsFiniteVector(p) {
			return true
		}
		row, col := img.Cell(p)
		idx := row*resolution + col
		if img.hits[idx] == 0 || p.Z > img.data[idx] {
			img.data[idx] = p.Z
		}
		img.hits[idx]++
		return true
	})

	occupied := img.Occupied()
	filled := 0
	if upsampling {
		filled = img.fillNearest(fillRadius(resolution, occupied))
	}
	logger.Debugw("depth histogram projected",
		"resolution", resolution, "cell_size", cellSize, "occupied", occupied, "filled", filled)
	return img, nil
}

// fillRadius is the BFS depth, in cells, up to which empty cells are filled. It is the
// spacing populated cells would have if spread evenly over the grid.
func fillRadius(resolution, occupied int) int {
	if occupied == 0 {
		return 0
	}
	r := int(math.Ceil(float64(resolution) / math.Sqrt(float64(occupied))))
	return utils.MaxInt(r, 1)
}

// fillNearest runs a multi-source breadth first search over the 8-connected grid from
// every populated cell in row-major order. Each empty cell reached within maxSteps takes the
// depth of the cell that reached it first. It returns the number of cells filled.
func (d *DepthImage) fillNearest(maxSteps int) int {
	n := d.resolution
	steps := make([]int, n*n)
	queue := make([]int, 0, n*n)
	for idx, h := range d.hits {
		if h > 0 {
			queue = append(queue, idx)
		} else {
			steps[idx] = -1
		}
	}

	filled := 0
	for head := 0; head < len(queue); head++ {
		idx := queue[head]
		if steps[idx] >= maxSteps {
			continue
		}
		row, col := idx/n, idx%n
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				r, c := row+dr, col+dc
				if (dr == 0 && dc == 0) || r < 0 || r >= n || c < 0 || c >= n {
					continue
				}
				next := r*n + c
				if steps[next] != -1 {
					continue
				}
				steps[next] = steps[idx] + 1
				d.data[next] = d.data[idx]
				d.filled[next] = true
				filled++
				queue = append(queue, next)
			}
		}
	}
	return filled
}
