package pointcloud

import (
	"github.com/golang/geo/r3"
)

// MakeGridPlane returns an nx by ny lattice of points spanning [0, width] x [0, height]
// at the given height z, in row-major order.
func MakeGridPlane(nx, ny int, width, height, z float64) []r3.Vector {
	out := make([]r3.Vector, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			out = append(out, r3.Vector{X: latticeCoord(width, i, nx), Y: latticeCoord(height, j, ny), Z: z})
		}
	}
	return out
}

func latticeCoord(span float64, i, n int) float64 {
	if n < 2 {
		return 0
	}
	return span * float64(i) / float64(n-1)
}

// MakeLatticeBox returns an nx by ny by nz lattice of points with the given spacing whose
// lowest corner is at origin.
func MakeLatticeBox(origin r3.Vector, nx, ny, nz int, spacing float64) []r3.Vector {
	out := make([]r3.Vector, 0, nx*ny*nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				out = append(out, origin.Add(r3.Vector{
					X: spacing * float64(i),
					Y: spacing * float64(j),
					Z: spacing * float64(k),
				}))
			}
		}
	}
	return out
}

// MakeTableScene returns a 40x25 table lattice over the unit square at z=0 followed by a
// 5x5x8 lattice block standing on it between z=0.1 and z=0.2. The first 1000 points are
// the table.
func MakeTableScene() PointCloud {
	points := MakeGridPlane(40, 25, 1, 1, 0)
	const spacing = 0.1 / 7
	points = append(points, MakeLatticeBox(r3.Vector{X: 0.45, Y: 0.45, Z: 0.1}, 5, 5, 8, spacing)...)
	return NewFromVectors(points)
}
