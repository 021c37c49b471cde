package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Transformer maps a point into another frame.
type Transformer interface {
	Apply(p r3.Vector) r3.Vector
}

// RemoveNaN returns a cloud without the non-finite points of cloud, along with the
// original index of every kept point.
func RemoveNaN(cloud PointCloud) (PointCloud, []int) {
	kept := make([]PointAndData, 0, cloud.Size())
	indices := make([]int, 0, cloud.Size())
	cloud.Iterate(0, 0, func(i int, p r3.Vector, d Data) bool {
		if IsFiniteVector(p) {
			kept = append(kept, PointAndData{P: p, D: d})
			indices = append(indices, i)
		}
		return true
	})
	return New(kept), indices
}

// Subset returns a new cloud with the points at the given indices, in the given order.
func Subset(cloud PointCloud, indices []int) (PointCloud, error) {
	points := make([]PointAndData, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= cloud.Size() {
			return nil, errors.Errorf("subset index %d out of range [0, %d)", idx, cloud.Size())
		}
		points = append(points, cloud.At(idx))
	}
	return New(points), nil
}

// ApplyTransform returns a new cloud with every point mapped through t. Data is carried over.
func ApplyTransform(cloud PointCloud, t Transformer) PointCloud {
	points := make([]PointAndData, 0, cloud.Size())
	cloud.Iterate(0, 0, func(_ int, p r3.Vector, d Data) bool {
		points = append(points, PointAndData{P: t.Apply(p), D: d})
		return true
	})
	return New(points)
}
