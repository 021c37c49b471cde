package pointcloud

import (
	"github.com/golang/geo/r3"
)

// basicPointCloud is the basic implementation of the PointCloud interface backed by
// an ordered slice of points.
type basicPointCloud struct {
	points []PointAndData
	meta   MetaData
	dense  bool
}

// New returns a PointCloud holding a copy of the given points in order. Nil data is
// replaced with basic data.
func New(points []PointAndData) PointCloud {
	cloud := &basicPointCloud{
		points: make([]PointAndData, len(points)),
		meta:   NewMetaData(),
		dense:  true,
	}
	for i, pd := range points {
		if pd.D == nil {
			pd.D = NewBasicData()
		}
		cloud.points[i] = pd
		cloud.meta.Merge(pd.P, pd.D)
		if !IsFiniteVector(pd.P) {
			cloud.dense = false
		}
	}
	return cloud
}

// NewFromVectors returns a PointCloud of uncoloured points.
func NewFromVectors(vs []r3.Vector) PointCloud {
	points := make([]PointAndData, len(vs))
	for i, v := range vs {
		points[i] = PointAndData{P: v}
	}
	return New(points)
}

func (cloud *basicPointCloud) Size() int {
	return len(cloud.points)
}

func (cloud *basicPointCloud) MetaData() MetaData {
	return cloud.meta
}

func (cloud *basicPointCloud) At(i int) PointAndData {
	return cloud.points[i]
}

func (cloud *basicPointCloud) Dense() bool {
	return cloud.dense
}

func (cloud *basicPointCloud) Iterate(numBatches, myBatch int, fn func(i int, p r3.Vector, d Data) bool) {
	from, to := 0, len(cloud.points)
	if numBatches > 0 {
		batchSize := (len(cloud.points) + numBatches - 1) / numBatches
		from = myBatch * batchSize
		to = from + batchSize
		if to > len(cloud.points) {
			to = len(cloud.points)
		}
	}
	for i := from; i < to; i++ {
		if !fn(i, cloud.points[i].P, cloud.points[i].D) {
			return
		}
	}
}
