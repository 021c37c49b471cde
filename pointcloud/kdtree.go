package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"

	"go.viam.com/textiles/utils"
)

// kdPoint is a cloud position remembering its index, since the tree reorders its input.
type kdPoint struct {
	p   r3.Vector
	idx int
}

func (kp kdPoint) coord(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return kp.p.X
	case 1:
		return kp.p.Y
	default:
		return kp.p.Z
	}
}

// Compare returns the signed distance of kp from the plane passing through c and
// perpendicular to the dimension d.
func (kp kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return kp.coord(d) - c.(kdPoint).coord(d)
}

func (kp kdPoint) Dims() int { return 3 }

// Distance returns the squared euclidean distance between kp and c.
func (kp kdPoint) Distance(c kdtree.Comparable) float64 {
	return kp.p.Sub(c.(kdPoint).p).Norm2()
}

type kdPoints []kdPoint

func (ps kdPoints) Index(i int) kdtree.Comparable         { return ps[i] }
func (ps kdPoints) Len() int                              { return len(ps) }
func (ps kdPoints) Slice(start, end int) kdtree.Interface { return ps[start:end] }
func (ps kdPoints) Pivot(d kdtree.Dim) int {
	return kdPlane{kdPoints: ps, Dim: d}.Pivot()
}

// kdPlane sorts points along a single dimension for pivot selection.
type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return p.kdPoints[i].coord(p.Dim) < p.kdPoints[j].coord(p.Dim)
}
func (p kdPlane) Swap(i, j int) { p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i] }
func (p kdPlane) Pivot() int    { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}

// KDTree is a spatial index over the positions of a cloud. It is immutable once built
// and safe for concurrent queries.
type KDTree struct {
	tree   *kdtree.Tree
	points []r3.Vector
}

// Neighbor is a query result: the cloud index of a point and its distance to the query.
type Neighbor struct {
	Index    int
	Distance float64
}

// NewKDTree builds a spatial index over the points of cloud. Non-finite points are never
// returned by queries.
func NewKDTree(cloud PointCloud) (*KDTree, error) {
	if cloud == nil || cloud.Size() == 0 {
		return nil, utils.NewEmptyInputError("kd-tree")
	}
	points := Vectors(cloud)
	nodes := make(kdPoints, 0, len(points))
	for i, p := range points {
		if IsFiniteVector(p) {
			nodes = append(nodes, kdPoint{p: p, idx: i})
		}
	}
	return &KDTree{tree: kdtree.New(nodes, false), points: points}, nil
}

// Size returns the number of points the tree was built from.
func (kd *KDTree) Size() int {
	return len(kd.points)
}

// Point returns the position of the point at index i.
func (kd *KDTree) Point(i int) r3.Vector {
	return kd.points[i]
}

// RadiusNeighbors returns every point within radius of p (inclusive), ordered by
// distance and then by index.
func (kd *KDTree) RadiusNeighbors(p r3.Vector, radius float64) []Neighbor {
	if radius < 0 {
		return nil
	}
	return kd.withinSquared(p, radius*radius)
}

func (kd *KDTree) withinSquared(p r3.Vector, radiusSq float64) []Neighbor {
	if kd.tree.Root == nil || !IsFiniteVector(p) {
		return nil
	}
	keeper := kdtree.NewDistKeeper(radiusSq)
	kd.tree.NearestSet(keeper, kdPoint{p: p, idx: -1})
	return collect(keeper.Heap)
}

// RadiusSearch returns the indices of every point within radius of p (inclusive) in
// ascending index order.
func (kd *KDTree) RadiusSearch(p r3.Vector, radius float64) []int {
	neighbors := kd.RadiusNeighbors(p, radius)
	out := make([]int, len(neighbors))
	for i, n := range neighbors {
		out[i] = n.Index
	}
	sort.Ints(out)
	return out
}

// KNearestNeighbors returns the k points closest to p ordered by distance. Ties at equal
// distance are resolved by index.
func (kd *KDTree) KNearestNeighbors(p r3.Vector, k int) []Neighbor {
	if k <= 0 || kd.tree.Root == nil || !IsFiniteVector(p) {
		return nil
	}
	keeper := kdtree.NewNKeeper(k)
	kd.tree.NearestSet(keeper, kdPoint{p: p, idx: -1})
	nearest := collect(keeper.Heap)
	if len(nearest) < k {
		return nearest
	}
	// The heap breaks distance ties arbitrarily, so gather everything out to the k-th
	// distance and cut after ordering by index.
	kth := kd.points[nearest[len(nearest)-1].Index].Sub(p).Norm2()
	all := kd.withinSquared(p, kth)
	if len(all) > k {
		all = all[:k]
	}
	return all
}

func collect(heap kdtree.Heap) []Neighbor {
	out := make([]Neighbor, 0, len(heap))
	for _, cd := range heap {
		if cd.Comparable == nil {
			continue
		}
		out = append(out, Neighbor{Index: cd.Comparable.(kdPoint).idx, Distance: math.Sqrt(cd.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out
}
