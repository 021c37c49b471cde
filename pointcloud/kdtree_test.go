package pointcloud

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/textiles/utils"
)

func randomCloud(n int, seed int64) PointCloud {
	r := rand.New(rand.NewSource(seed))
	points := make([]r3.Vector, n)
	for i := range points {
		points[i] = r3.Vector{X: r.Float64(), Y: r.Float64(), Z: r.Float64() * 0.2}
	}
	return NewFromVectors(points)
}

func bruteRadius(cloud PointCloud, q r3.Vector, radius float64) []int {
	var out []int
	for i := 0; i < cloud.Size(); i++ {
		if cloud.At(i).P.Sub(q).Norm2() <= radius*radius {
			out = append(out, i)
		}
	}
	return out
}

func TestKDTreeEmpty(t *testing.T) {
	_, err := NewKDTree(New(nil))
	test.That(t, err, test.ShouldNotBeNil)
	var emptyErr *utils.EmptyInputError
	test.That(t, errors.As(err, &emptyErr), test.ShouldBeTrue)
}

func TestKDTreeRadiusSearchMatchesBruteForce(t *testing.T) {
	cloud := randomCloud(2000, 3)
	tree, err := NewKDTree(cloud)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tree.Size(), test.ShouldEqual, 2000)

	r := rand.New(rand.NewSource(4))
	for i := 0; i < 50; i++ {
		q := r3.Vector{X: r.Float64(), Y: r.Float64(), Z: r.Float64() * 0.2}
		radius := 0.02 + 0.1*r.Float64()
		got := tree.RadiusSearch(q, radius)
		want := bruteRadius(cloud, q, radius)
		test.That(t, len(got), test.ShouldEqual, len(want))
		if len(want) > 0 {
			test.That(t, got, test.ShouldResemble, want)
		}
	}
}

func TestKDTreeRadiusInclusive(t *testing.T) {
	cloud := NewFromVectors([]r3.Vector{{X: 0}, {X: 0.5}, {X: 1}, {X: 1.5}})
	tree, err := NewKDTree(cloud)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tree.RadiusSearch(r3.Vector{}, 1), test.ShouldResemble, []int{0, 1, 2})
	neighbors := tree.RadiusNeighbors(r3.Vector{X: 1}, 0.5)
	test.That(t, len(neighbors), test.ShouldEqual, 3)
	test.That(t, neighbors[0], test.ShouldResemble, Neighbor{Index: 2, Distance: 0})
	test.That(t, tree.RadiusSearch(r3.Vector{}, -1), test.ShouldBeEmpty)
}

func TestKDTreeKNearest(t *testing.T) {
	cloud := randomCloud(500, 9)
	tree, err := NewKDTree(cloud)
	test.That(t, err, test.ShouldBeNil)

	q := r3.Vector{X: 0.5, Y: 0.5, Z: 0.1}
	got := tree.KNearestNeighbors(q, 10)
	test.That(t, len(got), test.ShouldEqual, 10)

	indices := make([]int, cloud.Size())
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return cloud.At(indices[a]).P.Sub(q).Norm2() < cloud.At(indices[b]).P.Sub(q).Norm2()
	})
	for i, n := range got {
		test.That(t, n.Index, test.ShouldEqual, indices[i])
		test.That(t, n.Distance, test.ShouldAlmostEqual, cloud.At(indices[i]).P.Sub(q).Norm())
	}

	test.That(t, len(tree.KNearestNeighbors(q, 1000)), test.ShouldEqual, 500)
	test.That(t, tree.KNearestNeighbors(q, 0), test.ShouldBeEmpty)
}

func TestKDTreeKNearestTies(t *testing.T) {
	// Four points equidistant from the origin.
	cloud := NewFromVectors([]r3.Vector{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {X: 5}})
	tree, err := NewKDTree(cloud)
	test.That(t, err, test.ShouldBeNil)
	got := tree.KNearestNeighbors(r3.Vector{}, 2)
	test.That(t, got, test.ShouldResemble, []Neighbor{{Index: 0, Distance: 1}, {Index: 1, Distance: 1}})
}

func TestKDTreeSkipsNonFinite(t *testing.T) {
	cloud := NewFromVectors([]r3.Vector{{X: 0}, {X: math.NaN()}, {X: 0.1}})
	tree, err := NewKDTree(cloud)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tree.RadiusSearch(r3.Vector{}, 1), test.ShouldResemble, []int{0, 2})
	test.That(t, tree.RadiusSearch(r3.Vector{X: math.NaN()}, 1), test.ShouldBeEmpty)
}
