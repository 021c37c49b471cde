package segmentation

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/textiles/logging"
	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/utils"
)

func threeBlobs() pc.PointCloud {
	points := pc.MakeLatticeBox(r3.Vector{}, 3, 3, 3, 0.01)
	points = append(points, pc.MakeLatticeBox(r3.Vector{X: 1}, 4, 4, 4, 0.01)...)
	points = append(points, r3.Vector{X: 5, Y: 5, Z: 5})
	return pc.NewFromVectors(points)
}

func TestExtractClusters(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cloud := threeBlobs()

	clusters, err := ExtractClusters(context.Background(), cloud, nil, ClusterConfig{Tolerance: 0.015, MinSize: 1}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(clusters), test.ShouldEqual, 3)
	test.That(t, len(clusters[0]), test.ShouldEqual, 27)
	test.That(t, len(clusters[1]), test.ShouldEqual, 64)
	test.That(t, clusters[2], test.ShouldResemble, ClusterIndices{91})
	for i, idx := range clusters[1] {
		test.That(t, idx, test.ShouldEqual, 27+i)
	}

	clusters, err = ExtractClusters(context.Background(), cloud, nil, ClusterConfig{Tolerance: 0.015, MinSize: 2}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(clusters), test.ShouldEqual, 2)

	clusters, err = ExtractClusters(context.Background(), cloud, nil, ClusterConfig{Tolerance: 0.015, MinSize: 2, MaxSize: 30}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(clusters), test.ShouldEqual, 1)
	test.That(t, len(clusters[0]), test.ShouldEqual, 27)

	// Too small a tolerance leaves every point alone.
	clusters, err = ExtractClusters(context.Background(), cloud, nil, ClusterConfig{Tolerance: 0.005, MinSize: 2}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, clusters, test.ShouldBeEmpty)
}

func TestExtractClustersDisjoint(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r := rand.New(rand.NewSource(5))
	points := make([]r3.Vector, 1500)
	for i := range points {
		points[i] = r3.Vector{X: r.Float64(), Y: r.Float64(), Z: 0.05 * r.Float64()}
	}
	cloud := pc.NewFromVectors(points)
	tree, err := pc.NewKDTree(cloud)
	test.That(t, err, test.ShouldBeNil)

	clusters, err := ExtractClusters(context.Background(), cloud, tree, ClusterConfig{Tolerance: 0.03, MinSize: 5}, logger)
	test.That(t, err, test.ShouldBeNil)
	owner := map[int]int{}
	for ci, c := range clusters {
		test.That(t, len(c), test.ShouldBeGreaterThanOrEqualTo, 5)
		for j, idx := range c {
			if j > 0 {
				test.That(t, idx, test.ShouldBeGreaterThan, c[j-1])
			}
			_, dup := owner[idx]
			test.That(t, dup, test.ShouldBeFalse)
			owner[idx] = ci
		}
	}

	// Every pair of points closer than the tolerance shares a cluster.
	for idx, ci := range owner {
		for _, nb := range tree.RadiusSearch(cloud.At(idx).P, 0.03) {
			test.That(t, owner[nb], test.ShouldEqual, ci)
		}
	}
}

func TestExtractClustersEmpty(t *testing.T) {
	clusters, err := ExtractClusters(context.Background(), pc.New(nil), nil, ClusterConfig{Tolerance: 0.1, MinSize: 1}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, clusters, test.ShouldBeEmpty)

	_, err = SelectLargestCluster(clusters, 100)
	var noCluster *utils.NoClusterFoundError
	test.That(t, errors.As(err, &noCluster), test.ShouldBeTrue)
	test.That(t, noCluster.MinClusterSize, test.ShouldEqual, 100)
}

func TestSelectLargestCluster(t *testing.T) {
	clusters := []ClusterIndices{{0, 1}, {2, 3, 4}, {5, 6, 7}, {8}}
	best, err := SelectLargestCluster(clusters, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, best, test.ShouldEqual, 1)
}

func TestTableSceneGarmentCluster(t *testing.T) {
	logger := logging.NewTestLogger(t)
	seg, err := SegmentPlane(context.Background(), pc.MakeTableScene(), 1000, 0.03, nil, logger)
	test.That(t, err, test.ShouldBeNil)

	clusters, err := ExtractClusters(context.Background(), seg.Outliers, nil, ClusterConfig{Tolerance: 0.02, MinSize: 50}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(clusters), test.ShouldEqual, 1)
	best, err := SelectLargestCluster(clusters, 50)
	test.That(t, err, test.ShouldBeNil)
	garment, err := ClusterCloud(seg.Outliers, clusters[best])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, garment.Size(), test.ShouldEqual, 200)
	test.That(t, garment.MetaData().MinZ, test.ShouldAlmostEqual, 0.1)
}
