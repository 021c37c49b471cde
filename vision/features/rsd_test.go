package features

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/textiles/logging"
	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/utils"
)

var defaultRSD = RSDConfig{NormalRadius: 0.05, CurvatureRadius: 0.07, PlaneRadius: 0.2}

func TestRSDFlatSurface(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cloud := pc.NewFromVectors(pc.MakeGridPlane(30, 30, 0.5, 0.5, 0))
	tree, err := pc.NewKDTree(cloud)
	test.That(t, err, test.ShouldBeNil)

	normals, err := EstimateNormals(context.Background(), cloud, tree, defaultRSD.NormalRadius, r3.Vector{Z: 2}, logger)
	test.That(t, err, test.ShouldBeNil)
	radii, err := EstimateRSD(context.Background(), cloud, tree, normals, defaultRSD, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(radii), test.ShouldEqual, cloud.Size())
	for _, r := range radii {
		test.That(t, r, test.ShouldResemble, RadiiDescriptor{RMin: 0.2, RMax: 0.2})
	}
}

func TestRSDSphereIsCurved(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cloud := fibonacciSphere(4000, 0.05)
	tree, err := pc.NewKDTree(cloud)
	test.That(t, err, test.ShouldBeNil)

	cfg := RSDConfig{NormalRadius: 0.02, CurvatureRadius: 0.03, PlaneRadius: 0.2}
	normals, err := EstimateNormals(context.Background(), cloud, tree, cfg.NormalRadius, r3.Vector{}, logger)
	test.That(t, err, test.ShouldBeNil)
	radii, err := EstimateRSD(context.Background(), cloud, tree, normals, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	for _, r := range radii {
		test.That(t, r.RMin, test.ShouldBeGreaterThanOrEqualTo, 0.0)
		test.That(t, r.RMin, test.ShouldBeLessThanOrEqualTo, r.RMax)
		test.That(t, r.RMax, test.ShouldBeLessThan, 0.1)
	}
}

func TestRSDBounds(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cloud := pc.MakeTableScene()
	tree, err := pc.NewKDTree(cloud)
	test.That(t, err, test.ShouldBeNil)
	normals, err := EstimateNormals(context.Background(), cloud, tree, defaultRSD.NormalRadius, r3.Vector{Z: 2}, logger)
	test.That(t, err, test.ShouldBeNil)
	radii, err := EstimateRSD(context.Background(), cloud, tree, normals, defaultRSD, logger)
	test.That(t, err, test.ShouldBeNil)
	for _, r := range radii {
		test.That(t, r.RMin, test.ShouldBeGreaterThanOrEqualTo, 0.0)
		test.That(t, r.RMin, test.ShouldBeLessThanOrEqualTo, r.RMax)
		test.That(t, r.RMax, test.ShouldBeLessThanOrEqualTo, defaultRSD.PlaneRadius)
	}
}

func TestRSDInvalidNormalIsFlat(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cloud := pc.NewFromVectors([]r3.Vector{{}, {X: 1}})
	normals := []Normal{{}, {}}
	radii, err := EstimateRSD(context.Background(), cloud, nil, normals, defaultRSD, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, radii, test.ShouldResemble, []RadiiDescriptor{{0.2, 0.2}, {0.2, 0.2}})
}

func TestRSDRadiusOrdering(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cloud := pc.NewFromVectors([]r3.Vector{{}})
	for _, cfg := range []RSDConfig{
		{NormalRadius: 0.07, CurvatureRadius: 0.07, PlaneRadius: 0.2},
		{NormalRadius: 0.08, CurvatureRadius: 0.07, PlaneRadius: 0.2},
	} {
		_, err := EstimateRSD(context.Background(), cloud, nil, []Normal{{}}, cfg, logger)
		var degenerate *utils.DegenerateModelError
		test.That(t, errors.As(err, &degenerate), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "curvature radius")
	}

	_, err := EstimateRSD(context.Background(), cloud, nil, nil, defaultRSD, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = EstimateRSD(context.Background(), pc.New(nil), nil, nil, defaultRSD, logger)
	var emptyErr *utils.EmptyInputError
	test.That(t, errors.As(err, &emptyErr), test.ShouldBeTrue)
}
