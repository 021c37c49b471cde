// Package features computes per-point surface features: normals and radius-based
// curvature descriptors.
package features

import (
	"context"

	"github.com/golang/geo/r3"
	"go.opencensus.io/trace"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/textiles/logging"
	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/utils"
)

// minNormalNeighbors is the smallest neighbourhood, the point included, that defines a normal.
const minNormalNeighbors = 3

// Normal is the estimated surface normal at a point. Curvature is the surface variation
// lambda_min / (lambda_0 + lambda_1 + lambda_2). A normal is not Valid when its
// neighbourhood is too small to define one.
type Normal struct {
	Vector    r3.Vector
	Curvature float64
	Valid     bool
}

// EstimateNormals computes, for every point of cloud, the smallest principal axis of the
// neighbours within radius, oriented towards viewpoint. The work is split over
// utils.ParallelFactor workers reading the shared tree; results are aligned with cloud.
func EstimateNormals(
	ctx context.Context,
	cloud pc.PointCloud,
	tree *pc.KDTree,
	radius float64,
	viewpoint r3.Vector,
	logger logging.Logger,
) ([]Normal, error) {
	ctx, span := trace.StartSpan(ctx, "features::EstimateNormals")
	defer span.End()

	if cloud == nil || cloud.Size() == 0 {
		return nil, utils.NewEmptyInputError("normal estimation")
	}
	if tree == nil {
		var err error
		if tree, err = pc.NewKDTree(cloud); err != nil {
			return nil, err
		}
	}

	normals := make([]Normal, cloud.Size())
	invalid := make([]int, utils.ParallelFactor)
	err := utils.GroupWorkParallel(
		ctx,
		cloud.Size(),
		func(numGroups int) {
			invalid = make([]int, numGroups)
		},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				p := cloud.At(workNum).P
				n := normalAt(tree, p, radius, viewpoint)
				if !n.Valid {
					invalid[groupNum]++
				}
				normals[workNum] = n
			}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range invalid {
		total += c
	}
	logger.Debugw("normals estimated", "points", cloud.Size(), "invalid", total, "radius", radius)
	return normals, nil
}

func normalAt(tree *pc.KDTree, p r3.Vector, radius float64, viewpoint r3.Vector) Normal {
	if !pc.IsFiniteVector(p) {
		return Normal{}
	}
	neighbors := tree.RadiusSearch(p, radius)
	if len(neighbors) < minNormalNeighbors {
		return Normal{}
	}
	cov, ok := neighborhoodCovariance(tree, neighbors)
	if !ok {
		return Normal{}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return Normal{}
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// eigenvalues are ascending, so column 0 is the normal
	normal := r3.Vector{X: vectors.At(0, 0), Y: vectors.At(1, 0), Z: vectors.At(2, 0)}.Normalize()
	if viewpoint.Sub(p).Dot(normal) < 0 {
		normal = normal.Mul(-1)
	}
	curvature := 0.0
	if sum := values[0] + values[1] + values[2]; sum > 0 {
		curvature = values[0] / sum
	}
	return Normal{Vector: normal, Curvature: curvature, Valid: true}
}

func neighborhoodCovariance(tree *pc.KDTree, neighbors []int) (*mat.SymDense, bool) {
	var mean r3.Vector
	for _, idx := range neighbors {
		mean = mean.Add(tree.Point(idx))
	}
	mean = mean.Mul(1 / float64(len(neighbors)))

	var xx, xy, xz, yy, yz, zz float64
	for _, idx := range neighbors {
		d := tree.Point(idx).Sub(mean)
		xx += d.X * d.X
		xy += d.X * d.Y
		xz += d.X * d.Z
		yy += d.Y * d.Y
		yz += d.Y * d.Z
		zz += d.Z * d.Z
	}
	n := float64(len(neighbors))
	cov := mat.NewSymDense(3, []float64{
		xx / n, xy / n, xz / n,
		xy / n, yy / n, yz / n,
		xz / n, yz / n, zz / n,
	})
	return cov, utils.IsFinite(xx + yy + zz)
}
