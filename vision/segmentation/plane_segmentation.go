// Package segmentation implements dominant plane removal and euclidean cluster extraction.
package segmentation

import (
	"context"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"go.opencensus.io/trace"

	"go.viam.com/textiles/logging"
	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/utils"
)

const (
	// maxSampleRetries bounds how many times a degenerate sample is redrawn within one iteration.
	maxSampleRetries = 100
	// collinearEpsilon is the smallest |sin| of the angle between sample edges forming a plane.
	collinearEpsilon = 1e-6
)

// PlaneModel is the plane A*x + B*y + C*z + D = 0 with unit normal (A, B, C).
type PlaneModel struct {
	A, B, C, D float64
}

// NewPlaneModelFromPoints returns the plane through the three points. The second return is
// false when the points are (nearly) collinear or coincident.
func NewPlaneModelFromPoints(p1, p2, p3 r3.Vector) (PlaneModel, bool) {
	// get 2 vectors that are going to define the plane
	v1 := p2.Sub(p1)
	v2 := p3.Sub(p1)
	// cross product to get the normal vector to the plane (v1, v2)
	cross := v1.Cross(v2)
	crossNorm := cross.Norm()
	if crossNorm == 0 || crossNorm <= collinearEpsilon*v1.Norm()*v2.Norm() {
		return PlaneModel{}, false
	}
	vec := cross.Mul(1 / crossNorm)
	// vec is orthogonal to p1, p2, p3 so any of them gives d
	return PlaneModel{A: vec.X, B: vec.Y, C: vec.Z, D: -vec.Dot(p1)}, true
}

// Normal returns the unit normal of the plane.
func (p PlaneModel) Normal() r3.Vector {
	return r3.Vector{X: p.A, Y: p.B, Z: p.C}
}

// Distance returns the signed distance from the plane to the point.
func (p PlaneModel) Distance(pt r3.Vector) float64 {
	return p.A*pt.X + p.B*pt.Y + p.C*pt.Z + p.D
}

// PlaneSegmentation is the split of a cloud by a plane. Plane is nil when no plane was found,
// in which case Outliers is the input cloud.
type PlaneSegmentation struct {
	Plane         *PlaneModel
	InlierIndices []int
	Inliers       pc.PointCloud
	Outliers      pc.PointCloud

	// OutlierIndices maps each outlier back to its index in the input cloud.
	OutlierIndices []int
}

// FitPlane finds the plane with the most points within threshold using random sample
// consensus. The first model reaching the maximum inlier count is kept.
// It returns the model and its inlier count, or a DegenerateModelError if no sample ever
// defined a plane.
func FitPlane(ctx context.Context, pts []r3.Vector, nIterations int, threshold float64, r *rand.Rand) (PlaneModel, int, error) {
	if len(pts) < 3 {
		return PlaneModel{}, 0, utils.NewDegenerateModelError("plane", "need at least 3 points, got %d", len(pts))
	}
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	nPoints := len(pts)

	var bestEquation PlaneModel
	bestInliers := 0
	found := false

	for i := 0; i < nIterations; i++ {
		if err := ctx.Err(); err != nil {
			return PlaneModel{}, 0, err
		}
		currentEquation, ok := samplePlane(pts, nPoints, r)
		if !ok {
			continue
		}
		found = true

		currentInliers := 0
		for _, pt := range pts {
			if math.Abs(currentEquation.Distance(pt)) < threshold {
				currentInliers++
			}
		}
		// if the current plane contains more points than the previously stored one, save this one as the biggest plane
		if currentInliers > bestInliers {
			bestEquation = currentEquation
			bestInliers = currentInliers
		}
	}
	if !found {
		return PlaneModel{}, 0, utils.NewDegenerateModelError("plane", "no non-collinear sample in %d iterations", nIterations)
	}
	return bestEquation, bestInliers, nil
}

// samplePlane draws three distinct points until they define a plane or the retries run out.
func samplePlane(pts []r3.Vector, nPoints int, r *rand.Rand) (PlaneModel, bool) {
	for try := 0; try < maxSampleRetries; try++ {
		n1 := utils.SampleRandomIntRange(0, nPoints-1, r)
		n2 := utils.SampleRandomIntRange(0, nPoints-1, r)
		n3 := utils.SampleRandomIntRange(0, nPoints-1, r)
		if n1 == n2 || n1 == n3 || n2 == n3 {
			continue
		}
		if plane, ok := NewPlaneModelFromPoints(pts[n1], pts[n2], pts[n3]); ok {
			return plane, true
		}
	}
	return PlaneModel{}, false
}

// SegmentPlane removes the dominant plane of the cloud, returning the plane's inliers and
// the remaining points. nIterations is the RANSAC budget and threshold the maximum distance
// to the plane for a point to belong to it.
// A cloud with no recoverable plane is not an error: the result has a nil Plane and the input
// as Outliers.
func SegmentPlane(
	ctx context.Context,
	cloud pc.PointCloud,
	nIterations int,
	threshold float64,
	r *rand.Rand,
	logger logging.Logger,
) (*PlaneSegmentation, error) {
	ctx, span := trace.StartSpan(ctx, "segmentation::SegmentPlane")
	defer span.End()

	if cloud == nil || cloud.Size() == 0 {
		return nil, utils.NewEmptyInputError("plane segmentation")
	}
	pts := pc.Vectors(cloud)
	plane, nInliers, err := FitPlane(ctx, pts, nIterations, threshold, r)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Debugw("no plane found, keeping all points", "reason", err.Error())
		return noPlane(cloud), nil
	}
	if nInliers == 0 {
		logger.Debug("best plane has no inliers, keeping all points")
		return noPlane(cloud), nil
	}
	seg := ThresholdByPlane(cloud, plane, threshold)
	logger.Debugw("plane segmented",
		"a", plane.A, "b", plane.B, "c", plane.C, "d", plane.D,
		"inliers", seg.Inliers.Size(), "outliers", seg.Outliers.Size())
	return seg, nil
}

// ThresholdByPlane splits cloud into the points strictly within threshold of plane and the rest.
func ThresholdByPlane(cloud pc.PointCloud, plane PlaneModel, threshold float64) *PlaneSegmentation {
	var inliers, outliers []pc.PointAndData
	var inlierIdx, outlierIdx []int
	cloud.Iterate(0, 0, func(i int, p r3.Vector, d pc.Data) bool {
		if math.Abs(plane.Distance(p)) < threshold {
			inliers = append(inliers, pc.PointAndData{P: p, D: d})
			inlierIdx = append(inlierIdx, i)
		} else {
			outliers = append(outliers, pc.PointAndData{P: p, D: d})
			outlierIdx = append(outlierIdx, i)
		}
		return true
	})
	planeCopy := plane
	return &PlaneSegmentation{
		Plane:          &planeCopy,
		InlierIndices:  inlierIdx,
		Inliers:        pc.New(inliers),
		Outliers:       pc.New(outliers),
		OutlierIndices: outlierIdx,
	}
}

func noPlane(cloud pc.PointCloud) *PlaneSegmentation {
	all := make([]int, cloud.Size())
	for i := range all {
		all[i] = i
	}
	return &PlaneSegmentation{
		Inliers:        pc.New(nil),
		Outliers:       cloud,
		OutlierIndices: all,
	}
}
