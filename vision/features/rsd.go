package features

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/textiles/logging"
	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/utils"
)

// rsdDistanceBins is the number of distance subdivisions of the curvature neighbourhood.
const rsdDistanceBins = 5

// RadiiDescriptor holds the minimum and maximum local radius of curvature at a point.
// 0 <= RMin <= RMax <= plane radius; a flat neighbourhood has both equal to the plane radius.
type RadiiDescriptor struct {
	RMin, RMax float64
}

// RSDConfig are the radii used by EstimateRSD.
type RSDConfig struct {
	NormalRadius    float64
	CurvatureRadius float64
	PlaneRadius     float64
}

// Validate checks that the curvature neighbourhood is larger than the normal neighbourhood.
func (cfg RSDConfig) Validate() error {
	if cfg.CurvatureRadius <= cfg.NormalRadius {
		return utils.NewDegenerateModelError("radius descriptor",
			"curvature radius %v must be greater than normal radius %v", cfg.CurvatureRadius, cfg.NormalRadius)
	}
	if cfg.PlaneRadius <= 0 {
		return utils.NewDegenerateModelError("radius descriptor", "plane radius must be positive, got %v", cfg.PlaneRadius)
	}
	return nil
}

// EstimateRSD computes a radius-based surface descriptor for every point of cloud from the
// angles between its normal and the normals of neighbours within cfg.CurvatureRadius.
// normals must be aligned with cloud. Points without a valid normal are treated as flat.
func EstimateRSD(
	ctx context.Context,
	cloud pc.PointCloud,
	tree *pc.KDTree,
	normals []Normal,
	cfg RSDConfig,
	logger logging.Logger,
) ([]RadiiDescriptor, error) {
	ctx, span := trace.StartSpan(ctx, "features::EstimateRSD")
	defer span.End()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cloud == nil || cloud.Size() == 0 {
		return nil, utils.NewEmptyInputError("radius descriptor")
	}
	if len(normals) != cloud.Size() {
		return nil, errors.Errorf("got %d normals for %d points", len(normals), cloud.Size())
	}
	if tree == nil {
		var err error
		if tree, err = pc.NewKDTree(cloud); err != nil {
			return nil, err
		}
	}

	out := make([]RadiiDescriptor, cloud.Size())
	flat := 0
	for i := 0; i < cloud.Size(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = radiiAt(tree, normals, i, cfg)
		if out[i].RMin == cfg.PlaneRadius {
			flat++
		}
	}
	logger.Debugw("radius descriptors estimated", "points", len(out), "flat", flat)
	return out, nil
}

func radiiAt(tree *pc.KDTree, normals []Normal, i int, cfg RSDConfig) RadiiDescriptor {
	flat := RadiiDescriptor{RMin: cfg.PlaneRadius, RMax: cfg.PlaneRadius}
	if !normals[i].Valid {
		return flat
	}
	p := tree.Point(i)
	ni := normals[i].Vector
	maxDist := cfg.CurvatureRadius

	// The first bin is anchored at zero angle so the fit passes near the point itself.
	var minAngle, maxAngle [rsdDistanceBins]float64
	for b := 1; b < rsdDistanceBins; b++ {
		minAngle[b] = math.Inf(1)
		maxAngle[b] = math.Inf(-1)
	}

	for _, j := range tree.RadiusSearch(p, maxDist) {
		if j == i || !normals[j].Valid {
			continue
		}
		dist := tree.Point(j).Sub(p).Norm()
		if dist > maxDist {
			continue
		}
		angle := math.Acos(utils.Clamp(ni.Dot(normals[j].Vector), -1, 1))
		if angle > math.Pi/2 {
			angle = math.Pi - angle
		}
		bin := utils.MinInt(int(math.Floor(rsdDistanceBins*dist/maxDist)), rsdDistanceBins-1)
		minAngle[bin] = math.Min(minAngle[bin], angle)
		maxAngle[bin] = math.Max(maxAngle[bin], angle)
	}

	// Least squares of distance ~ radius * angle through the origin, one line through the
	// minimum angles and one through the maximum angles, using bin centre distances.
	var minSq, minD, maxSq, maxD float64
	for b := 0; b < rsdDistanceBins; b++ {
		if maxAngle[b] < 0 {
			continue
		}
		f := (float64(b) + 0.5) * maxDist / rsdDistanceBins
		minSq += minAngle[b] * minAngle[b]
		minD += minAngle[b] * f
		maxSq += maxAngle[b] * maxAngle[b]
		maxD += maxAngle[b] * f
	}
	rMin := fitRadius(minD, minSq, cfg.PlaneRadius)
	rMax := fitRadius(maxD, maxSq, cfg.PlaneRadius)
	if rMin > rMax {
		rMin, rMax = rMax, rMin
	}
	return RadiiDescriptor{RMin: rMin, RMax: rMax}
}

func fitRadius(num, den, planeRadius float64) float64 {
	if den == 0 {
		return planeRadius
	}
	r := num / den
	if r > planeRadius || !utils.IsFinite(r) {
		return planeRadius
	}
	return r
}
