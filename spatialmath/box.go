package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/textiles/utils"
)

// Ordered list of unit box vertices, scaled by the half size.
var boxVertices = [8]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// BoxEdges lists the 12 edges of a box as pairs of indices into Vertices.
var BoxEdges = [12][2]int{
	{0, 1}, {0, 2}, {0, 4},
	{1, 3}, {1, 5},
	{2, 3}, {2, 6},
	{3, 7},
	{4, 5}, {4, 6},
	{5, 7},
	{6, 7},
}

// OrientedBoundingBox is the principal-axis box of a point set. Rotation columns are the
// axes ordered from largest to smallest spread and Extents are the full side lengths along
// those axes.
type OrientedBoundingBox struct {
	Center      r3.Vector
	Rotation    RotationMatrix
	Extents     r3.Vector
	Eigenvalues [3]float64

	// Axis-aligned bounds of the same points.
	AABBMin, AABBMax r3.Vector
}

// ComputeOBB fits an oriented bounding box to points by principal component analysis.
func ComputeOBB(points []r3.Vector) (*OrientedBoundingBox, error) {
	if len(points) == 0 {
		return nil, utils.NewEmptyInputError("oriented bounding box")
	}

	n := len(points)
	data := mat.NewDense(n, 3, nil)
	var mean r3.Vector
	aabbMin := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	aabbMax := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i, p := range points {
		data.Set(i, 0, p.X)
		data.Set(i, 1, p.Y)
		data.Set(i, 2, p.Z)
		mean = mean.Add(p)
		aabbMin = r3.Vector{X: math.Min(aabbMin.X, p.X), Y: math.Min(aabbMin.Y, p.Y), Z: math.Min(aabbMin.Z, p.Z)}
		aabbMax = r3.Vector{X: math.Max(aabbMax.X, p.X), Y: math.Max(aabbMax.Y, p.Y), Z: math.Max(aabbMax.Z, p.Z)}
	}
	mean = mean.Mul(1 / float64(n))

	cov := mat.NewSymDense(3, nil)
	if n > 1 {
		stat.CovarianceMatrix(cov, data, nil)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, utils.NewDegenerateModelError("oriented bounding box", "eigen decomposition of covariance failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Eigenvalues come back ascending; the box axes run major to minor.
	column := func(j int) r3.Vector {
		return r3.Vector{X: vectors.At(0, j), Y: vectors.At(1, j), Z: vectors.At(2, j)}
	}
	raw := NewRotationMatrixFromColumns(column(2), column(1), column(0))
	rot, err := raw.Orthonormalize()
	if err != nil {
		return nil, utils.NewDegenerateModelError("oriented bounding box", "%v", err)
	}

	lo := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range points {
		q := rot.MulT(p.Sub(mean))
		lo = r3.Vector{X: math.Min(lo.X, q.X), Y: math.Min(lo.Y, q.Y), Z: math.Min(lo.Z, q.Z)}
		hi = r3.Vector{X: math.Max(hi.X, q.X), Y: math.Max(hi.Y, q.Y), Z: math.Max(hi.Z, q.Z)}
	}

	return &OrientedBoundingBox{
		Center:      mean.Add(rot.Mul(lo.Add(hi).Mul(0.5))),
		Rotation:    *rot,
		Extents:     hi.Sub(lo),
		Eigenvalues: [3]float64{values[2], values[1], values[0]},
		AABBMin:     aabbMin,
		AABBMax:     aabbMax,
	}, nil
}

// NormalizingTransform returns the transform taking points into the box frame, where the
// box is centred at the origin and its axes align with x, y and z.
func (obb *OrientedBoundingBox) NormalizingTransform() *Transform {
	rt := obb.Rotation.Transpose()
	return NewTransform(rt, rt.Mul(obb.Center).Mul(-1))
}

// HalfSize returns half the extents.
func (obb *OrientedBoundingBox) HalfSize() r3.Vector {
	return obb.Extents.Mul(0.5)
}

// Vertices returns the 8 corners of the box in the input frame.
func (obb *OrientedBoundingBox) Vertices() [8]r3.Vector {
	var out [8]r3.Vector
	half := obb.HalfSize()
	for i, v := range boxVertices {
		local := r3.Vector{X: v.X * half.X, Y: v.Y * half.Y, Z: v.Z * half.Z}
		out[i] = obb.Rotation.Mul(local).Add(obb.Center)
	}
	return out
}

// AlignMinorAxis returns a copy of the box whose minor axis has a non-negative component
// along up. When the minor axis is flipped the middle axis is flipped too so the rotation
// stays proper. The box itself does not move.
func (obb *OrientedBoundingBox) AlignMinorAxis(up r3.Vector) *OrientedBoundingBox {
	out := *obb
	if obb.Rotation.Col(2).Dot(up) >= 0 {
		return &out
	}
	out.Rotation = *NewRotationMatrixFromColumns(
		obb.Rotation.Col(0),
		obb.Rotation.Col(1).Mul(-1),
		obb.Rotation.Col(2).Mul(-1),
	)
	return &out
}
