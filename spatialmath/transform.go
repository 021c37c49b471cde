package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// MatrixValidationTolerance bounds how far a transform's rotation may be from a proper
// rotation before it is rejected.
const MatrixValidationTolerance = 1e-6

// Transform is a rigid transform p' = R*p + t.
type Transform struct {
	Rotation    RotationMatrix
	Translation r3.Vector
}

// NewIdentityTransform returns the transform that leaves points unchanged.
func NewIdentityTransform() *Transform {
	return &Transform{Rotation: *NewIdentityRotationMatrix()}
}

// NewTransform builds a transform from a rotation and a translation.
func NewTransform(rot *RotationMatrix, translation r3.Vector) *Transform {
	return &Transform{Rotation: *rot, Translation: translation}
}

// NewTransformFromMatrix builds a transform from a 4x4 row-major homogeneous matrix.
// The matrix must be a valid rigid transform.
func NewTransformFromMatrix(m [16]float64) (*Transform, error) {
	if !IsValidTransformMatrix(m) {
		return nil, errors.New("matrix is not a rigid transform")
	}
	rot := &RotationMatrix{[9]float64{m[0], m[1], m[2], m[4], m[5], m[6], m[8], m[9], m[10]}}
	return NewTransform(rot, r3.Vector{X: m[3], Y: m[7], Z: m[11]}), nil
}

// Apply maps p through the transform.
func (t *Transform) Apply(p r3.Vector) r3.Vector {
	return t.Rotation.Mul(p).Add(t.Translation)
}

// Inverse returns the transform undoing t.
func (t *Transform) Inverse() *Transform {
	rt := t.Rotation.Transpose()
	return NewTransform(rt, rt.Mul(t.Translation).Mul(-1))
}

// Compose returns the transform applying other first and then t.
func (t *Transform) Compose(other *Transform) *Transform {
	return NewTransform(t.Rotation.MatMul(&other.Rotation), t.Apply(other.Translation))
}

// Matrix returns the transform as a 4x4 row-major homogeneous matrix.
func (t *Transform) Matrix() [16]float64 {
	r := t.Rotation.mat
	return [16]float64{
		r[0], r[1], r[2], t.Translation.X,
		r[3], r[4], r[5], t.Translation.Y,
		r[6], r[7], r[8], t.Translation.Z,
		0, 0, 0, 1,
	}
}

// IsValidTransformMatrix checks if a 4x4 matrix is a valid rigid transform. The rotation
// block must be orthonormal with determinant 1 and the last row must be [0 0 0 1].
func IsValidTransformMatrix(m [16]float64) bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	rot := RotationMatrix{[9]float64{m[0], m[1], m[2], m[4], m[5], m[6], m[8], m[9], m[10]}}
	if !rot.IsRotation(MatrixValidationTolerance) {
		return false
	}
	return m[12] == 0 && m[13] == 0 && m[14] == 0 && math.Abs(m[15]-1.0) <= MatrixValidationTolerance
}
