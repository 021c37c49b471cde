// Package spatialmath defines rotations, rigid transforms and oriented bounding boxes.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*r + c] is the element in the r'th row and c'th column.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of 9 values in row major order.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	var mat [9]float64
	copy(mat[:], m)
	return &RotationMatrix{mat}, nil
}

// NewRotationMatrixFromColumns creates the rotation matrix whose columns are the given axes.
func NewRotationMatrixFromColumns(c0, c1, c2 r3.Vector) *RotationMatrix {
	return &RotationMatrix{[9]float64{
		c0.X, c1.X, c2.X,
		c0.Y, c1.Y, c2.Y,
		c0.Z, c1.Z, c2.Z,
	}}
}

// NewIdentityRotationMatrix returns the identity rotation.
func NewIdentityRotationMatrix() *RotationMatrix {
	return &RotationMatrix{[9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// NewRotationMatrixAboutZ returns the rotation of theta radians about the z axis.
func NewRotationMatrixAboutZ(theta float64) *RotationMatrix {
	s, c := math.Sincos(theta)
	return &RotationMatrix{[9]float64{c, -s, 0, s, c, 0, 0, 0, 1}}
}

// At returns the float corresponding to the element at the specified location.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// Row returns a 3 element vector corresponding to the specified row.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[3*row], Y: rm.mat[3*row+1], Z: rm.mat[3*row+2]}
}

// Col returns a 3 element vector corresponding to the specified column.
func (rm *RotationMatrix) Col(col int) r3.Vector {
	return r3.Vector{X: rm.mat[col], Y: rm.mat[col+3], Z: rm.mat[col+6]}
}

// Mul returns the product of the matrix and the column vector v.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Row(0).Dot(v), Y: rm.Row(1).Dot(v), Z: rm.Row(2).Dot(v)}
}

// MulT returns the product of the transposed matrix and v.
func (rm *RotationMatrix) MulT(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Col(0).Dot(v), Y: rm.Col(1).Dot(v), Z: rm.Col(2).Dot(v)}
}

// MatMul returns rm * other.
func (rm *RotationMatrix) MatMul(other *RotationMatrix) *RotationMatrix {
	var out [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = rm.Row(r).Dot(other.Col(c))
		}
	}
	return &RotationMatrix{out}
}

// Transpose returns the transposed matrix, which for a rotation is its inverse.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	return NewRotationMatrixFromColumns(rm.Row(0), rm.Row(1), rm.Row(2))
}

// Determinant of the matrix.
func (rm *RotationMatrix) Determinant() float64 {
	m := rm.mat
	return m[0]*(m[4]*m[8]-m[5]*m[7]) - m[1]*(m[3]*m[8]-m[5]*m[6]) + m[2]*(m[3]*m[7]-m[4]*m[6])
}

// IsRotation reports whether the matrix is orthonormal with determinant +1 within tol.
func (rm *RotationMatrix) IsRotation(tol float64) bool {
	rrt := rm.MatMul(rm.Transpose())
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := 0.0
			if r == c {
				want = 1
			}
			if math.Abs(rrt.At(r, c)-want) > tol {
				return false
			}
		}
	}
	return math.Abs(rm.Determinant()-1) <= tol
}

// Orthonormalize returns the closest right-handed frame to the matrix columns, keeping
// the first column's direction. The second column is made orthogonal to the first and
// the third is rebuilt as their cross product, which flips it if the input was a reflection.
func (rm *RotationMatrix) Orthonormalize() (*RotationMatrix, error) {
	e0 := rm.Col(0)
	if e0.Norm() < 1e-12 {
		return nil, errors.New("cannot orthonormalize: first axis has zero length")
	}
	e0 = e0.Normalize()
	e1 := rm.Col(1)
	e1 = e1.Sub(e0.Mul(e1.Dot(e0)))
	if e1.Norm() < 1e-12 {
		e1 = e0.Ortho()
	}
	e1 = e1.Normalize()
	return NewRotationMatrixFromColumns(e0, e1, e0.Cross(e1)), nil
}
