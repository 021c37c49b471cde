package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.viam.com/test"
)

func TestRotationMatrix(t *testing.T) {
	_, err := NewRotationMatrix([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)

	rm := NewRotationMatrixAboutZ(math.Pi / 2)
	test.That(t, rm.IsRotation(1e-12), test.ShouldBeTrue)
	test.That(t, rm.Determinant(), test.ShouldAlmostEqual, 1.0)
	v := rm.Mul(r3.Vector{X: 1})
	test.That(t, v.X, test.ShouldAlmostEqual, 0.0)
	test.That(t, v.Y, test.ShouldAlmostEqual, 1.0)
	back := rm.MulT(v)
	test.That(t, back.X, test.ShouldAlmostEqual, 1.0)
	test.That(t, back.Y, test.ShouldAlmostEqual, 0.0)

	reflection, err := NewRotationMatrix([]float64{1, 0, 0, 0, 1, 0, 0, 0, -1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reflection.IsRotation(1e-9), test.ShouldBeFalse)
	fixed, err := reflection.Orthonormalize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fixed.IsRotation(1e-12), test.ShouldBeTrue)
	test.That(t, fixed.Col(2), test.ShouldResemble, r3.Vector{Z: 1})

	skewed := NewRotationMatrixFromColumns(r3.Vector{X: 2}, r3.Vector{X: 1, Y: 1}, r3.Vector{Z: 3})
	fixed, err = skewed.Orthonormalize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fixed.IsRotation(1e-12), test.ShouldBeTrue)
	test.That(t, fixed.Col(0), test.ShouldResemble, r3.Vector{X: 1})

	_, err = NewRotationMatrixFromColumns(r3.Vector{}, r3.Vector{Y: 1}, r3.Vector{Z: 1}).Orthonormalize()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTransformInverseRoundTrip(t *testing.T) {
	tf := NewTransform(NewRotationMatrixAboutZ(0.7), r3.Vector{X: 1, Y: -2, Z: 0.5})
	inv := tf.Inverse()
	points := []r3.Vector{{X: 0.1, Y: 0.2, Z: 0.3}, {X: -4, Y: 5, Z: 6}, {}}
	approx := cmpopts.EquateApprox(0, 1e-9)
	for _, p := range points {
		got := inv.Apply(tf.Apply(p))
		test.That(t, cmp.Equal([]float64{got.X, got.Y, got.Z}, []float64{p.X, p.Y, p.Z}, approx), test.ShouldBeTrue)
	}

	identity := tf.Compose(inv).Matrix()
	want := NewIdentityTransform().Matrix()
	test.That(t, cmp.Diff(want[:], identity[:], approx), test.ShouldBeEmpty)
}

func TestTransformCompose(t *testing.T) {
	rotate := NewTransform(NewRotationMatrixAboutZ(math.Pi/2), r3.Vector{})
	shift := NewTransform(NewIdentityRotationMatrix(), r3.Vector{X: 1})
	// shift first, then rotate
	got := rotate.Compose(shift).Apply(r3.Vector{})
	test.That(t, got.X, test.ShouldAlmostEqual, 0.0)
	test.That(t, got.Y, test.ShouldAlmostEqual, 1.0)
}

func TestTransformMatrix(t *testing.T) {
	tf := NewTransform(NewRotationMatrixAboutZ(-1.2), r3.Vector{X: 3, Y: 4, Z: 5})
	m := tf.Matrix()
	test.That(t, IsValidTransformMatrix(m), test.ShouldBeTrue)
	test.That(t, m[3], test.ShouldEqual, 3.0)
	test.That(t, m[7], test.ShouldEqual, 4.0)
	test.That(t, m[11], test.ShouldEqual, 5.0)
	test.That(t, m[15], test.ShouldEqual, 1.0)

	parsed, err := NewTransformFromMatrix(m)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed.Matrix(), test.ShouldResemble, m)

	identity := NewIdentityTransform().Matrix()
	test.That(t, IsValidTransformMatrix(identity), test.ShouldBeTrue)

	reflected := identity
	reflected[10] = -1
	test.That(t, IsValidTransformMatrix(reflected), test.ShouldBeFalse)
	_, err = NewTransformFromMatrix(reflected)
	test.That(t, err, test.ShouldNotBeNil)

	projective := identity
	projective[12] = 0.5
	test.That(t, IsValidTransformMatrix(projective), test.ShouldBeFalse)

	scaled := identity
	scaled[0] = 2
	test.That(t, IsValidTransformMatrix(scaled), test.ShouldBeFalse)

	notANumber := identity
	notANumber[3] = math.NaN()
	test.That(t, IsValidTransformMatrix(notANumber), test.ShouldBeFalse)
}
