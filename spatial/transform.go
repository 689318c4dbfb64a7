// Package spatial provides the rigid transforms used to pose cameras and
// reproject masks between camera frames.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Transform is a rigid (SE3) transform backed by a homogeneous 4x4 matrix.
type Transform struct {
	mat mgl64.Mat4
}

// NewTransform returns the identity transform.
func NewTransform() *Transform {
	return &Transform{mat: mgl64.Ident4()}
}

// NewTransformFromMatrix wraps an existing homogeneous matrix. The top-left
// 3x3 block is assumed to be a rotation.
func NewTransformFromMatrix(mat mgl64.Mat4) *Transform {
	return &Transform{mat: mat}
}

// NewTransformFromTranslation returns a pure translation.
func NewTransformFromTranslation(t r3.Vector) *Transform {
	m := mgl64.Ident4()
	m.Set(0, 3, t.X)
	m.Set(1, 3, t.Y)
	m.Set(2, 3, t.Z)
	return &Transform{mat: m}
}

// NewTransformFromRotation returns a transform rotated about x, y then z by
// the given number of degrees.
func NewTransformFromRotation(x, y, z float64) *Transform {
	const degToRad = math.Pi / 180
	return &Transform{mat: mgl64.HomogRotate3DZ(z * degToRad).Mul4(
		mgl64.HomogRotate3DY(y * degToRad).Mul4(
			mgl64.HomogRotate3DX(x * degToRad)))}
}

// Matrix returns the underlying homogeneous matrix.
func (t *Transform) Matrix() mgl64.Mat4 {
	return t.mat
}

// Rotation returns the top-left 3x3 rotation block.
func (t *Transform) Rotation() mgl64.Mat3 {
	return t.mat.Mat3()
}

// Translation returns the translation column.
func (t *Transform) Translation() r3.Vector {
	return r3.Vector{X: t.mat.At(0, 3), Y: t.mat.At(1, 3), Z: t.mat.At(2, 3)}
}

// Compose returns t * other, i.e. other applied first.
func (t *Transform) Compose(other *Transform) *Transform {
	return &Transform{mat: t.mat.Mul4(other.mat)}
}

// Inverse returns the inverse rigid transform, exploiting that the rotation
// block is orthonormal.
func (t *Transform) Inverse() *Transform {
	r := t.Rotation().Transpose()
	p := t.Translation()
	ti := r.Mul3x1(mgl64.Vec3{-p.X, -p.Y, -p.Z})
	m := mgl64.Ident4()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Set(row, col, r.At(row, col))
		}
		m.Set(row, 3, ti[row])
	}
	return &Transform{mat: m}
}

// Apply transforms a point.
func (t *Transform) Apply(p r3.Vector) r3.Vector {
	v := t.mat.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// ApplyRotationOnly transforms a direction, ignoring translation.
func (t *Transform) ApplyRotationOnly(p r3.Vector) r3.Vector {
	v := t.Rotation().Mul3x1(mgl64.Vec3{p.X, p.Y, p.Z})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
