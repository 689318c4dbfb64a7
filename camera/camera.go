// Package camera models the pinhole cameras that depth, color and mask
// frames are captured with.
package camera

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Camera holds pinhole intrinsics. The camera frame is right-handed with z
// pointing through the image plane.
type Camera struct {
	Width  int
	Height int
	Fx     float64
	Fy     float64
	Ppx    float64
	Ppy    float64
}

// New returns a pinhole camera with the given intrinsics.
func New(width, height int, fx, fy, ppx, ppy float64) Camera {
	return Camera{Width: width, Height: height, Fx: fx, Fy: fy, Ppx: ppx, Ppy: ppy}
}

// NewSimple returns a camera with the principal point at the image center
// and equal focal lengths. Convenient for tests.
func NewSimple(width, height int, focal float64) Camera {
	return New(width, height, focal, focal, float64(width)/2, float64(height)/2)
}

// K returns the 3x3 intrinsics matrix.
func (c Camera) K() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		c.Fx, 0, c.Ppx,
		0, c.Fy, c.Ppy,
		0, 0, 1,
	})
}

// Project maps a point in the camera frame to pixel coordinates. ok is false
// when the point is behind the camera or projects outside the image.
func (c Camera) Project(p r3.Vector) (u, v float64, ok bool) {
	if p.Z <= 0 {
		return 0, 0, false
	}
	u = c.Fx*p.X/p.Z + c.Ppx
	v = c.Fy*p.Y/p.Z + c.Ppy
	if u < 0 || v < 0 || u >= float64(c.Width) || v >= float64(c.Height) {
		return u, v, false
	}
	return u, v, true
}

// Unproject maps a pixel plus a depth (meters along the optical axis) to a
// point in the camera frame.
func (c Camera) Unproject(u, v int, depth float64) r3.Vector {
	return r3.Vector{
		X: (float64(u) - c.Ppx) / c.Fx * depth,
		Y: (float64(v) - c.Ppy) / c.Fy * depth,
		Z: depth,
	}
}

// CheckDimensions errors if a frame of the given size does not match the
// camera's expected image size.
func (c Camera) CheckDimensions(width, height int) error {
	if width != c.Width || height != c.Height {
		return errors.Errorf("frame dimensions and intrinsics don't match: Frame(%d,%d) != Intrinsics(%d,%d)",
			width, height, c.Width, c.Height)
	}
	return nil
}
