package frame

import "github.com/golang/geo/r3"

// Pointcloud is a reused buffer of 3D points, in the layer frame.
type Pointcloud struct {
	points []r3.Vector
}

// Clear empties the cloud, keeping its storage.
func (p *Pointcloud) Clear() { p.points = p.points[:0] }

// Append adds a point.
func (p *Pointcloud) Append(v r3.Vector) { p.points = append(p.points, v) }

// Size returns the number of points.
func (p *Pointcloud) Size() int { return len(p.points) }

// Points returns the backing slice; valid until the cloud is next written.
func (p *Pointcloud) Points() []r3.Vector { return p.points }
