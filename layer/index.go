// Package layer implements the voxel layers a mapping engine maintains:
// signed-distance, occupancy, freespace and euclidean-distance grids, plus
// the mesh layer derived from them. Layers are sparse, keyed by voxel index.
package layer

import (
	"math"

	"github.com/golang/geo/r3"
)

// VoxelIndex stores a voxel's coordinates in grid axes.
type VoxelIndex struct {
	I, J, K int64
}

// IsEqual tests if two VoxelIndex are the same.
func (v VoxelIndex) IsEqual(v2 VoxelIndex) bool {
	return v.I == v2.I && v.J == v2.J && v.K == v2.K
}

// IndexFromPoint returns the index of the voxel containing a point, for a
// grid of the given voxel size.
func IndexFromPoint(p r3.Vector, voxelSize float64) VoxelIndex {
	return VoxelIndex{
		I: int64(math.Floor(p.X / voxelSize)),
		J: int64(math.Floor(p.Y / voxelSize)),
		K: int64(math.Floor(p.Z / voxelSize)),
	}
}

// Center returns the center point of the voxel in the layer frame.
func (v VoxelIndex) Center(voxelSize float64) r3.Vector {
	return r3.Vector{
		X: (float64(v.I) + 0.5) * voxelSize,
		Y: (float64(v.J) + 0.5) * voxelSize,
		Z: (float64(v.K) + 0.5) * voxelSize,
	}
}

// Distance returns the euclidean distance between the centers of two voxels
// in meters.
func (v VoxelIndex) Distance(v2 VoxelIndex, voxelSize float64) float64 {
	di := float64(v.I - v2.I)
	dj := float64(v.J - v2.J)
	dk := float64(v.K - v2.K)
	return math.Sqrt(di*di+dj*dj+dk*dk) * voxelSize
}
