package layer

// TsdfVoxel stores a truncated signed distance to the nearest surface and
// the accumulated measurement weight.
type TsdfVoxel struct {
	Distance float32
	Weight   float32
}

// TsdfLayer is a sparse truncated-signed-distance grid.
type TsdfLayer struct {
	voxelSize float64
	voxels    map[VoxelIndex]TsdfVoxel
}

// NewTsdfLayer returns an empty tsdf layer.
func NewTsdfLayer(voxelSize float64) *TsdfLayer {
	return &TsdfLayer{voxelSize: voxelSize, voxels: map[VoxelIndex]TsdfVoxel{}}
}

// VoxelSize returns the edge length of a voxel in meters.
func (l *TsdfLayer) VoxelSize() float64 { return l.voxelSize }

// Size returns the number of allocated voxels.
func (l *TsdfLayer) Size() int { return len(l.voxels) }

// At returns the voxel at an index, if allocated.
func (l *TsdfLayer) At(idx VoxelIndex) (TsdfVoxel, bool) {
	v, ok := l.voxels[idx]
	return v, ok
}

// Set writes the voxel at an index.
func (l *TsdfLayer) Set(idx VoxelIndex, v TsdfVoxel) { l.voxels[idx] = v }

// Iterate visits every allocated voxel until fn returns false.
func (l *TsdfLayer) Iterate(fn func(VoxelIndex, TsdfVoxel) bool) {
	for idx, v := range l.voxels {
		if !fn(idx, v) {
			return
		}
	}
}

// IsSurface reports whether a voxel is within half a voxel of the zero
// crossing and carries enough weight to be trusted.
func (l *TsdfLayer) IsSurface(idx VoxelIndex) bool {
	v, ok := l.voxels[idx]
	if !ok || v.Weight <= 0 {
		return false
	}
	half := float32(l.voxelSize / 2)
	return v.Distance >= -half && v.Distance <= half
}
