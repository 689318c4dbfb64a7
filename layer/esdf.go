package layer

// EsdfVoxel stores the euclidean distance to the nearest site. Sites are
// the obstacle seed voxels the distance field propagates from.
type EsdfVoxel struct {
	DistanceM float32
	IsSite    bool
}

// EsdfLayer is a sparse euclidean-distance grid, recomputed from scratch on
// every update.
type EsdfLayer struct {
	voxelSize float64
	voxels    map[VoxelIndex]EsdfVoxel
}

// NewEsdfLayer returns an empty esdf layer.
func NewEsdfLayer(voxelSize float64) *EsdfLayer {
	return &EsdfLayer{voxelSize: voxelSize, voxels: map[VoxelIndex]EsdfVoxel{}}
}

// VoxelSize returns the edge length of a voxel in meters.
func (l *EsdfLayer) VoxelSize() float64 { return l.voxelSize }

// Size returns the number of allocated voxels.
func (l *EsdfLayer) Size() int { return len(l.voxels) }

// Clear drops all voxels ahead of a fresh update.
func (l *EsdfLayer) Clear() {
	clear(l.voxels)
}

// At returns the voxel at an index, if allocated.
func (l *EsdfLayer) At(idx VoxelIndex) (EsdfVoxel, bool) {
	v, ok := l.voxels[idx]
	return v, ok
}

// Set writes the voxel at an index.
func (l *EsdfLayer) Set(idx VoxelIndex, v EsdfVoxel) { l.voxels[idx] = v }

// IsSite reports whether the voxel is an obstacle seed.
func (l *EsdfLayer) IsSite(idx VoxelIndex) bool {
	v, ok := l.voxels[idx]
	return ok && v.IsSite
}

// Sites returns the indices of all site voxels.
func (l *EsdfLayer) Sites() []VoxelIndex {
	var sites []VoxelIndex
	for idx, v := range l.voxels {
		if v.IsSite {
			sites = append(sites, idx)
		}
	}
	return sites
}

// Iterate visits every allocated voxel until fn returns false.
func (l *EsdfLayer) Iterate(fn func(VoxelIndex, EsdfVoxel) bool) {
	for idx, v := range l.voxels {
		if !fn(idx, v) {
			return
		}
	}
}
