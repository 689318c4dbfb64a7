package layer

// FreespaceVoxel tracks how long a voxel has been observed empty. A voxel
// only becomes high-confidence free after staying unoccupied for the
// layer's minimum duration, which filters sensor flicker. Leaving the free
// state needs a sustained occupied streak of the same duration: a dynamic
// object passing through must keep the voxel free long enough to be
// detected against it.
type FreespaceVoxel struct {
	FirstFreeMs          int64
	FirstOccupiedMs      int64
	IsHighConfidenceFree bool
}

// FreespaceLayer is a sparse grid of freespace state. Unlike tsdf or
// occupancy, freespace must be re-evaluated on every frame: a voxel once
// occupied can become free again when the object that filled it moves.
type FreespaceLayer struct {
	voxelSize     float64
	minDurationMs int64
	voxels        map[VoxelIndex]FreespaceVoxel
}

// DefaultMinDurationMs is how long a voxel must stay unoccupied before it
// counts as high-confidence free.
const DefaultMinDurationMs = 1000

// NewFreespaceLayer returns an empty freespace layer.
func NewFreespaceLayer(voxelSize float64, minDurationMs int64) *FreespaceLayer {
	return &FreespaceLayer{
		voxelSize:     voxelSize,
		minDurationMs: minDurationMs,
		voxels:        map[VoxelIndex]FreespaceVoxel{},
	}
}

// VoxelSize returns the edge length of a voxel in meters.
func (l *FreespaceLayer) VoxelSize() float64 { return l.voxelSize }

// MinDurationMs returns the minimum unoccupied duration before a voxel
// counts as free.
func (l *FreespaceLayer) MinDurationMs() int64 { return l.minDurationMs }

// SetMinDurationMs retunes the minimum unoccupied duration. Applies to
// observations from now on; already-free voxels stay free.
func (l *FreespaceLayer) SetMinDurationMs(ms int64) { l.minDurationMs = ms }

// Size returns the number of allocated voxels.
func (l *FreespaceLayer) Size() int { return len(l.voxels) }

// ObserveFree records that a measurement passed through the voxel at the
// given time.
func (l *FreespaceLayer) ObserveFree(idx VoxelIndex, nowMs int64) {
	v, ok := l.voxels[idx]
	if !ok || v.FirstFreeMs < 0 {
		v.FirstFreeMs = nowMs
	}
	v.FirstOccupiedMs = -1
	if nowMs-v.FirstFreeMs >= l.minDurationMs {
		v.IsHighConfidenceFree = true
	}
	l.voxels[idx] = v
}

// ObserveOccupied records that a measurement landed in the voxel. A voxel
// that is not yet free resets immediately; a free voxel only loses the
// state after staying occupied for the minimum duration.
func (l *FreespaceLayer) ObserveOccupied(idx VoxelIndex, nowMs int64) {
	v, ok := l.voxels[idx]
	if !ok || !v.IsHighConfidenceFree {
		l.voxels[idx] = FreespaceVoxel{FirstFreeMs: -1, FirstOccupiedMs: nowMs}
		return
	}
	v.FirstFreeMs = -1
	if v.FirstOccupiedMs < 0 {
		v.FirstOccupiedMs = nowMs
	}
	if nowMs-v.FirstOccupiedMs >= l.minDurationMs {
		v = FreespaceVoxel{FirstFreeMs: -1, FirstOccupiedMs: nowMs}
	}
	l.voxels[idx] = v
}

// IsFree reports whether the voxel is currently high-confidence free.
func (l *FreespaceLayer) IsFree(idx VoxelIndex) bool {
	v, ok := l.voxels[idx]
	return ok && v.IsHighConfidenceFree
}

// Iterate visits every allocated voxel until fn returns false.
func (l *FreespaceLayer) Iterate(fn func(VoxelIndex, FreespaceVoxel) bool) {
	for idx, v := range l.voxels {
		if !fn(idx, v) {
			return
		}
	}
}
