package layer

import "math"

// Log-odds increments applied per occupied/free observation, and the
// threshold above which a voxel counts as occupied.
const (
	occupiedLogOdds   = 0.65
	freeLogOdds       = -0.35
	occupiedThreshold = 0.0
	maxLogOdds        = 50.0
)

// OccupancyVoxel stores a log-odds occupancy probability.
type OccupancyVoxel struct {
	LogOdds float32
}

// Probability converts the log-odds value to a probability.
func (v OccupancyVoxel) Probability() float64 {
	return 1 - 1/(1+math.Exp(float64(v.LogOdds)))
}

// OccupancyLayer is a sparse probabilistic occupancy grid.
type OccupancyLayer struct {
	voxelSize float64
	voxels    map[VoxelIndex]OccupancyVoxel
}

// NewOccupancyLayer returns an empty occupancy layer.
func NewOccupancyLayer(voxelSize float64) *OccupancyLayer {
	return &OccupancyLayer{voxelSize: voxelSize, voxels: map[VoxelIndex]OccupancyVoxel{}}
}

// VoxelSize returns the edge length of a voxel in meters.
func (l *OccupancyLayer) VoxelSize() float64 { return l.voxelSize }

// Size returns the number of allocated voxels.
func (l *OccupancyLayer) Size() int { return len(l.voxels) }

// At returns the voxel at an index, if allocated.
func (l *OccupancyLayer) At(idx VoxelIndex) (OccupancyVoxel, bool) {
	v, ok := l.voxels[idx]
	return v, ok
}

// ObserveOccupied applies an occupied measurement to a voxel.
func (l *OccupancyLayer) ObserveOccupied(idx VoxelIndex) {
	l.observe(idx, occupiedLogOdds)
}

// ObserveFree applies a free measurement to a voxel.
func (l *OccupancyLayer) ObserveFree(idx VoxelIndex) {
	l.observe(idx, freeLogOdds)
}

func (l *OccupancyLayer) observe(idx VoxelIndex, delta float32) {
	v := l.voxels[idx]
	v.LogOdds += delta
	if v.LogOdds > maxLogOdds {
		v.LogOdds = maxLogOdds
	} else if v.LogOdds < -maxLogOdds {
		v.LogOdds = -maxLogOdds
	}
	l.voxels[idx] = v
}

// IsOccupied reports whether a voxel is currently believed occupied.
func (l *OccupancyLayer) IsOccupied(idx VoxelIndex) bool {
	v, ok := l.voxels[idx]
	return ok && v.LogOdds > occupiedThreshold
}

// Iterate visits every allocated voxel until fn returns false.
func (l *OccupancyLayer) Iterate(fn func(VoxelIndex, OccupancyVoxel) bool) {
	for idx, v := range l.voxels {
		if !fn(idx, v) {
			return
		}
	}
}
