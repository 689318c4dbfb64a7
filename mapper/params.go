package mapper

import "github.com/orbbec/nvblox/layer"

// EsdfMode selects whether distance fields are computed in full 3D or
// collapsed onto the ground plane.
type EsdfMode int

// Esdf dimensionality modes.
const (
	Esdf3D EsdfMode = iota
	Esdf2D
)

// String returns the mode's name.
func (m EsdfMode) String() string {
	if m == Esdf2D {
		return "2d"
	}
	return "3d"
}

// MemoryType selects where layer storage should reside.
type MemoryType int

// Memory residency options.
const (
	MemoryDevice MemoryType = iota
	MemoryHostPinned
)

// String returns the residency's name.
func (t MemoryType) String() string {
	if t == MemoryHostPinned {
		return "host_pinned"
	}
	return "device"
}

// MapperParams tunes one mapping engine.
type MapperParams struct {
	// MaxIntegrationDistanceM drops depth returns further than this.
	MaxIntegrationDistanceM float64
	// TruncationDistanceVoxels is the half-width, in voxels, of the band
	// around a surface that tsdf integration updates.
	TruncationDistanceVoxels float64
	// FreespaceMinDurationMs is how long a voxel must stay unoccupied
	// before it counts as high-confidence free.
	FreespaceMinDurationMs int64
	// MeshBlockSizeVoxels is the mesh block edge length in voxels.
	MeshBlockSizeVoxels int
}

// DefaultMapperParams returns the standard engine tuning.
func DefaultMapperParams() MapperParams {
	return MapperParams{
		MaxIntegrationDistanceM:  7.0,
		TruncationDistanceVoxels: 4.0,
		FreespaceMinDurationMs:   layer.DefaultMinDurationMs,
		MeshBlockSizeVoxels:      8,
	}
}

// DefaultConnectedMaskComponentSizeThreshold is the minimum connected
// component pixel count for a region to count as a dynamic detection.
const DefaultConnectedMaskComponentSizeThreshold = 2000

// MultiMapperParams tunes the orchestrator itself.
type MultiMapperParams struct {
	// ConnectedMaskComponentSizeThreshold is the minimum number of pixels
	// of a connected mask component to count as a dynamic detection.
	ConnectedMaskComponentSizeThreshold int
	// MeshBandwidthLimitMbps bounds serialized mesh output; zero or
	// negative disables limiting.
	MeshBandwidthLimitMbps float64
}

// DefaultMultiMapperParams returns the standard orchestrator tuning.
func DefaultMultiMapperParams() MultiMapperParams {
	return MultiMapperParams{
		ConnectedMaskComponentSizeThreshold: DefaultConnectedMaskComponentSizeThreshold,
		MeshBandwidthLimitMbps:              -1,
	}
}
