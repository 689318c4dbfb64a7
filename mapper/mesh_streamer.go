package mapper

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/orbbec/nvblox/layer"
	"github.com/orbbec/nvblox/spatial"
)

// How often serialized meshes are assumed to ship, for converting a
// bandwidth limit into a per-serialization byte budget.
const assumedMeshUpdatePeriodS = 0.1

// Blocks further than this from the viewpoint are not treated as visible.
const maxVisibleBlockDistanceM = 20.0

// MeshStreamer serializes mesh layers under a transmission budget. When a
// viewpoint is supplied, blocks visible from it ship first; the remainder
// ship oldest-update-first so stale regions eventually refresh.
type MeshStreamer struct {
	bandwidthLimitMbps float64
}

// NewMeshStreamer returns a streamer. A zero or negative limit disables
// truncation.
func NewMeshStreamer(bandwidthLimitMbps float64) *MeshStreamer {
	return &MeshStreamer{bandwidthLimitMbps: bandwidthLimitMbps}
}

// SetBandwidthLimitMbps retunes the limit.
func (ms *MeshStreamer) SetBandwidthLimitMbps(limit float64) {
	ms.bandwidthLimitMbps = limit
}

// BytesBudget returns the per-serialization byte budget.
func (ms *MeshStreamer) BytesBudget() int {
	if ms.bandwidthLimitMbps <= 0 {
		return math.MaxInt
	}
	return int(ms.bandwidthLimitMbps * 1e6 / 8 * assumedMeshUpdatePeriodS)
}

type meshBlockEntry struct {
	idx   layer.VoxelIndex
	block *layer.MeshBlock
}

// Serialize flattens a mesh layer into a fresh read-only snapshot. full
// bypasses the budget entirely.
func (ms *MeshStreamer) Serialize(
	mesh *layer.MeshLayer,
	viewpoint *spatial.Transform,
	full bool,
) *layer.SerializedMesh {
	out := layer.NewSerializedMesh()
	if mesh == nil {
		return out
	}

	var entries []meshBlockEntry
	mesh.Iterate(func(idx layer.VoxelIndex, b *layer.MeshBlock) bool {
		entries = append(entries, meshBlockEntry{idx: idx, block: b})
		return true
	})

	if full || ms.bandwidthLimitMbps <= 0 {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].block.UpdatedSeq < entries[j].block.UpdatedSeq
		})
		for _, e := range entries {
			out.AppendBlock(e.idx, e.block)
		}
		return out
	}

	ordered := ms.prioritize(mesh, entries, viewpoint)
	budget := ms.BytesBudget()
	for _, e := range ordered {
		blockBytes := layer.NewSerializedMesh()
		blockBytes.AppendBlock(e.idx, e.block)
		if out.SizeBytes()+blockBytes.SizeBytes() > budget {
			break
		}
		out.AppendBlock(e.idx, e.block)
	}
	return out
}

// prioritize orders blocks for transmission: viewpoint-visible blocks by
// distance, then everything else oldest-update-first.
func (ms *MeshStreamer) prioritize(
	mesh *layer.MeshLayer,
	entries []meshBlockEntry,
	viewpoint *spatial.Transform,
) []meshBlockEntry {
	var visible []meshBlockEntry
	var visibleDists []float64
	var rest []meshBlockEntry

	var tCameraFromLayer *spatial.Transform
	if viewpoint != nil {
		tCameraFromLayer = viewpoint.Inverse()
	}
	for _, e := range entries {
		if tCameraFromLayer == nil {
			rest = append(rest, e)
			continue
		}
		pCam := tCameraFromLayer.Apply(e.idx.Center(mesh.BlockSize()))
		dist := pCam.Norm()
		if pCam.Z > 0 && dist <= maxVisibleBlockDistanceM {
			visible = append(visible, e)
			visibleDists = append(visibleDists, dist)
		} else {
			rest = append(rest, e)
		}
	}

	sort.Slice(rest, func(i, j int) bool {
		return rest[i].block.UpdatedSeq < rest[j].block.UpdatedSeq
	})
	if len(visible) == 0 {
		return rest
	}

	inds := make([]int, len(visibleDists))
	floats.Argsort(visibleDists, inds)
	ordered := make([]meshBlockEntry, 0, len(entries))
	for _, i := range inds {
		ordered = append(ordered, visible[i])
	}
	return append(ordered, rest...)
}
