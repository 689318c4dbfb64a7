// Package mapper contains the mapping engines and the dual-pipeline
// orchestrator that routes sensor frames between them.
package mapper

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/orbbec/nvblox/camera"
	"github.com/orbbec/nvblox/frame"
	"github.com/orbbec/nvblox/layer"
	"github.com/orbbec/nvblox/parameters"
	"github.com/orbbec/nvblox/spatial"
)

// Mapper is a single-pipeline mapping engine. It owns one coherent set of
// spatial layers for one semantic category: a projective layer (tsdf or
// occupancy), optionally a freespace layer, and the esdf and mesh layers
// derived from them.
type Mapper struct {
	logger golog.Logger
	clk    clock.Clock

	voxelSizeM float64
	esdfMode   EsdfMode
	memType    MemoryType
	params     MapperParams

	tsdf      *layer.TsdfLayer
	occupancy *layer.OccupancyLayer
	freespace *layer.FreespaceLayer
	esdf      *layer.EsdfLayer
	mesh      *layer.MeshLayer

	voxelColors map[layer.VoxelIndex]frame.RGB
	dirtyBlocks map[layer.VoxelIndex]struct{}
	updated     bool
}

// NewMapper returns an engine integrating into an occupancy layer when
// staticOccupancy is set and a tsdf layer otherwise. withFreespace
// additionally maintains a freespace layer. Occupancy engines have no mesh
// layer; there is no signed-distance surface to extract from.
func NewMapper(
	voxelSizeM float64,
	staticOccupancy, withFreespace bool,
	esdfMode EsdfMode,
	memType MemoryType,
	logger golog.Logger,
) *Mapper {
	m := &Mapper{
		logger:      logger,
		clk:         clock.New(),
		voxelSizeM:  voxelSizeM,
		esdfMode:    esdfMode,
		memType:     memType,
		params:      DefaultMapperParams(),
		esdf:        layer.NewEsdfLayer(voxelSizeM),
		voxelColors: map[layer.VoxelIndex]frame.RGB{},
		dirtyBlocks: map[layer.VoxelIndex]struct{}{},
	}
	if staticOccupancy {
		m.occupancy = layer.NewOccupancyLayer(voxelSizeM)
	} else {
		m.tsdf = layer.NewTsdfLayer(voxelSizeM)
		m.mesh = layer.NewMeshLayer(float64(m.params.MeshBlockSizeVoxels) * voxelSizeM)
	}
	if withFreespace {
		m.freespace = layer.NewFreespaceLayer(voxelSizeM, m.params.FreespaceMinDurationMs)
	}
	return m
}

// SetParams applies an engine tuning.
func (m *Mapper) SetParams(p MapperParams) {
	m.params = p
	if m.freespace != nil {
		m.freespace.SetMinDurationMs(p.FreespaceMinDurationMs)
	}
	m.logger.Debugw("mapper params set",
		"max_integration_distance_m", p.MaxIntegrationDistanceM,
		"truncation_distance_vox", p.TruncationDistanceVoxels,
	)
}

// SetClock swaps the time source. Used by tests driving freespace timing.
func (m *Mapper) SetClock(clk clock.Clock) { m.clk = clk }

// VoxelSizeM returns the voxel edge length in meters.
func (m *Mapper) VoxelSizeM() float64 { return m.voxelSizeM }

// TsdfLayer returns the signed-distance layer, or nil for occupancy engines.
func (m *Mapper) TsdfLayer() *layer.TsdfLayer { return m.tsdf }

// OccupancyLayer returns the occupancy layer, or nil for tsdf engines.
func (m *Mapper) OccupancyLayer() *layer.OccupancyLayer { return m.occupancy }

// FreespaceLayer returns the freespace layer, or nil when not maintained.
func (m *Mapper) FreespaceLayer() *layer.FreespaceLayer { return m.freespace }

// EsdfLayer returns the euclidean-distance layer.
func (m *Mapper) EsdfLayer() *layer.EsdfLayer { return m.esdf }

// MeshLayer returns the mesh layer, or nil for occupancy engines.
func (m *Mapper) MeshLayer() *layer.MeshLayer { return m.mesh }

// HasMesh reports whether this engine produces a mesh.
func (m *Mapper) HasMesh() bool { return m.mesh != nil }

// WasUpdated reports whether any frame has ever been integrated.
func (m *Mapper) WasUpdated() bool { return m.updated }

// IntegrateDepth integrates one depth frame posed by tLayerFromCamera. The
// optional updateTimeMs stamps freespace observations; when nil the
// engine's clock supplies the time.
func (m *Mapper) IntegrateDepth(
	depth *frame.Depth,
	tLayerFromCamera *spatial.Transform,
	cam camera.Camera,
	updateTimeMs *int64,
) error {
	if err := cam.CheckDimensions(depth.Width(), depth.Height()); err != nil {
		return err
	}
	nowMs := m.clk.Now().UnixMilli()
	if updateTimeMs != nil {
		nowMs = *updateTimeMs
	}

	origin := tLayerFromCamera.Translation()
	trunc := m.params.TruncationDistanceVoxels * m.voxelSizeM
	for y := 0; y < depth.Height(); y++ {
		for x := 0; x < depth.Width(); x++ {
			d := float64(depth.At(x, y))
			if d <= 0 || d > m.params.MaxIntegrationDistanceM {
				continue
			}
			surface := tLayerFromCamera.Apply(cam.Unproject(x, y, d))
			m.integrateRay(origin, surface, trunc, nowMs)
		}
	}
	m.updated = true
	return nil
}

// integrateRay carves free space from the origin up to the truncation band
// and applies the surface measurement to the band itself.
func (m *Mapper) integrateRay(origin, surface r3.Vector, trunc float64, nowMs int64) {
	ray := surface.Sub(origin)
	length := ray.Norm()
	if length <= 0 {
		return
	}
	dir := ray.Mul(1 / length)

	step := m.voxelSizeM
	for s := step / 2; s < length-trunc; s += step {
		idx := layer.IndexFromPoint(origin.Add(dir.Mul(s)), m.voxelSizeM)
		if m.occupancy != nil {
			m.occupancy.ObserveFree(idx)
		}
		if m.freespace != nil {
			m.freespace.ObserveFree(idx, nowMs)
		}
	}

	surfaceIdx := layer.IndexFromPoint(surface, m.voxelSizeM)
	if m.occupancy != nil {
		m.occupancy.ObserveOccupied(surfaceIdx)
	}
	if m.freespace != nil {
		m.freespace.ObserveOccupied(surfaceIdx, nowMs)
	}
	if m.tsdf != nil {
		lo := length - trunc
		if lo < 0 {
			lo = 0
		}
		for s := lo; s <= length+trunc; s += step {
			p := origin.Add(dir.Mul(s))
			idx := layer.IndexFromPoint(p, m.voxelSizeM)
			v, _ := m.tsdf.At(idx)
			newWeight := v.Weight + 1
			v.Distance = (v.Distance*v.Weight + float32(length-s)) / newWeight
			v.Weight = newWeight
			m.tsdf.Set(idx, v)
			if m.mesh != nil {
				m.dirtyBlocks[m.mesh.BlockIndexFromPoint(p)] = struct{}{}
			}
		}
	}
}

// IntegrateColor colorizes the engine's current surface voxels from a color
// frame posed by tLayerFromCamera.
func (m *Mapper) IntegrateColor(
	color *frame.Color,
	tLayerFromCamera *spatial.Transform,
	cam camera.Camera,
) error {
	if err := cam.CheckDimensions(color.Width(), color.Height()); err != nil {
		return err
	}
	tCameraFromLayer := tLayerFromCamera.Inverse()
	colorize := func(idx layer.VoxelIndex) {
		p := tCameraFromLayer.Apply(idx.Center(m.voxelSizeM))
		u, v, ok := cam.Project(p)
		if !ok {
			return
		}
		m.voxelColors[idx] = color.At(int(math.Floor(u)), int(math.Floor(v)))
		if m.mesh != nil {
			m.dirtyBlocks[m.mesh.BlockIndexFromPoint(idx.Center(m.voxelSizeM))] = struct{}{}
		}
	}
	if m.tsdf != nil {
		m.tsdf.Iterate(func(idx layer.VoxelIndex, _ layer.TsdfVoxel) bool {
			if m.tsdf.IsSurface(idx) {
				colorize(idx)
			}
			return true
		})
	} else {
		m.occupancy.Iterate(func(idx layer.VoxelIndex, _ layer.OccupancyVoxel) bool {
			if m.occupancy.IsOccupied(idx) {
				colorize(idx)
			}
			return true
		})
	}
	m.updated = true
	return nil
}

// UpdateEsdf recomputes the euclidean-distance layer from the current
// projective layer. Candidate sites for which exclude returns true are
// dropped before propagation; the predicate is consulted fresh on every
// call, per candidate.
func (m *Mapper) UpdateEsdf(exclude func(layer.VoxelIndex) bool) {
	m.esdf.Clear()

	var sites []layer.VoxelIndex
	addSite := func(idx layer.VoxelIndex) {
		if exclude != nil && exclude(idx) {
			return
		}
		sites = append(sites, idx)
	}
	if m.tsdf != nil {
		m.tsdf.Iterate(func(idx layer.VoxelIndex, _ layer.TsdfVoxel) bool {
			if m.tsdf.IsSurface(idx) {
				addSite(idx)
			}
			return true
		})
	} else {
		m.occupancy.Iterate(func(idx layer.VoxelIndex, _ layer.OccupancyVoxel) bool {
			if m.occupancy.IsOccupied(idx) {
				addSite(idx)
			}
			return true
		})
	}

	for _, s := range sites {
		m.esdf.Set(s, layer.EsdfVoxel{IsSite: true})
	}

	setDistance := func(idx layer.VoxelIndex) {
		if m.esdf.IsSite(idx) {
			return
		}
		min := math.Inf(1)
		for _, s := range sites {
			var d float64
			if m.esdfMode == Esdf2D {
				flat := layer.VoxelIndex{I: idx.I, J: idx.J, K: s.K}
				d = flat.Distance(s, m.voxelSizeM)
			} else {
				d = idx.Distance(s, m.voxelSizeM)
			}
			if d < min {
				min = d
			}
		}
		m.esdf.Set(idx, layer.EsdfVoxel{DistanceM: float32(min)})
	}
	if m.tsdf != nil {
		m.tsdf.Iterate(func(idx layer.VoxelIndex, _ layer.TsdfVoxel) bool {
			setDistance(idx)
			return true
		})
	} else {
		m.occupancy.Iterate(func(idx layer.VoxelIndex, _ layer.OccupancyVoxel) bool {
			setDistance(idx)
			return true
		})
	}
}

// UpdateMesh re-extracts the mesh for blocks touched since the last call
// and returns their indices. Occupancy engines return nil.
func (m *Mapper) UpdateMesh() []layer.VoxelIndex {
	if m.mesh == nil {
		return nil
	}
	var updated []layer.VoxelIndex
	for blockIdx := range m.dirtyBlocks {
		block := m.mesh.UpsertBlock(blockIdx)
		m.tsdf.Iterate(func(idx layer.VoxelIndex, _ layer.TsdfVoxel) bool {
			if !m.tsdf.IsSurface(idx) {
				return true
			}
			if m.mesh.BlockIndexFromPoint(idx.Center(m.voxelSizeM)) != blockIdx {
				return true
			}
			m.emitVoxelQuad(block, idx)
			return true
		})
		updated = append(updated, blockIdx)
	}
	clear(m.dirtyBlocks)
	return updated
}

var defaultVoxelColor = frame.RGB{R: 128, G: 128, B: 128}

// emitVoxelQuad appends a voxel-sized quad at the voxel center. A stand-in
// for a marching-cubes kernel; enough surface to serialize and stream.
func (m *Mapper) emitVoxelQuad(block *layer.MeshBlock, idx layer.VoxelIndex) {
	c := idx.Center(m.voxelSizeM)
	h := m.voxelSizeM / 2
	base := int32(len(block.Vertices))
	block.Vertices = append(block.Vertices,
		r3.Vector{X: c.X - h, Y: c.Y - h, Z: c.Z},
		r3.Vector{X: c.X + h, Y: c.Y - h, Z: c.Z},
		r3.Vector{X: c.X + h, Y: c.Y + h, Z: c.Z},
		r3.Vector{X: c.X - h, Y: c.Y + h, Z: c.Z},
	)
	color, ok := m.voxelColors[idx]
	if !ok {
		color = defaultVoxelColor
	}
	for i := 0; i < 4; i++ {
		block.Colors = append(block.Colors, color)
	}
	block.Triangles = append(block.Triangles,
		[3]int32{base, base + 1, base + 2},
		[3]int32{base, base + 2, base + 3},
	)
}

// ParameterTree returns the engine's parameters as a named tree.
func (m *Mapper) ParameterTree(name string) *parameters.Node {
	var freespaceNode *parameters.Node
	if m.freespace != nil {
		freespaceNode = parameters.NewLeaf("freespace_min_duration_ms", m.params.FreespaceMinDurationMs)
	}
	projective := "tsdf"
	if m.occupancy != nil {
		projective = "occupancy"
	}
	return parameters.NewBranch(name,
		parameters.NewLeaf("voxel_size_m", m.voxelSizeM),
		parameters.NewLeaf("projective_layer", projective),
		parameters.NewLeaf("esdf_mode", m.esdfMode),
		parameters.NewLeaf("memory_type", m.memType),
		parameters.NewLeaf("max_integration_distance_m", m.params.MaxIntegrationDistanceM),
		parameters.NewLeaf("truncation_distance_vox", m.params.TruncationDistanceVoxels),
		parameters.NewLeaf("mesh_block_size_vox", m.params.MeshBlockSizeVoxels),
		freespaceNode,
	)
}
