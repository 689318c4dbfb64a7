package layer

import (
	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/orbbec/nvblox/frame"
)

// MeshBlock holds the mesh extracted for one block of the grid, plus an
// update stamp so streaming can prioritize stale blocks.
type MeshBlock struct {
	Vertices   []r3.Vector
	Colors     []frame.RGB
	Triangles  [][3]int32
	UpdatedSeq uint64
}

// MeshLayer is the per-block mesh derived from a distance or occupancy
// layer.
type MeshLayer struct {
	blockSize float64
	seq       uint64
	blocks    map[VoxelIndex]*MeshBlock
}

// NewMeshLayer returns an empty mesh layer with the given block edge length
// in meters.
func NewMeshLayer(blockSize float64) *MeshLayer {
	return &MeshLayer{blockSize: blockSize, blocks: map[VoxelIndex]*MeshBlock{}}
}

// BlockSize returns the block edge length in meters.
func (l *MeshLayer) BlockSize() float64 { return l.blockSize }

// Size returns the number of mesh blocks.
func (l *MeshLayer) Size() int { return len(l.blocks) }

// BlockIndexFromPoint returns the index of the block containing a point.
func (l *MeshLayer) BlockIndexFromPoint(p r3.Vector) VoxelIndex {
	return IndexFromPoint(p, l.blockSize)
}

// UpsertBlock returns the block at an index, creating it if needed, reset
// for re-extraction and stamped with a fresh update sequence number.
func (l *MeshLayer) UpsertBlock(idx VoxelIndex) *MeshBlock {
	b, ok := l.blocks[idx]
	if !ok {
		b = &MeshBlock{}
		l.blocks[idx] = b
	}
	b.Vertices = b.Vertices[:0]
	b.Colors = b.Colors[:0]
	b.Triangles = b.Triangles[:0]
	l.seq++
	b.UpdatedSeq = l.seq
	return b
}

// Block returns the block at an index, if present.
func (l *MeshLayer) Block(idx VoxelIndex) (*MeshBlock, bool) {
	b, ok := l.blocks[idx]
	return b, ok
}

// Iterate visits every block until fn returns false.
func (l *MeshLayer) Iterate(fn func(VoxelIndex, *MeshBlock) bool) {
	for idx, b := range l.blocks {
		if !fn(idx, b) {
			return
		}
	}
}

// Serialized byte cost per element, used for bandwidth estimation: a
// vertex is three float32, a color three bytes, a triangle three int32.
const (
	vertexBytes   = 12
	colorBytes    = 3
	triangleBytes = 12
)

// SerializedMesh is a flattened, read-only snapshot of a set of mesh
// blocks. Each serialization call produces a fresh handle with its own ID.
type SerializedMesh struct {
	ID           string
	BlockIndices []VoxelIndex
	Vertices     []r3.Vector
	Colors       []frame.RGB
	Triangles    [][3]int32
}

// NewSerializedMesh returns an empty serialized mesh with a fresh identity.
func NewSerializedMesh() *SerializedMesh {
	return &SerializedMesh{ID: uuid.NewString()}
}

// AppendBlock copies one mesh block into the snapshot, offsetting triangle
// indices to the snapshot's vertex numbering.
func (m *SerializedMesh) AppendBlock(idx VoxelIndex, b *MeshBlock) {
	offset := int32(len(m.Vertices))
	m.BlockIndices = append(m.BlockIndices, idx)
	m.Vertices = append(m.Vertices, b.Vertices...)
	m.Colors = append(m.Colors, b.Colors...)
	for _, tri := range b.Triangles {
		m.Triangles = append(m.Triangles, [3]int32{tri[0] + offset, tri[1] + offset, tri[2] + offset})
	}
}

// SizeBytes estimates the wire size of the snapshot.
func (m *SerializedMesh) SizeBytes() int {
	return len(m.Vertices)*vertexBytes + len(m.Colors)*colorBytes + len(m.Triangles)*triangleBytes
}
