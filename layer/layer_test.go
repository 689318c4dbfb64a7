package layer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/orbbec/nvblox/frame"
)

func TestIndexFromPoint(t *testing.T) {
	idx := IndexFromPoint(r3.Vector{X: 0.25, Y: -0.05, Z: 1.0}, 0.1)
	test.That(t, idx, test.ShouldResemble, VoxelIndex{I: 2, J: -1, K: 10})

	center := VoxelIndex{I: 0, J: 0, K: 0}.Center(0.1)
	test.That(t, center.X, test.ShouldAlmostEqual, 0.05, 1e-12)
}

func TestTsdfSurface(t *testing.T) {
	l := NewTsdfLayer(0.1)
	idx := VoxelIndex{I: 1, J: 2, K: 3}
	test.That(t, l.IsSurface(idx), test.ShouldBeFalse)

	l.Set(idx, TsdfVoxel{Distance: 0.01, Weight: 1})
	test.That(t, l.IsSurface(idx), test.ShouldBeTrue)

	l.Set(idx, TsdfVoxel{Distance: 0.3, Weight: 1})
	test.That(t, l.IsSurface(idx), test.ShouldBeFalse)

	// Zero weight means unobserved no matter the distance.
	l.Set(idx, TsdfVoxel{Distance: 0, Weight: 0})
	test.That(t, l.IsSurface(idx), test.ShouldBeFalse)
}

func TestOccupancyObservations(t *testing.T) {
	l := NewOccupancyLayer(0.1)
	idx := VoxelIndex{}
	test.That(t, l.IsOccupied(idx), test.ShouldBeFalse)

	l.ObserveOccupied(idx)
	test.That(t, l.IsOccupied(idx), test.ShouldBeTrue)

	// Enough free observations flip it back.
	for i := 0; i < 10; i++ {
		l.ObserveFree(idx)
	}
	test.That(t, l.IsOccupied(idx), test.ShouldBeFalse)
}

func TestFreespaceMinDuration(t *testing.T) {
	l := NewFreespaceLayer(0.1, 1000)
	idx := VoxelIndex{I: 5}

	l.ObserveFree(idx, 0)
	test.That(t, l.IsFree(idx), test.ShouldBeFalse)

	l.ObserveFree(idx, 500)
	test.That(t, l.IsFree(idx), test.ShouldBeFalse)

	l.ObserveFree(idx, 1000)
	test.That(t, l.IsFree(idx), test.ShouldBeTrue)

	// A single occupied hit does not clear the state; a dynamic object
	// passing through must stay detectable against the free voxel.
	l.ObserveOccupied(idx, 1500)
	test.That(t, l.IsFree(idx), test.ShouldBeTrue)

	// A sustained occupied streak does.
	l.ObserveOccupied(idx, 2500)
	test.That(t, l.IsFree(idx), test.ShouldBeFalse)

	// Becoming free again needs a fresh full free streak.
	l.ObserveFree(idx, 2600)
	test.That(t, l.IsFree(idx), test.ShouldBeFalse)
	l.ObserveFree(idx, 3600)
	test.That(t, l.IsFree(idx), test.ShouldBeTrue)
}

func TestFreespaceFreeObservationInterruptsOccupiedStreak(t *testing.T) {
	l := NewFreespaceLayer(0.1, 1000)
	idx := VoxelIndex{I: 7}
	l.ObserveFree(idx, 0)
	l.ObserveFree(idx, 1000)
	test.That(t, l.IsFree(idx), test.ShouldBeTrue)

	l.ObserveOccupied(idx, 1100)
	l.ObserveFree(idx, 1600)
	// The free observation broke the occupied streak; still free.
	l.ObserveOccupied(idx, 2500)
	test.That(t, l.IsFree(idx), test.ShouldBeTrue)
}

func TestEsdfSites(t *testing.T) {
	l := NewEsdfLayer(0.1)
	l.Set(VoxelIndex{I: 1}, EsdfVoxel{IsSite: true})
	l.Set(VoxelIndex{I: 2}, EsdfVoxel{DistanceM: 0.1})
	test.That(t, l.IsSite(VoxelIndex{I: 1}), test.ShouldBeTrue)
	test.That(t, l.IsSite(VoxelIndex{I: 2}), test.ShouldBeFalse)
	test.That(t, len(l.Sites()), test.ShouldEqual, 1)

	l.Clear()
	test.That(t, l.Size(), test.ShouldEqual, 0)
}

func TestSerializedMeshAppendBlock(t *testing.T) {
	b1 := &MeshBlock{
		Vertices:  []r3.Vector{{}, {X: 1}, {Y: 1}},
		Colors:    []frame.RGB{{}, {}, {}},
		Triangles: [][3]int32{{0, 1, 2}},
	}
	b2 := &MeshBlock{
		Vertices:  []r3.Vector{{Z: 1}, {X: 1, Z: 1}, {Y: 1, Z: 1}},
		Colors:    []frame.RGB{{}, {}, {}},
		Triangles: [][3]int32{{0, 1, 2}},
	}

	m := NewSerializedMesh()
	test.That(t, m.ID, test.ShouldNotBeEmpty)
	m.AppendBlock(VoxelIndex{}, b1)
	m.AppendBlock(VoxelIndex{K: 1}, b2)

	test.That(t, len(m.Vertices), test.ShouldEqual, 6)
	// Triangle indices of the second block are offset past the first.
	test.That(t, m.Triangles[1], test.ShouldResemble, [3]int32{3, 4, 5})
	test.That(t, m.SizeBytes(), test.ShouldEqual, 6*12+6*3+2*12)

	m2 := NewSerializedMesh()
	test.That(t, m2.ID, test.ShouldNotEqual, m.ID)
}

func TestWritePLY(t *testing.T) {
	m := NewSerializedMesh()
	m.AppendBlock(VoxelIndex{}, &MeshBlock{
		Vertices:  []r3.Vector{{}, {X: 1}, {Y: 1}},
		Colors:    []frame.RGB{{R: 255}, {G: 255}, {B: 255}},
		Triangles: [][3]int32{{0, 1, 2}},
	})

	var buf bytes.Buffer
	test.That(t, m.WritePLY(&buf), test.ShouldBeNil)
	out := buf.String()
	test.That(t, strings.HasPrefix(out, "ply\n"), test.ShouldBeTrue)
	test.That(t, out, test.ShouldContainSubstring, "element vertex 3")
	test.That(t, out, test.ShouldContainSubstring, "element face 1")
	test.That(t, out, test.ShouldContainSubstring, "property uchar red")
	test.That(t, out, test.ShouldContainSubstring, "3 0 1 2")
}
