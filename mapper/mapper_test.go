package mapper

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/orbbec/nvblox/camera"
	"github.com/orbbec/nvblox/frame"
	"github.com/orbbec/nvblox/layer"
	"github.com/orbbec/nvblox/spatial"
)

const testVoxelSize = 0.25

func testCam() camera.Camera { return camera.NewSimple(8, 6, 10) }

func wallFrame(depth float32) *frame.Depth {
	d := frame.NewDepth(8, 6)
	d.Fill(depth)
	return d
}

func int64Ptr(v int64) *int64 { return &v }

func TestTsdfDepthIntegration(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, false, false, Esdf3D, MemoryDevice, logger)
	test.That(t, m.WasUpdated(), test.ShouldBeFalse)
	test.That(t, m.HasMesh(), test.ShouldBeTrue)
	test.That(t, m.OccupancyLayer(), test.ShouldBeNil)

	err := m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), testCam(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.WasUpdated(), test.ShouldBeTrue)

	// The voxel behind the central pixel sits on the surface.
	idx := layer.VoxelIndex{I: 0, J: 0, K: 8}
	test.That(t, m.TsdfLayer().IsSurface(idx), test.ShouldBeTrue)
}

func TestTsdfDepthDimensionMismatch(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, false, false, Esdf3D, MemoryDevice, logger)
	err := m.IntegrateDepth(frame.NewDepth(4, 4), spatial.NewTransform(), testCam(), nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, m.WasUpdated(), test.ShouldBeFalse)
}

func TestOccupancyDepthIntegration(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, true, false, Esdf3D, MemoryDevice, logger)
	test.That(t, m.HasMesh(), test.ShouldBeFalse)
	test.That(t, m.TsdfLayer(), test.ShouldBeNil)

	err := m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), testCam(), nil)
	test.That(t, err, test.ShouldBeNil)

	occ := m.OccupancyLayer()
	test.That(t, occ.IsOccupied(layer.VoxelIndex{I: 0, J: 0, K: 8}), test.ShouldBeTrue)
	// Space between camera and wall was carved free.
	test.That(t, occ.IsOccupied(layer.VoxelIndex{I: 0, J: 0, K: 1}), test.ShouldBeFalse)
}

func TestFreespaceBecomesFreeOverTime(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, false, true, Esdf3D, MemoryDevice, logger)
	fs := m.FreespaceLayer()
	test.That(t, fs, test.ShouldNotBeNil)

	cam := testCam()
	test.That(t, m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), cam, int64Ptr(0)), test.ShouldBeNil)
	carved := layer.VoxelIndex{I: 0, J: 0, K: 1}
	test.That(t, fs.IsFree(carved), test.ShouldBeFalse)

	test.That(t, m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), cam, int64Ptr(layer.DefaultMinDurationMs)), test.ShouldBeNil)
	test.That(t, fs.IsFree(carved), test.ShouldBeTrue)
	// The surface itself never becomes free.
	test.That(t, fs.IsFree(layer.VoxelIndex{I: 0, J: 0, K: 8}), test.ShouldBeFalse)
}

func TestFreespaceUsesClockWhenNoTimestamp(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, false, true, Esdf3D, MemoryDevice, logger)
	mock := clock.NewMock()
	m.SetClock(mock)

	cam := testCam()
	test.That(t, m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), cam, nil), test.ShouldBeNil)
	carved := layer.VoxelIndex{I: 0, J: 0, K: 1}
	test.That(t, m.FreespaceLayer().IsFree(carved), test.ShouldBeFalse)

	mock.Add(layer.DefaultMinDurationMs * time.Millisecond)
	test.That(t, m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), cam, nil), test.ShouldBeNil)
	test.That(t, m.FreespaceLayer().IsFree(carved), test.ShouldBeTrue)
}

func TestUpdateEsdfSitesAndExclusion(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, false, false, Esdf3D, MemoryDevice, logger)
	test.That(t, m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), testCam(), nil), test.ShouldBeNil)

	m.UpdateEsdf(nil)
	sites := m.EsdfLayer().Sites()
	test.That(t, len(sites), test.ShouldBeGreaterThan, 0)

	// Excluding everything leaves no sites.
	m.UpdateEsdf(func(layer.VoxelIndex) bool { return true })
	test.That(t, len(m.EsdfLayer().Sites()), test.ShouldEqual, 0)
}

func TestUpdateEsdf2DIgnoresHeight(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, true, false, Esdf2D, MemoryDevice, logger)
	occ := m.OccupancyLayer()
	site := layer.VoxelIndex{I: 0, J: 0, K: 8}
	occ.ObserveOccupied(site)
	// A voxel straight below the site, allocated via a free observation.
	below := layer.VoxelIndex{I: 0, J: 0, K: 0}
	occ.ObserveFree(below)

	m.UpdateEsdf(nil)
	v, ok := m.EsdfLayer().At(below)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v.DistanceM, test.ShouldEqual, 0)

	m3 := NewMapper(testVoxelSize, true, false, Esdf3D, MemoryDevice, logger)
	m3.OccupancyLayer().ObserveOccupied(site)
	m3.OccupancyLayer().ObserveFree(below)
	m3.UpdateEsdf(nil)
	v3, ok := m3.EsdfLayer().At(below)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v3.DistanceM, test.ShouldAlmostEqual, 8*testVoxelSize, 1e-6)
}

func TestUpdateMeshDirtyBlockTracking(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, false, false, Esdf3D, MemoryDevice, logger)
	test.That(t, m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), testCam(), nil), test.ShouldBeNil)

	updated := m.UpdateMesh()
	test.That(t, len(updated), test.ShouldBeGreaterThan, 0)
	block, ok := m.MeshLayer().Block(updated[0])
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(block.Vertices), test.ShouldBeGreaterThan, 0)

	// Nothing dirty until the next integration.
	test.That(t, len(m.UpdateMesh()), test.ShouldEqual, 0)
	test.That(t, m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), testCam(), nil), test.ShouldBeNil)
	test.That(t, len(m.UpdateMesh()), test.ShouldBeGreaterThan, 0)
}

func TestOccupancyEngineProducesNoMesh(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, true, false, Esdf3D, MemoryDevice, logger)
	test.That(t, m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), testCam(), nil), test.ShouldBeNil)
	test.That(t, m.UpdateMesh(), test.ShouldBeNil)
	test.That(t, m.MeshLayer(), test.ShouldBeNil)
}

func TestColorIntegrationColorsMesh(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, false, false, Esdf3D, MemoryDevice, logger)
	cam := testCam()
	test.That(t, m.IntegrateDepth(wallFrame(2), spatial.NewTransform(), cam, nil), test.ShouldBeNil)

	red := frame.NewColor(8, 6)
	red.Fill(frame.RGB{R: 200})
	test.That(t, m.IntegrateColor(red, spatial.NewTransform(), cam), test.ShouldBeNil)

	updated := m.UpdateMesh()
	test.That(t, len(updated), test.ShouldBeGreaterThan, 0)
	foundRed := false
	m.MeshLayer().Iterate(func(_ layer.VoxelIndex, b *layer.MeshBlock) bool {
		for _, c := range b.Colors {
			if c.R == 200 {
				foundRed = true
				return false
			}
		}
		return true
	})
	test.That(t, foundRed, test.ShouldBeTrue)
}

func TestMapperParameterTree(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := NewMapper(testVoxelSize, false, true, Esdf2D, MemoryHostPinned, logger)
	flat := m.ParameterTree("engine").Flatten()
	test.That(t, flat, test.ShouldContainSubstring, "engine.voxel_size_m: 0.25")
	test.That(t, flat, test.ShouldContainSubstring, "engine.projective_layer: tsdf")
	test.That(t, flat, test.ShouldContainSubstring, "engine.esdf_mode: 2d")
	test.That(t, flat, test.ShouldContainSubstring, "engine.memory_type: host_pinned")
	test.That(t, flat, test.ShouldContainSubstring, "freespace_min_duration_ms")
}
