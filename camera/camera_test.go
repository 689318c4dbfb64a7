package camera

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestProjectUnprojectRoundTrip(t *testing.T) {
	cam := NewSimple(640, 480, 500)

	p := cam.Unproject(100, 200, 2.5)
	u, v, ok := cam.Project(p)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, u, test.ShouldAlmostEqual, 100, 1e-9)
	test.That(t, v, test.ShouldAlmostEqual, 200, 1e-9)
}

func TestProjectBehindCamera(t *testing.T) {
	cam := NewSimple(640, 480, 500)
	_, _, ok := cam.Project(r3.Vector{X: 0, Y: 0, Z: -1})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestProjectOutsideImage(t *testing.T) {
	cam := NewSimple(64, 48, 50)
	// A point far off-axis lands outside the image bounds.
	_, _, ok := cam.Project(r3.Vector{X: 10, Y: 0, Z: 1})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestKMatrix(t *testing.T) {
	cam := New(640, 480, 500, 510, 320, 240)
	k := cam.K()
	test.That(t, k.At(0, 0), test.ShouldEqual, 500)
	test.That(t, k.At(1, 1), test.ShouldEqual, 510)
	test.That(t, k.At(0, 2), test.ShouldEqual, 320)
	test.That(t, k.At(1, 2), test.ShouldEqual, 240)
	test.That(t, k.At(2, 2), test.ShouldEqual, 1)
}

func TestCheckDimensions(t *testing.T) {
	cam := NewSimple(640, 480, 500)
	test.That(t, cam.CheckDimensions(640, 480), test.ShouldBeNil)
	err := cam.CheckDimensions(320, 240)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "don't match")
}
