package semantics

import (
	"testing"

	"go.viam.com/test"

	"github.com/orbbec/nvblox/camera"
	"github.com/orbbec/nvblox/frame"
	"github.com/orbbec/nvblox/spatial"
)

func TestSplitDepthAlignedCameras(t *testing.T) {
	cam := camera.NewSimple(8, 6, 10)
	depth := frame.NewDepth(8, 6)
	depth.Fill(2)
	mask := frame.NewMono(8, 6)
	// Mask a 2x2 region.
	mask.Set(3, 2, 255)
	mask.Set(4, 2, 255)
	mask.Set(3, 3, 255)
	mask.Set(4, 3, 255)

	im := NewImageMasker()
	var unmasked, masked frame.Depth
	err := im.SplitDepth(depth, mask, cam, cam, spatial.NewTransform(), &unmasked, &masked)
	test.That(t, err, test.ShouldBeNil)

	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			inRegion := (x == 3 || x == 4) && (y == 2 || y == 3)
			if inRegion {
				test.That(t, masked.At(x, y), test.ShouldEqual, 2)
				test.That(t, unmasked.At(x, y), test.ShouldEqual, 0)
			} else {
				test.That(t, masked.At(x, y), test.ShouldEqual, 0)
				test.That(t, unmasked.At(x, y), test.ShouldEqual, 2)
			}
		}
	}
	test.That(t, im.ReprojectedMask().At(3, 2), test.ShouldEqual, 1)
	test.That(t, im.ReprojectedMask().At(0, 0), test.ShouldEqual, 0)
}

func TestSplitDepthInvalidPixels(t *testing.T) {
	cam := camera.NewSimple(4, 4, 5)
	depth := frame.NewDepth(4, 4)
	mask := frame.NewMono(4, 4)
	mask.Fill(255)

	im := NewImageMasker()
	var unmasked, masked frame.Depth
	err := im.SplitDepth(depth, mask, cam, cam, spatial.NewTransform(), &unmasked, &masked)
	test.That(t, err, test.ShouldBeNil)
	// No-return pixels never reach the masked output.
	test.That(t, masked.At(1, 1), test.ShouldEqual, 0)
}

func TestSplitDepthDimensionMismatch(t *testing.T) {
	depthCam := camera.NewSimple(8, 6, 10)
	maskCam := camera.NewSimple(4, 4, 5)
	depth := frame.NewDepth(8, 6)
	badMask := frame.NewMono(8, 6)

	im := NewImageMasker()
	var unmasked, masked frame.Depth
	err := im.SplitDepth(depth, badMask, depthCam, maskCam, spatial.NewTransform(), &unmasked, &masked)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "don't match")
}

func TestSplitColor(t *testing.T) {
	color := frame.NewColor(3, 2)
	color.Fill(frame.RGB{R: 10, G: 20, B: 30})
	mask := frame.NewMono(3, 2)
	mask.Set(1, 1, 1)

	im := NewImageMasker()
	var unmasked, masked frame.Color
	test.That(t, im.SplitColor(color, mask, &unmasked, &masked), test.ShouldBeNil)
	test.That(t, masked.At(1, 1), test.ShouldResemble, frame.RGB{R: 10, G: 20, B: 30})
	test.That(t, unmasked.At(1, 1), test.ShouldResemble, frame.RGB{})
	test.That(t, unmasked.At(0, 0), test.ShouldResemble, frame.RGB{R: 10, G: 20, B: 30})
	test.That(t, masked.At(0, 0), test.ShouldResemble, frame.RGB{})
}

func TestSplitColorDimensionMismatch(t *testing.T) {
	color := frame.NewColor(3, 2)
	mask := frame.NewMono(2, 3)
	im := NewImageMasker()
	var unmasked, masked frame.Color
	err := im.SplitColor(color, mask, &unmasked, &masked)
	test.That(t, err, test.ShouldNotBeNil)
}
