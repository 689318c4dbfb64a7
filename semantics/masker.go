// Package semantics separates sensor frames into static and dynamic/human
// content: ImageMasker splits frames along an externally supplied mask,
// DynamicsDetection derives a mask from a freespace layer.
package semantics

import (
	"math"

	"github.com/orbbec/nvblox/camera"
	"github.com/orbbec/nvblox/frame"
	"github.com/orbbec/nvblox/spatial"
)

// ImageMasker splits depth and color frames into masked and unmasked
// subsets. Output buffers are supplied by the caller and sized lazily, so
// repeated calls reuse storage.
type ImageMasker struct {
	reprojectedMask frame.Mono
}

// NewImageMasker returns a ready masker.
func NewImageMasker() *ImageMasker {
	return &ImageMasker{}
}

// SplitDepth partitions a depth frame between maskedOut and unmaskedOut.
// The mask lives in the mask camera's image plane; each depth pixel is
// unprojected, moved into the mask camera frame with tMaskFromDepth and
// projected to look its mask value up. Pixels whose reprojection misses the
// mask image count as unmasked. Pixels excluded from an output are written
// as zero (no return) there.
func (im *ImageMasker) SplitDepth(
	depth *frame.Depth,
	mask *frame.Mono,
	depthCam, maskCam camera.Camera,
	tMaskFromDepth *spatial.Transform,
	unmaskedOut, maskedOut *frame.Depth,
) error {
	if err := depthCam.CheckDimensions(depth.Width(), depth.Height()); err != nil {
		return err
	}
	if err := maskCam.CheckDimensions(mask.Width(), mask.Height()); err != nil {
		return err
	}

	unmaskedOut.EnsureSize(depth.Width(), depth.Height())
	maskedOut.EnsureSize(depth.Width(), depth.Height())
	im.reprojectedMask.EnsureSize(depth.Width(), depth.Height())

	for y := 0; y < depth.Height(); y++ {
		for x := 0; x < depth.Width(); x++ {
			d := depth.At(x, y)
			if d <= 0 {
				unmaskedOut.Set(x, y, d)
				maskedOut.Set(x, y, 0)
				im.reprojectedMask.Set(x, y, 0)
				continue
			}
			masked := false
			pDepth := depthCam.Unproject(x, y, float64(d))
			pMask := tMaskFromDepth.Apply(pDepth)
			if u, v, ok := maskCam.Project(pMask); ok {
				masked = mask.At(int(math.Floor(u)), int(math.Floor(v))) > 0
			}
			if masked {
				maskedOut.Set(x, y, d)
				unmaskedOut.Set(x, y, 0)
				im.reprojectedMask.Set(x, y, 1)
			} else {
				unmaskedOut.Set(x, y, d)
				maskedOut.Set(x, y, 0)
				im.reprojectedMask.Set(x, y, 0)
			}
		}
	}
	return nil
}

// SplitColor partitions a color frame between maskedOut and unmaskedOut.
// The mask is aligned with the color frame, so no reprojection happens;
// dimensions must match. Excluded pixels are written black.
func (im *ImageMasker) SplitColor(
	color *frame.Color,
	mask *frame.Mono,
	unmaskedOut, maskedOut *frame.Color,
) error {
	if err := frame.CheckSameSize(color.Width(), color.Height(), mask.Width(), mask.Height()); err != nil {
		return err
	}

	unmaskedOut.EnsureSize(color.Width(), color.Height())
	maskedOut.EnsureSize(color.Width(), color.Height())

	var black frame.RGB
	for y := 0; y < color.Height(); y++ {
		for x := 0; x < color.Width(); x++ {
			c := color.At(x, y)
			if mask.At(x, y) > 0 {
				maskedOut.Set(x, y, c)
				unmaskedOut.Set(x, y, black)
			} else {
				unmaskedOut.Set(x, y, c)
				maskedOut.Set(x, y, black)
			}
		}
	}
	return nil
}

// ReprojectedMask returns the mask from the last SplitDepth call, expressed
// in the depth camera's image plane. Valid until the next SplitDepth call.
func (im *ImageMasker) ReprojectedMask() *frame.Mono {
	return &im.reprojectedMask
}
