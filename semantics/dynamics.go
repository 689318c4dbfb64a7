package semantics

import (
	"github.com/orbbec/nvblox/camera"
	"github.com/orbbec/nvblox/frame"
	"github.com/orbbec/nvblox/layer"
	"github.com/orbbec/nvblox/spatial"
)

// DynamicsDetection derives a dynamic mask from a freespace layer: a depth
// measurement landing in a voxel the map believes to be free must belong to
// something that moved in. Small connected components are discarded as
// noise before the mask is handed to the masked pipeline.
type DynamicsDetection struct {
	labels []int32
	queue  []int
}

// NewDynamicsDetection returns a ready detector.
func NewDynamicsDetection() *DynamicsDetection {
	return &DynamicsDetection{}
}

// ComputeDynamics fills outMask with the cleaned dynamic mask for a depth
// frame and outCloud with the layer-frame points classified dynamic.
// tLayerFromCamera poses the depth camera in the layer frame;
// minComponentSize is the smallest connected pixel region kept.
func (dd *DynamicsDetection) ComputeDynamics(
	depth *frame.Depth,
	freespace *layer.FreespaceLayer,
	tLayerFromCamera *spatial.Transform,
	cam camera.Camera,
	minComponentSize int,
	outMask *frame.Mono,
	outCloud *frame.Pointcloud,
) error {
	if err := cam.CheckDimensions(depth.Width(), depth.Height()); err != nil {
		return err
	}

	outMask.EnsureSize(depth.Width(), depth.Height())
	for y := 0; y < depth.Height(); y++ {
		for x := 0; x < depth.Width(); x++ {
			d := depth.At(x, y)
			if d <= 0 {
				outMask.Set(x, y, 0)
				continue
			}
			p := tLayerFromCamera.Apply(cam.Unproject(x, y, float64(d)))
			if freespace.IsFree(layer.IndexFromPoint(p, freespace.VoxelSize())) {
				outMask.Set(x, y, 255)
			} else {
				outMask.Set(x, y, 0)
			}
		}
	}

	dd.removeSmallComponents(outMask, minComponentSize)

	outCloud.Clear()
	for y := 0; y < depth.Height(); y++ {
		for x := 0; x < depth.Width(); x++ {
			if outMask.At(x, y) == 0 {
				continue
			}
			d := depth.At(x, y)
			outCloud.Append(tLayerFromCamera.Apply(cam.Unproject(x, y, float64(d))))
		}
	}
	return nil
}

// removeSmallComponents zeroes every 4-connected mask component smaller
// than minSize pixels.
func (dd *DynamicsDetection) removeSmallComponents(mask *frame.Mono, minSize int) {
	if minSize <= 1 {
		return
	}
	w, h := mask.Width(), mask.Height()
	if cap(dd.labels) < w*h {
		dd.labels = make([]int32, w*h)
	}
	dd.labels = dd.labels[:w*h]
	for i := range dd.labels {
		dd.labels[i] = 0
	}

	next := int32(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.At(x, y) == 0 || dd.labels[y*w+x] != 0 {
				continue
			}
			next++
			component := dd.flood(mask, x, y, next)
			if len(component) < minSize {
				for _, i := range component {
					mask.Set(i%w, i/w, 0)
				}
			}
		}
	}
}

func (dd *DynamicsDetection) flood(mask *frame.Mono, x, y int, label int32) []int {
	w, h := mask.Width(), mask.Height()
	dd.queue = dd.queue[:0]
	start := y*w + x
	dd.labels[start] = label
	dd.queue = append(dd.queue, start)

	for head := 0; head < len(dd.queue); head++ {
		i := dd.queue[head]
		cx, cy := i%w, i/w
		for _, n := range [4][2]int{{cx - 1, cy}, {cx + 1, cy}, {cx, cy - 1}, {cx, cy + 1}} {
			nx, ny := n[0], n[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			ni := ny*w + nx
			if mask.At(nx, ny) == 0 || dd.labels[ni] != 0 {
				continue
			}
			dd.labels[ni] = label
			dd.queue = append(dd.queue, ni)
		}
	}
	return dd.queue
}
