package mapper

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/orbbec/nvblox/camera"
	"github.com/orbbec/nvblox/frame"
	"github.com/orbbec/nvblox/gpu"
	"github.com/orbbec/nvblox/layer"
	"github.com/orbbec/nvblox/parameters"
	"github.com/orbbec/nvblox/semantics"
	"github.com/orbbec/nvblox/spatial"
)

// MultiMapper coordinates two mapping engines. Frames are routed between
// them according to the mapping mode:
//
//   - masked engine:   general dynamics or humans, in an occupancy layer.
//     Exists only when the mode uses both engines.
//   - unmasked engine: static scenery, in a tsdf or occupancy layer. Also
//     maintains a freespace layer in Dynamic mode.
//
// In Dynamic mode the full depth frame goes into the unmasked engine with
// no masking. Freespace could otherwise never be reset: depth measurements
// falling into freespace would always be diverted away as dynamic. The
// price is that esdf sites of the unmasked engine falling into freespace
// must be ignored at update time; they are dynamic content owned by the
// masked engine.
//
// All work runs on one shared execution stream, so consecutive calls that
// reuse the pre-allocated frame buffers need no extra synchronization.
type MultiMapper struct {
	logger golog.Logger

	mode     MappingMode
	esdfMode EsdfMode
	params   MultiMapperParams

	stream     gpu.Stream
	ownsStream bool

	unmasked *Mapper
	masked   *Mapper

	masker   *semantics.ImageMasker
	detector *semantics.DynamicsDetection
	streamer *MeshStreamer

	depthUnmasked frame.Depth
	depthMasked   frame.Depth
	colorUnmasked frame.Color
	colorMasked   frame.Color

	cleanedDynamicMask frame.Mono
	dynamicPointcloud  frame.Pointcloud

	depthMaskOverlay   frame.Color
	colorMaskOverlay   frame.Color
	dynamicMaskOverlay frame.Color
}

// NewMultiMapper builds the orchestrator. The unmasked engine always
// exists; the masked engine only when the mode uses both. A nil strm makes
// the orchestrator create and own one; Close then tears it down.
func NewMultiMapper(
	voxelSizeM float64,
	mode MappingMode,
	esdfMode EsdfMode,
	memType MemoryType,
	strm gpu.Stream,
	logger golog.Logger,
) *MultiMapper {
	mm := &MultiMapper{
		logger:   logger,
		mode:     mode,
		esdfMode: esdfMode,
		params:   DefaultMultiMapperParams(),
		stream:   strm,
		masker:   semantics.NewImageMasker(),
		detector: semantics.NewDynamicsDetection(),
	}
	if mm.stream == nil {
		mm.stream = gpu.NewOwningStream(logger)
		mm.ownsStream = true
	}
	mm.streamer = NewMeshStreamer(mm.params.MeshBandwidthLimitMbps)

	mm.unmasked = NewMapper(
		voxelSizeM,
		mode.IsStaticOccupancy(),
		mode.IsDynamicMapping(),
		esdfMode, memType, logger,
	)
	if mode.IsUsingBothMappers() {
		// The masked engine always maps into occupancy: dynamic and human
		// content is transient, and a tsdf would smear it.
		mm.masked = NewMapper(voxelSizeM, true, false, esdfMode, memType, logger)
	}
	logger.Infow("multi mapper constructed",
		"mode", mode.String(),
		"esdf_mode", esdfMode.String(),
		"voxel_size_m", voxelSizeM,
		"both_mappers", mode.IsUsingBothMappers(),
	)
	return mm
}

// Close drains and releases the execution stream when the orchestrator owns
// it. Borrowed streams are left to their owner.
func (mm *MultiMapper) Close() error {
	if !mm.ownsStream {
		return nil
	}
	if owning, ok := mm.stream.(*gpu.OwningStream); ok {
		return owning.Close()
	}
	return nil
}

// Mode returns the configured mapping mode.
func (mm *MultiMapper) Mode() MappingMode { return mm.mode }

// UnmaskedMapper returns the static-scenery engine.
func (mm *MultiMapper) UnmaskedMapper() *Mapper { return mm.unmasked }

// MaskedMapper returns the dynamic/human engine, nil when the mode only
// uses one engine.
func (mm *MultiMapper) MaskedMapper() *Mapper { return mm.masked }

// Stream returns the shared execution stream.
func (mm *MultiMapper) Stream() gpu.Stream { return mm.stream }

// SetParams applies an orchestrator tuning.
func (mm *MultiMapper) SetParams(p MultiMapperParams) {
	mm.params = p
	mm.streamer.SetBandwidthLimitMbps(p.MeshBandwidthLimitMbps)
}

// SetMapperParams applies engine tunings. maskedParams is consumed only
// when a masked engine exists; supplying it otherwise is a no-op since the
// configuration is purely additive.
func (mm *MultiMapper) SetMapperParams(unmaskedParams MapperParams, maskedParams *MapperParams) {
	mm.unmasked.SetParams(unmaskedParams)
	if mm.masked != nil && maskedParams != nil {
		mm.masked.SetParams(*maskedParams)
	}
}

// IntegrateDepth integrates a full, unsplit depth frame. Valid for the
// single-frame modes (StaticSdf, StaticOccupancy, Dynamic); human modes
// need a mask and must use IntegrateDepthWithMask. In Dynamic mode the
// frame additionally drives dynamics detection, and the detected subset is
// routed into the masked engine.
func (mm *MultiMapper) IntegrateDepth(
	depth *frame.Depth,
	tLayerFromCamera *spatial.Transform,
	cam camera.Camera,
	updateTimeMs *int64,
) error {
	if mm.mode.IsHumanMapping() {
		return errors.Errorf("mapping mode %s requires a mask; use IntegrateDepthWithMask", mm.mode)
	}
	if err := cam.CheckDimensions(depth.Width(), depth.Height()); err != nil {
		return err
	}

	mm.stream.Enqueue(func() {
		if err := mm.unmasked.IntegrateDepth(depth, tLayerFromCamera, cam, updateTimeMs); err != nil {
			mm.logger.Errorw("unmasked depth integration failed", "error", err)
			return
		}
		if !mm.mode.IsDynamicMapping() {
			return
		}
		if err := mm.detector.ComputeDynamics(
			depth,
			mm.unmasked.FreespaceLayer(),
			tLayerFromCamera,
			cam,
			mm.params.ConnectedMaskComponentSizeThreshold,
			&mm.cleanedDynamicMask,
			&mm.dynamicPointcloud,
		); err != nil {
			mm.logger.Errorw("dynamics detection failed", "error", err)
			return
		}
		frame.RenderDepthMaskOverlay(&mm.dynamicMaskOverlay, depth, &mm.cleanedDynamicMask)
		if mm.dynamicPointcloud.Size() == 0 {
			// Nothing detected; the masked engine has nothing to integrate.
			return
		}
		// The mask lives in the depth camera's own image plane, so the
		// split needs no reprojection.
		if err := mm.masker.SplitDepth(
			depth, &mm.cleanedDynamicMask,
			cam, cam, spatial.NewTransform(),
			&mm.depthUnmasked, &mm.depthMasked,
		); err != nil {
			mm.logger.Errorw("dynamic frame split failed", "error", err)
			return
		}
		if err := mm.masked.IntegrateDepth(&mm.depthMasked, tLayerFromCamera, cam, updateTimeMs); err != nil {
			mm.logger.Errorw("masked depth integration failed", "error", err)
		}
	})
	return nil
}

// IntegrateDepthWithMask integrates a depth frame split along an externally
// supplied mask. Valid only for the human modes. The mask lives in the mask
// camera's image plane; tMaskFromDepth moves points from the depth camera
// frame into the mask camera frame.
func (mm *MultiMapper) IntegrateDepthWithMask(
	depth *frame.Depth,
	mask *frame.Mono,
	tLayerFromDepthCamera, tMaskFromDepth *spatial.Transform,
	depthCam, maskCam camera.Camera,
) error {
	if !mm.mode.IsHumanMapping() {
		return errors.Errorf("mapping mode %s takes no external mask; use IntegrateDepth", mm.mode)
	}
	if err := multierr.Combine(
		depthCam.CheckDimensions(depth.Width(), depth.Height()),
		maskCam.CheckDimensions(mask.Width(), mask.Height()),
	); err != nil {
		return err
	}

	mm.stream.Enqueue(func() {
		if err := mm.masker.SplitDepth(
			depth, mask,
			depthCam, maskCam, tMaskFromDepth,
			&mm.depthUnmasked, &mm.depthMasked,
		); err != nil {
			mm.logger.Errorw("depth frame split failed", "error", err)
			return
		}
		if err := mm.unmasked.IntegrateDepth(&mm.depthUnmasked, tLayerFromDepthCamera, depthCam, nil); err != nil {
			mm.logger.Errorw("unmasked depth integration failed", "error", err)
			return
		}
		if err := mm.masked.IntegrateDepth(&mm.depthMasked, tLayerFromDepthCamera, depthCam, nil); err != nil {
			mm.logger.Errorw("masked depth integration failed", "error", err)
			return
		}
		frame.RenderDepthMaskOverlay(&mm.depthMaskOverlay, depth, mm.masker.ReprojectedMask())
	})
	return nil
}

// IntegrateColor integrates a full color frame into the unmasked engine.
// Valid for the single-frame modes.
func (mm *MultiMapper) IntegrateColor(
	color *frame.Color,
	tLayerFromCamera *spatial.Transform,
	cam camera.Camera,
) error {
	if mm.mode.IsHumanMapping() {
		return errors.Errorf("mapping mode %s requires a mask; use IntegrateColorWithMask", mm.mode)
	}
	if err := cam.CheckDimensions(color.Width(), color.Height()); err != nil {
		return err
	}

	mm.stream.Enqueue(func() {
		if err := mm.unmasked.IntegrateColor(color, tLayerFromCamera, cam); err != nil {
			mm.logger.Errorw("unmasked color integration failed", "error", err)
		}
	})
	return nil
}

// IntegrateColorWithMask integrates a color frame split along a mask
// aligned with it. Valid only for the human modes.
func (mm *MultiMapper) IntegrateColorWithMask(
	color *frame.Color,
	mask *frame.Mono,
	tLayerFromCamera *spatial.Transform,
	cam camera.Camera,
) error {
	if !mm.mode.IsHumanMapping() {
		return errors.Errorf("mapping mode %s takes no external mask; use IntegrateColor", mm.mode)
	}
	if err := multierr.Combine(
		cam.CheckDimensions(color.Width(), color.Height()),
		frame.CheckSameSize(color.Width(), color.Height(), mask.Width(), mask.Height()),
	); err != nil {
		return err
	}

	mm.stream.Enqueue(func() {
		if err := mm.masker.SplitColor(color, mask, &mm.colorUnmasked, &mm.colorMasked); err != nil {
			mm.logger.Errorw("color frame split failed", "error", err)
			return
		}
		if err := mm.unmasked.IntegrateColor(&mm.colorUnmasked, tLayerFromCamera, cam); err != nil {
			mm.logger.Errorw("unmasked color integration failed", "error", err)
			return
		}
		if err := mm.masked.IntegrateColor(&mm.colorMasked, tLayerFromCamera, cam); err != nil {
			mm.logger.Errorw("masked color integration failed", "error", err)
			return
		}
		frame.RenderColorMaskOverlay(&mm.colorMaskOverlay, color, mask)
	})
	return nil
}

// UpdateEsdf recomputes the distance field of every active engine. In
// Dynamic mode, unmasked sites falling into current freespace are excluded:
// they are transient dynamic content whose true occupancy the masked engine
// owns, and keeping them would seed the static field with phantom
// obstacles. The freespace state is consulted fresh on every call.
func (mm *MultiMapper) UpdateEsdf() {
	mm.stream.Enqueue(func() {
		var exclude func(layer.VoxelIndex) bool
		if mm.mode.IsDynamicMapping() {
			freespace := mm.unmasked.FreespaceLayer()
			exclude = func(idx layer.VoxelIndex) bool {
				return freespace.IsFree(idx)
			}
		}
		mm.unmasked.UpdateEsdf(exclude)
		if mm.masked != nil {
			mm.masked.UpdateEsdf(nil)
		}
	})
}

// UpdateMesh re-extracts the mesh of every mesh-producing engine and
// returns a fresh serialized snapshot. Engines running occupancy-only
// representations produce no mesh and are skipped. Unless fullMesh is set,
// the snapshot is truncated to the configured bandwidth budget; the
// optional viewpoint prioritizes blocks visible from it. The call
// synchronizes the stream: the returned handle is ready for host
// consumption.
func (mm *MultiMapper) UpdateMesh(viewpoint *spatial.Transform, fullMesh bool) *layer.SerializedMesh {
	var serialized *layer.SerializedMesh
	mm.stream.Enqueue(func() {
		mm.unmasked.UpdateMesh()
		if mm.masked != nil {
			mm.masked.UpdateMesh()
		}
		var meshLayer *layer.MeshLayer
		if mm.unmasked.HasMesh() {
			meshLayer = mm.unmasked.MeshLayer()
		} else if mm.masked != nil && mm.masked.HasMesh() {
			meshLayer = mm.masked.MeshLayer()
		}
		serialized = mm.streamer.Serialize(meshLayer, viewpoint, fullMesh)
	})
	mm.stream.Synchronize()
	return serialized
}

// LastDepthFrameUnmasked returns the unmasked subset of the last split
// depth frame. Valid until the next depth integration.
func (mm *MultiMapper) LastDepthFrameUnmasked() *frame.Depth { return &mm.depthUnmasked }

// LastDepthFrameMasked returns the masked subset of the last split depth
// frame. Valid until the next depth integration.
func (mm *MultiMapper) LastDepthFrameMasked() *frame.Depth { return &mm.depthMasked }

// LastColorFrameUnmasked returns the unmasked subset of the last split
// color frame. Valid until the next color integration.
func (mm *MultiMapper) LastColorFrameUnmasked() *frame.Color { return &mm.colorUnmasked }

// LastColorFrameMasked returns the masked subset of the last split color
// frame. Valid until the next color integration.
func (mm *MultiMapper) LastColorFrameMasked() *frame.Color { return &mm.colorMasked }

// LastDepthFrameMaskOverlay returns the depth/mask debug overlay.
func (mm *MultiMapper) LastDepthFrameMaskOverlay() *frame.Color { return &mm.depthMaskOverlay }

// LastColorFrameMaskOverlay returns the color/mask debug overlay.
func (mm *MultiMapper) LastColorFrameMaskOverlay() *frame.Color { return &mm.colorMaskOverlay }

// LastDynamicFrameMaskOverlay returns the dynamic-mask debug overlay.
func (mm *MultiMapper) LastDynamicFrameMaskOverlay() *frame.Color { return &mm.dynamicMaskOverlay }

// LastDynamicPointcloud returns the layer-frame points last classified
// dynamic. Valid until the next Dynamic-mode depth integration.
func (mm *MultiMapper) LastDynamicPointcloud() *frame.Pointcloud { return &mm.dynamicPointcloud }

// ParameterTree returns the orchestrator's parameters plus both engines'
// trees, recursing into the masked engine only when it exists. Safe to call
// at any time, including before any frame has been integrated.
func (mm *MultiMapper) ParameterTree(nameRemap string) *parameters.Node {
	name := "multi_mapper"
	if nameRemap != "" {
		name = nameRemap
	}
	var maskedNode *parameters.Node
	if mm.masked != nil {
		maskedNode = mm.masked.ParameterTree("masked_mapper")
	}
	return parameters.NewBranch(name,
		parameters.NewLeaf("mapping_mode", mm.mode),
		parameters.NewLeaf("connected_mask_component_size_threshold", mm.params.ConnectedMaskComponentSizeThreshold),
		parameters.NewLeaf("mesh_bandwidth_limit_mbps", mm.params.MeshBandwidthLimitMbps),
		mm.unmasked.ParameterTree("unmasked_mapper"),
		maskedNode,
	)
}

// ParametersAsString returns the flattened one-line-per-parameter view.
func (mm *MultiMapper) ParametersAsString() string {
	return mm.ParameterTree("").Flatten()
}
