package frame

// Debug overlays rendered by the orchestrator after each masked
// integration. Masked pixels are tinted red over the source frame.

const overlayMaxDepth = 10.0 // meters mapped to full brightness

var maskTint = RGB{R: 255, G: 40, B: 40}

// RenderDepthMaskOverlay draws depth as grayscale into dst, tinting masked
// pixels. dst is resized to match the depth frame.
func RenderDepthMaskOverlay(dst *Color, depth *Depth, mask *Mono) {
	dst.EnsureSize(depth.Width(), depth.Height())
	for y := 0; y < depth.Height(); y++ {
		for x := 0; x < depth.Width(); x++ {
			if mask.HasData() && mask.At(x, y) > 0 {
				dst.Set(x, y, maskTint)
				continue
			}
			g := grayFromDepth(depth.At(x, y))
			dst.Set(x, y, RGB{R: g, G: g, B: g})
		}
	}
}

// RenderColorMaskOverlay copies color into dst, tinting masked pixels.
func RenderColorMaskOverlay(dst *Color, color *Color, mask *Mono) {
	dst.EnsureSize(color.Width(), color.Height())
	for y := 0; y < color.Height(); y++ {
		for x := 0; x < color.Width(); x++ {
			if mask.HasData() && mask.At(x, y) > 0 {
				dst.Set(x, y, maskTint)
				continue
			}
			dst.Set(x, y, color.At(x, y))
		}
	}
}

func grayFromDepth(d float32) uint8 {
	if d <= 0 {
		return 0
	}
	if d > overlayMaxDepth {
		d = overlayMaxDepth
	}
	return uint8(d / overlayMaxDepth * 255)
}
