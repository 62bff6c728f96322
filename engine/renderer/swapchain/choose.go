package swapchain

import (
	"github.com/spaghettifunk/vks/engine/math"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// candidate depth formats in order of preference
var depthFormats = []metadata.Format{
	metadata.FormatD32Sfloat,
	metadata.FormatD32SfloatS8Uint,
	metadata.FormatD24UnormS8Uint,
}

// ChooseSurfaceFormat prefers 8-bit BGRA sRGB with the sRGB non-linear color
// space and otherwise takes the first format the surface reports.
func ChooseSurfaceFormat(formats []metadata.SurfaceFormat) metadata.SurfaceFormat {
	for _, f := range formats {
		if f.Format == metadata.FormatB8G8R8A8Srgb && f.ColorSpace == metadata.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	if len(formats) == 0 {
		return metadata.SurfaceFormat{}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox and falls back to FIFO, which every
// implementation must support.
func ChoosePresentMode(modes []metadata.PresentMode) metadata.PresentMode {
	for _, m := range modes {
		if m == metadata.PresentModeMailbox {
			return m
		}
	}
	return metadata.PresentModeFifo
}

// ChooseImageCount asks for one image more than the minimum. A max of zero
// means the surface has no upper bound.
func ChooseImageCount(caps metadata.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseExtent uses the surface's current extent unless the surface leaves
// it to the window, in which case the framebuffer size is clamped into the
// supported range.
func ChooseExtent(caps metadata.SurfaceCapabilities, width, height int) metadata.Extent2D {
	if caps.CurrentExtent.Width != metadata.UndefinedExtent {
		return caps.CurrentExtent
	}
	w := uint32(math.Clamp(width, 0, int(^uint32(0)>>1)))
	h := uint32(math.Clamp(height, 0, int(^uint32(0)>>1)))
	return metadata.Extent2D{
		Width:  math.Clamp(w, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(h, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseDepthFormat returns the first supported depth format.
func ChooseDepthFormat(device metadata.PresentDevice) (metadata.Format, bool) {
	for _, f := range depthFormats {
		if device.SupportsDepthFormat(f) {
			return f, true
		}
	}
	return metadata.FormatUndefined, false
}
