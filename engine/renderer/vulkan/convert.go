package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

var formats = map[metadata.Format]vk.Format{
	metadata.FormatUndefined:       vk.FormatUndefined,
	metadata.FormatB8G8R8A8Unorm:   vk.FormatB8g8r8a8Unorm,
	metadata.FormatB8G8R8A8Srgb:    vk.FormatB8g8r8a8Srgb,
	metadata.FormatR8G8B8A8Unorm:   vk.FormatR8g8b8a8Unorm,
	metadata.FormatR8G8B8A8Srgb:    vk.FormatR8g8b8a8Srgb,
	metadata.FormatR32Uint:         vk.FormatR32Uint,
	metadata.FormatR32G32Sfloat:    vk.FormatR32g32Sfloat,
	metadata.FormatR32G32B32Sfloat: vk.FormatR32g32b32Sfloat,
	metadata.FormatD32Sfloat:       vk.FormatD32Sfloat,
	metadata.FormatD32SfloatS8Uint: vk.FormatD32SfloatS8Uint,
	metadata.FormatD24UnormS8Uint:  vk.FormatD24UnormS8Uint,
}

func toFormat(f metadata.Format) vk.Format {
	return formats[f]
}

// fromFormat reports false for native formats the engine has no name for.
func fromFormat(f vk.Format) (metadata.Format, bool) {
	for k, v := range formats {
		if v == f {
			return k, true
		}
	}
	return metadata.FormatUndefined, false
}

func toColorSpace(c metadata.ColorSpace) vk.ColorSpace {
	if c == metadata.ColorSpaceExtendedSrgbLinear {
		return vk.ColorSpaceExtendedSrgbLinear
	}
	return vk.ColorSpaceSrgbNonlinear
}

func fromColorSpace(c vk.ColorSpace) (metadata.ColorSpace, bool) {
	switch c {
	case vk.ColorSpaceSrgbNonlinear:
		return metadata.ColorSpaceSrgbNonlinear, true
	case vk.ColorSpaceExtendedSrgbLinear:
		return metadata.ColorSpaceExtendedSrgbLinear, true
	}
	return 0, false
}

var presentModes = map[metadata.PresentMode]vk.PresentMode{
	metadata.PresentModeImmediate:   vk.PresentModeImmediate,
	metadata.PresentModeMailbox:     vk.PresentModeMailbox,
	metadata.PresentModeFifo:        vk.PresentModeFifo,
	metadata.PresentModeFifoRelaxed: vk.PresentModeFifoRelaxed,
}

func toPresentMode(p metadata.PresentMode) vk.PresentMode {
	if m, ok := presentModes[p]; ok {
		return m
	}
	return vk.PresentModeFifo
}

func fromPresentMode(p vk.PresentMode) (metadata.PresentMode, bool) {
	for k, v := range presentModes {
		if v == p {
			return k, true
		}
	}
	return 0, false
}

func toImageLayout(l metadata.ImageLayout) vk.ImageLayout {
	switch l {
	case metadata.ImageLayoutColorAttachmentOptimal:
		return vk.ImageLayoutColorAttachmentOptimal
	case metadata.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case metadata.ImageLayoutShaderReadOnlyOptimal:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case metadata.ImageLayoutTransferSrcOptimal:
		return vk.ImageLayoutTransferSrcOptimal
	case metadata.ImageLayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

func toLoadOp(op metadata.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case metadata.LoadOpLoad:
		return vk.AttachmentLoadOpLoad
	case metadata.LoadOpClear:
		return vk.AttachmentLoadOpClear
	}
	return vk.AttachmentLoadOpDontCare
}

func toStoreOp(op metadata.StoreOp) vk.AttachmentStoreOp {
	if op == metadata.StoreOpStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

var pipelineStageBits = []struct {
	stage metadata.PipelineStage
	bit   vk.PipelineStageFlagBits
}{
	{metadata.PipelineStageTopOfPipe, vk.PipelineStageTopOfPipeBit},
	{metadata.PipelineStageEarlyFragmentTests, vk.PipelineStageEarlyFragmentTestsBit},
	{metadata.PipelineStageColorAttachmentOutput, vk.PipelineStageColorAttachmentOutputBit},
	{metadata.PipelineStageComputeShader, vk.PipelineStageComputeShaderBit},
	{metadata.PipelineStageBottomOfPipe, vk.PipelineStageBottomOfPipeBit},
}

func toPipelineStageFlags(s metadata.PipelineStage) vk.PipelineStageFlags {
	var out vk.PipelineStageFlags
	for _, b := range pipelineStageBits {
		if s&b.stage != 0 {
			out |= vk.PipelineStageFlags(b.bit)
		}
	}
	return out
}

var accessBits = []struct {
	access metadata.Access
	bit    vk.AccessFlagBits
}{
	{metadata.AccessColorAttachmentRead, vk.AccessColorAttachmentReadBit},
	{metadata.AccessColorAttachmentWrite, vk.AccessColorAttachmentWriteBit},
	{metadata.AccessDepthStencilAttachmentRead, vk.AccessDepthStencilAttachmentReadBit},
	{metadata.AccessDepthStencilAttachmentWrite, vk.AccessDepthStencilAttachmentWriteBit},
	{metadata.AccessTransferRead, vk.AccessTransferReadBit},
}

func toAccessFlags(a metadata.Access) vk.AccessFlags {
	var out vk.AccessFlags
	for _, b := range accessBits {
		if a&b.access != 0 {
			out |= vk.AccessFlags(b.bit)
		}
	}
	return out
}

func toImageUsageFlags(u metadata.ImageUsage) vk.ImageUsageFlags {
	var out vk.ImageUsageFlags
	if u&metadata.ImageUsageColorAttachment != 0 {
		out |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if u&metadata.ImageUsageDepthStencilAttachment != 0 {
		out |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	if u&metadata.ImageUsageTransferSrc != 0 {
		out |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	if u&metadata.ImageUsageSampled != 0 {
		out |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	return out
}

// toAspectFlags adds the stencil aspect for combined depth/stencil formats.
func toAspectFlags(a metadata.ImageAspect, f metadata.Format) vk.ImageAspectFlags {
	var out vk.ImageAspectFlags
	if a&metadata.ImageAspectColor != 0 {
		out |= vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	if a&metadata.ImageAspectDepth != 0 {
		out |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		if f == metadata.FormatD32SfloatS8Uint || f == metadata.FormatD24UnormS8Uint {
			out |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}
	}
	return out
}

func toBufferUsageFlags(u metadata.BufferUsage) vk.BufferUsageFlags {
	var out vk.BufferUsageFlags
	if u&metadata.BufferUsageVertex != 0 {
		out |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if u&metadata.BufferUsageIndex != 0 {
		out |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if u&metadata.BufferUsageUniform != 0 {
		out |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	return out
}

func toIndexType(t metadata.IndexType) vk.IndexType {
	if t == metadata.IndexTypeUint32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func toShaderStageFlags(s metadata.ShaderStage) vk.ShaderStageFlags {
	var out vk.ShaderStageFlags
	if s&metadata.ShaderStageVertex != 0 {
		out |= vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	}
	if s&metadata.ShaderStageFragment != 0 {
		out |= vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	if s&metadata.ShaderStageCompute != 0 {
		out |= vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
	return out
}

// toShaderStageBit maps a single stage.
func toShaderStageBit(s metadata.ShaderStage) vk.ShaderStageFlagBits {
	switch s {
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit
	case metadata.ShaderStageCompute:
		return vk.ShaderStageComputeBit
	}
	return vk.ShaderStageVertexBit
}

func toBindPoint(bp metadata.PipelineBindPoint) vk.PipelineBindPoint {
	if bp == metadata.PipelineBindPointCompute {
		return vk.PipelineBindPointCompute
	}
	return vk.PipelineBindPointGraphics
}

func toTopology(t metadata.PrimitiveTopology) vk.PrimitiveTopology {
	switch t {
	case metadata.PrimitiveTopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case metadata.PrimitiveTopologyLineList:
		return vk.PrimitiveTopologyLineList
	case metadata.PrimitiveTopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case metadata.PrimitiveTopologyPointList:
		return vk.PrimitiveTopologyPointList
	}
	return vk.PrimitiveTopologyTriangleList
}

func toCullMode(c metadata.CullMode) vk.CullModeFlags {
	switch c {
	case metadata.CullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.CullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	}
	return vk.CullModeFlags(vk.CullModeBackBit)
}

func toFrontFace(f metadata.FrontFace) vk.FrontFace {
	if f == metadata.FrontFaceClockwise {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

var compareOps = map[metadata.CompareOp]vk.CompareOp{
	metadata.CompareOpLess:           vk.CompareOpLess,
	metadata.CompareOpNever:          vk.CompareOpNever,
	metadata.CompareOpEqual:          vk.CompareOpEqual,
	metadata.CompareOpLessOrEqual:    vk.CompareOpLessOrEqual,
	metadata.CompareOpGreater:        vk.CompareOpGreater,
	metadata.CompareOpNotEqual:       vk.CompareOpNotEqual,
	metadata.CompareOpGreaterOrEqual: vk.CompareOpGreaterOrEqual,
	metadata.CompareOpAlways:         vk.CompareOpAlways,
}

func toCompareOp(op metadata.CompareOp) vk.CompareOp {
	if v, ok := compareOps[op]; ok {
		return v
	}
	return vk.CompareOpLess
}

func toDynamicState(s metadata.DynamicState) vk.DynamicState {
	switch s {
	case metadata.DynamicStateScissor:
		return vk.DynamicStateScissor
	case metadata.DynamicStateLineWidth:
		return vk.DynamicStateLineWidth
	}
	return vk.DynamicStateViewport
}

func toDescriptorType(t metadata.DescriptorType) vk.DescriptorType {
	if t == metadata.DescriptorTypeCombinedImageSampler {
		return vk.DescriptorTypeCombinedImageSampler
	}
	return vk.DescriptorTypeUniformBuffer
}

func toExtent(e metadata.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func fromExtent(e vk.Extent2D) metadata.Extent2D {
	return metadata.Extent2D{Width: e.Width, Height: e.Height}
}

func toRect(r metadata.Rect2D) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: r.Offset.X, Y: r.Offset.Y},
		Extent: toExtent(r.Extent),
	}
}

func toViewport(v metadata.Viewport) vk.Viewport {
	return vk.Viewport{
		X:        v.X,
		Y:        v.Y,
		Width:    v.Width,
		Height:   v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}
}
