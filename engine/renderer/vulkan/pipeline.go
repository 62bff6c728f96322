package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// NOTE: 32 is the max number of ranges we can ever have, since Vulkan only guarantees 128 bytes with 4-byte alignment.
const maxPushConstantRanges = 32

func (d *Device) CreatePipelineLayout(info metadata.PipelineLayoutCreateInfo) (metadata.PipelineLayout, error) {
	if len(info.PushConstants) > maxPushConstantRanges {
		err := errors.Newf("cannot have more than %d push constant ranges. Passed count: %d", maxPushConstantRanges, len(info.PushConstants))
		core.LogError(err.Error())
		return 0, err
	}

	setLayouts := make([]vk.DescriptorSetLayout, len(info.SetLayouts))
	for i, l := range info.SetLayouts {
		layout, ok := d.setLayouts.get(metadata.Handle(l))
		if !ok {
			err := errors.Wrapf(core.ErrNotFound, "descriptor set layout %d", l)
			core.LogError(err.Error())
			return 0, err
		}
		setLayouts[i] = layout
	}
	ranges := make([]vk.PushConstantRange, len(info.PushConstants))
	for i, r := range info.PushConstants {
		ranges[i] = vk.PushConstantRange{
			StageFlags: toShaderStageFlags(r.Stages),
			Offset:     r.Offset,
			Size:       r.Size,
		}
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}

	var layout vk.PipelineLayout
	if err := d.locks.SafeCall(PipelineManagement, func() error {
		result := vk.CreatePipelineLayout(d.logicalDevice, &pipelineLayoutCreateInfo, nil, &layout)
		if !VulkanResultIsSuccess(result) {
			return resultError("vkCreatePipelineLayout", result)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.PipelineLayout(d.pipelineLayouts.put(layout)), nil
}

func (d *Device) DestroyPipelineLayout(l metadata.PipelineLayout) {
	if layout, ok := d.pipelineLayouts.take(metadata.Handle(l)); ok {
		vk.DestroyPipelineLayout(d.logicalDevice, layout, nil)
	}
}

func (d *Device) CreateGraphicsPipeline(cache metadata.PipelineCache, info metadata.GraphicsPipelineCreateInfo) (metadata.Pipeline, error) {
	layout, ok := d.pipelineLayouts.get(metadata.Handle(info.Layout))
	if !ok {
		err := errors.Wrapf(core.ErrNotFound, "pipeline layout %d", info.Layout)
		core.LogError(err.Error())
		return 0, err
	}
	renderPass, ok := d.renderPasses.get(metadata.Handle(info.RenderPass))
	if !ok {
		err := errors.Wrapf(core.ErrNotFound, "render pass %d", info.RenderPass)
		core.LogError(err.Error())
		return 0, err
	}
	stages := make([]vk.PipelineShaderStageCreateInfo, len(info.Stages))
	for i, s := range info.Stages {
		stage, err := d.shaderStage(s)
		if err != nil {
			return 0, err
		}
		stages[i] = stage
	}

	// Viewport state
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{toViewport(info.Viewport)},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{toRect(info.Scissor)},
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                toCullMode(info.CullMode),
		FrontFace:               toFrontFace(info.FrontFace),
		DepthBiasEnable:         vk.False,
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if info.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = toCompareOp(info.DepthCompare)
	}
	if info.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorWriteMask := vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
		vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit)
	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, info.ColorAttachmentCount)
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:    vk.False,
			ColorWriteMask: colorWriteMask,
		}
		// Integer targets cannot blend.
		if info.AlphaBlending && !info.IntegerTarget {
			blendAttachments[i].BlendEnable = vk.True
			blendAttachments[i].SrcColorBlendFactor = vk.BlendFactorSrcAlpha
			blendAttachments[i].DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
			blendAttachments[i].ColorBlendOp = vk.BlendOpAdd
			blendAttachments[i].SrcAlphaBlendFactor = vk.BlendFactorSrcAlpha
			blendAttachments[i].DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
			blendAttachments[i].AlphaBlendOp = vk.BlendOpAdd
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	// Dynamic state
	dynamicStates := make([]vk.DynamicState, len(info.DynamicStates))
	for i, s := range info.DynamicStates {
		dynamicStates[i] = toDynamicState(s)
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input
	bindings := make([]vk.VertexInputBindingDescription, len(info.VertexBindings))
	for i, b := range info.VertexBindings {
		bindings[i] = vk.VertexInputBindingDescription{
			Binding:   b.Binding,
			Stride:    b.Stride,
			InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
		}
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(info.VertexAttributes))
	for i, a := range info.VertexAttributes {
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  a.Binding,
			Format:   toFormat(a.Format),
			Offset:   a.Offset,
		}
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               toTopology(info.Topology),
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             info.Subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := d.locks.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(d.logicalDevice, d.pipelineCache(cache), 1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, nil, pipelines)
		if !VulkanResultIsSuccess(result) {
			return resultError("vkCreateGraphicsPipelines", result)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.Pipeline(d.pipelines.put(pipelines[0])), nil
}

func (d *Device) CreateComputePipeline(cache metadata.PipelineCache, info metadata.ComputePipelineCreateInfo) (metadata.Pipeline, error) {
	layout, ok := d.pipelineLayouts.get(metadata.Handle(info.Layout))
	if !ok {
		err := errors.Wrapf(core.ErrNotFound, "pipeline layout %d", info.Layout)
		core.LogError(err.Error())
		return 0, err
	}
	stage, err := d.shaderStage(info.Stage)
	if err != nil {
		return 0, err
	}
	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              stage,
		Layout:             layout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := d.locks.SafeCall(PipelineManagement, func() error {
		result := vk.CreateComputePipelines(d.logicalDevice, d.pipelineCache(cache), 1,
			[]vk.ComputePipelineCreateInfo{pipelineCreateInfo}, nil, pipelines)
		if !VulkanResultIsSuccess(result) {
			return resultError("vkCreateComputePipelines", result)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.Pipeline(d.pipelines.put(pipelines[0])), nil
}

func (d *Device) DestroyPipeline(p metadata.Pipeline) {
	if pipeline, ok := d.pipelines.take(metadata.Handle(p)); ok {
		vk.DestroyPipeline(d.logicalDevice, pipeline, nil)
	}
}

func (d *Device) CreatePipelineCache() (metadata.PipelineCache, error) {
	createInfo := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var cache vk.PipelineCache
	if res := vk.CreatePipelineCache(d.logicalDevice, &createInfo, nil, &cache); res != vk.Success {
		return 0, resultError("vkCreatePipelineCache", res)
	}
	return metadata.PipelineCache(d.pipelineCaches.put(cache)), nil
}

func (d *Device) DestroyPipelineCache(c metadata.PipelineCache) {
	if cache, ok := d.pipelineCaches.take(metadata.Handle(c)); ok {
		vk.DestroyPipelineCache(d.logicalDevice, cache, nil)
	}
}

// pipelineCache resolves c, returning the null cache for 0.
func (d *Device) pipelineCache(c metadata.PipelineCache) vk.PipelineCache {
	if cache, ok := d.pipelineCaches.get(metadata.Handle(c)); ok {
		return cache
	}
	return vk.NullPipelineCache
}
