package pipeline

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

func (m *Manager) build(desc Desc) (metadata.Pipeline, metadata.PipelineLayout, error) {
	layout, err := m.device.CreatePipelineLayout(metadata.PipelineLayoutCreateInfo{
		SetLayouts:    desc.SetLayouts,
		PushConstants: desc.PushConstants,
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to create pipeline layout")
	}

	var pipeline metadata.Pipeline
	switch desc.Kind {
	case KindGraphics:
		pipeline, err = m.buildGraphics(desc.Graphics, layout)
	case KindCompute:
		pipeline, err = m.buildCompute(desc.Compute, layout)
	case KindCustom:
		if desc.Custom == nil {
			err = errors.New("custom pipeline without a builder")
			break
		}
		pipeline, err = desc.Custom(m.device, layout, m.currentRenderPass())
	default:
		err = errors.Newf("unknown pipeline kind %d", desc.Kind)
	}
	if err == nil && pipeline == 0 {
		err = errors.Newf("%s builder returned a null pipeline", desc.Kind)
	}
	if err != nil {
		if pipeline != 0 {
			m.device.DestroyPipeline(pipeline)
		}
		m.device.DestroyPipelineLayout(layout)
		return 0, 0, err
	}
	return pipeline, layout, nil
}

func (m *Manager) buildGraphics(g *GraphicsDesc, layout metadata.PipelineLayout) (metadata.Pipeline, error) {
	if g == nil {
		return 0, errors.New("graphics pipeline without a graphics description")
	}
	modules := &shaderModules{device: m.device}
	defer modules.release()

	vert, err := modules.load(g.VertexShader, metadata.ShaderStageVertex)
	if err != nil {
		return 0, err
	}
	frag, err := modules.load(g.FragmentShader, metadata.ShaderStageFragment)
	if err != nil {
		return 0, err
	}

	info := metadata.GraphicsPipelineCreateInfo{
		Stages:               []metadata.ShaderStageInfo{vert, frag},
		Topology:             g.Topology,
		Viewport:             metadata.Viewport{Width: 1, Height: 1, MaxDepth: 1},
		Scissor:              metadata.Rect2D{Extent: metadata.Extent2D{Width: 1, Height: 1}},
		CullMode:             g.CullMode,
		FrontFace:            g.FrontFace,
		DepthTest:            g.DepthTest,
		DepthWrite:           g.DepthWrite,
		DepthCompare:         g.DepthCompare,
		AlphaBlending:        g.AlphaBlending && !g.IntegerTarget,
		ColorAttachmentCount: g.ColorAttachmentCount,
		IntegerTarget:        g.IntegerTarget,
		DynamicStates:        g.DynamicStates,
		Layout:               layout,
		RenderPass:           m.currentRenderPass(),
		Subpass:              g.Subpass,
	}
	if info.ColorAttachmentCount == 0 {
		info.ColorAttachmentCount = 1
	}
	if g.VertexInput {
		info.VertexBindings = g.VertexBindings
		info.VertexAttributes = g.VertexAttributes
	}

	pipeline, err := m.device.CreateGraphicsPipeline(m.cache, info)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create graphics pipeline")
	}
	return pipeline, nil
}

func (m *Manager) buildCompute(c *ComputeDesc, layout metadata.PipelineLayout) (metadata.Pipeline, error) {
	if c == nil {
		return 0, errors.New("compute pipeline without a compute description")
	}
	modules := &shaderModules{device: m.device}
	defer modules.release()

	stage, err := modules.load(c.Shader, metadata.ShaderStageCompute)
	if err != nil {
		return 0, err
	}
	pipeline, err := m.device.CreateComputePipeline(m.cache, metadata.ComputePipelineCreateInfo{
		Stage:  stage,
		Layout: layout,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to create compute pipeline")
	}
	return pipeline, nil
}
