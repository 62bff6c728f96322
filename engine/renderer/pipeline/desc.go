package pipeline

import (
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// Kind selects the builder used for a Desc.
type Kind int

const (
	KindGraphics Kind = iota
	KindCompute
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindGraphics:
		return "graphics"
	case KindCompute:
		return "compute"
	case KindCustom:
		return "custom"
	}
	return "unknown"
}

/**
 * @brief Fixed-function state and shader paths of a graphics pipeline.
 * Paths point at compiled SPIR-V files.
 */
type GraphicsDesc struct {
	VertexShader   string
	FragmentShader string

	/** @brief When false the pipeline takes no vertex buffers (procedural draws). */
	VertexInput      bool
	VertexBindings   []metadata.VertexBinding
	VertexAttributes []metadata.VertexAttribute

	Topology      metadata.PrimitiveTopology
	CullMode      metadata.CullMode
	FrontFace     metadata.FrontFace
	DepthTest     bool
	DepthWrite    bool
	DepthCompare  metadata.CompareOp
	AlphaBlending bool
	DynamicStates []metadata.DynamicState
	Subpass       uint32

	/** @brief Number of color attachments of the target pass. Zero means one. */
	ColorAttachmentCount uint32
	/** @brief The target is an integer format; blending is disabled. */
	IntegerTarget bool
}

// DefaultGraphicsDesc returns a triangle-list pipeline with back-face
// culling, depth test and write enabled, no blending and dynamic viewport
// and scissor.
func DefaultGraphicsDesc(vertexShader, fragmentShader string) *GraphicsDesc {
	return &GraphicsDesc{
		VertexShader:   vertexShader,
		FragmentShader: fragmentShader,
		VertexInput:    true,
		Topology:       metadata.PrimitiveTopologyTriangleList,
		CullMode:       metadata.CullModeBack,
		FrontFace:      metadata.FrontFaceCounterClockwise,
		DepthTest:      true,
		DepthWrite:     true,
		DepthCompare:   metadata.CompareOpLess,
		DynamicStates:  []metadata.DynamicState{metadata.DynamicStateViewport, metadata.DynamicStateScissor},
	}
}

type ComputeDesc struct {
	Shader string
}

// CustomBuilder builds a pipeline the generic builders cannot express. It
// receives the layout created from the Desc and the manager's current render
// pass, which is null for managers without one.
type CustomBuilder func(device metadata.PipelineDevice, layout metadata.PipelineLayout, renderPass metadata.RenderPass) (metadata.Pipeline, error)

// Desc fully describes how to build a named pipeline. The manager keeps it
// unchanged so the pipeline can be rebuilt at any time.
type Desc struct {
	Kind          Kind
	SetLayouts    []metadata.DescriptorSetLayout
	PushConstants []metadata.PushConstantRange

	Graphics *GraphicsDesc
	Compute  *ComputeDesc
	Custom   CustomBuilder

	// ShaderFiles lists extra SPIR-V files a Custom builder reads, so hot
	// reload can find it.
	ShaderFiles []string
}

// ShaderPaths returns every SPIR-V file the pipeline is built from.
func (d Desc) ShaderPaths() []string {
	var paths []string
	switch d.Kind {
	case KindGraphics:
		if d.Graphics != nil {
			paths = append(paths, d.Graphics.VertexShader, d.Graphics.FragmentShader)
		}
	case KindCompute:
		if d.Compute != nil {
			paths = append(paths, d.Compute.Shader)
		}
	}
	return append(paths, d.ShaderFiles...)
}
