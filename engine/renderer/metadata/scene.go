package metadata

import "github.com/go-gl/mathgl/mgl32"

/** @brief GPU-resident geometry that binds its own vertex and index buffers. */
type Model interface {
	Bind(cmd CommandBuffer)
	IndexCount() uint32
}

/** @brief Tag identifying a material implementation. */
type MaterialKind uint8

/**
 * @brief A material owns its set 1 resources and issues the draw for one
 * object. lastBound caches the set 1 bound by the previous draw in the same
 * pass; implementations skip the bind when it matches and update it when not.
 */
type Material interface {
	Kind() MaterialKind
	PipelineName() string
	DescriptorSet() DescriptorSet
	Draw(cmd CommandBuffer, layout PipelineLayout, lastBound *DescriptorSet, model Model, transform mgl32.Mat4) error
}

/** @brief One drawable object. Model is nil for procedural draws. */
type Renderable struct {
	Model     Model
	Material  Material
	Transform mgl32.Mat4
}
