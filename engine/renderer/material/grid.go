package material

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

const (
	DefaultGridThickness      = 4
	DefaultGridSamplesPerLine = 128
)

// GridUBO matches the grid shader's std140 uniform block.
type GridUBO struct {
	Color        mgl32.Vec4
	Spacing      float32
	Dimension    int32
	GlowStrength float32
	GlowPower    float32
	NearFade     float32
	FarFade      float32
	Time         float32
	_            float32
}

/**
 * @brief Procedural ground grid. Lines are generated in the vertex shader
 * from the instance index, so no model is bound.
 */
type GridMaterial struct {
	base
	UBO            GridUBO
	Thickness      float32
	SamplesPerLine uint32
}

func NewGridMaterial(device metadata.ResourceDevice, setLayout metadata.DescriptorSetLayout, pipeline string, ubo GridUBO) (*GridMaterial, error) {
	if ubo.Dimension < 0 {
		err := errors.Newf("grid dimension must not be negative, got %d", ubo.Dimension)
		core.LogError(err.Error())
		return nil, err
	}
	b, err := newBase(device, setLayout, pipeline, 48)
	if err != nil {
		return nil, err
	}
	m := &GridMaterial{
		base:           b,
		UBO:            ubo,
		Thickness:      DefaultGridThickness,
		SamplesPerLine: DefaultGridSamplesPerLine,
	}
	if err := m.Flush(); err != nil {
		m.Destroy()
		return nil, err
	}
	return m, nil
}

func (m *GridMaterial) Kind() Kind {
	return KindGrid
}

func (m *GridMaterial) Flush() error {
	return m.write(m.UBO)
}

// Update advances the animation time.
func (m *GridMaterial) Update(dt float64) error {
	m.UBO.Time += float32(dt)
	return m.Flush()
}

// InstanceCount is the number of line instances for the configured
// dimension: three axes of (2*dimension+1)^2 lines. A negative dimension
// counts as 0.
func (m *GridMaterial) InstanceCount() uint32 {
	s := uint32(2*max(m.UBO.Dimension, 0) + 1)
	return 3 * s * s
}

func (m *GridMaterial) Draw(cmd metadata.CommandBuffer, layout metadata.PipelineLayout, lastBound *metadata.DescriptorSet, model metadata.Model, transform mgl32.Mat4) error {
	m.bindSet(cmd, layout, lastBound)
	cmd.SetLineWidth(m.Thickness)
	cmd.Draw(m.SamplesPerLine, m.InstanceCount(), 0, 0)
	return nil
}
