package material

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

type colorUBO struct {
	Color mgl32.Vec4
}

// ColorMaterial shades a model with a flat color.
type ColorMaterial struct {
	base
	Color mgl32.Vec4
}

func NewColorMaterial(device metadata.ResourceDevice, setLayout metadata.DescriptorSetLayout, pipeline string, color mgl32.Vec4) (*ColorMaterial, error) {
	b, err := newBase(device, setLayout, pipeline, 16)
	if err != nil {
		return nil, err
	}
	m := &ColorMaterial{base: b, Color: color}
	if err := m.Flush(); err != nil {
		m.Destroy()
		return nil, err
	}
	return m, nil
}

func (m *ColorMaterial) Kind() Kind {
	return KindColor
}

// Flush uploads Color.
func (m *ColorMaterial) Flush() error {
	return m.write(colorUBO{Color: m.Color})
}

func (m *ColorMaterial) Draw(cmd metadata.CommandBuffer, layout metadata.PipelineLayout, lastBound *metadata.DescriptorSet, model metadata.Model, transform mgl32.Mat4) error {
	m.bindSet(cmd, layout, lastBound)
	if model == nil {
		return nil
	}
	cmd.PushConstants(layout, metadata.ShaderStageVertex, 0, pushMat4(transform))
	model.Bind(cmd)
	cmd.DrawIndexed(model.IndexCount(), 1, 0, 0, 0)
	return nil
}

// pushMat4 encodes m column-major for a push constant range.
func pushMat4(m mgl32.Mat4) []byte {
	buf := make([]byte, 64)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
