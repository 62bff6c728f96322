package material

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

type Kind = metadata.MaterialKind

const (
	KindColor Kind = iota + 1
	KindGrid
)

// KindName returns a readable name for k.
func KindName(k Kind) string {
	switch k {
	case KindColor:
		return "color"
	case KindGrid:
		return "grid"
	}
	return "unknown"
}

// Updater is implemented by materials with per-frame uniform data.
type Updater interface {
	Update(dt float64) error
}

// UniformBinding is the set 1 layout every material here uses: one uniform
// buffer at binding 0 visible to both shader stages.
var UniformBinding = []metadata.DescriptorSetLayoutBinding{{
	Binding: 0,
	Type:    metadata.DescriptorTypeUniformBuffer,
	Count:   1,
	Stages:  metadata.ShaderStageVertex | metadata.ShaderStageFragment,
}}

// base owns the uniform buffer and set 1 descriptor of a material.
type base struct {
	device   metadata.ResourceDevice
	pipeline string
	set      metadata.DescriptorSet
	ubo      metadata.Buffer
	size     uint64

	// LayerPriority orders materials once draw sorting exists.
	LayerPriority int
}

func newBase(device metadata.ResourceDevice, setLayout metadata.DescriptorSetLayout, pipeline string, size uint64) (base, error) {
	b := base{device: device, pipeline: pipeline, size: size}
	ubo, err := device.CreateBuffer(size, metadata.BufferUsageUniform)
	if err != nil {
		err = errors.Wrapf(err, "failed to create uniform buffer for %q material", pipeline)
		core.LogError(err.Error())
		return b, err
	}
	b.ubo = ubo
	set, err := device.AllocateDescriptorSet(setLayout)
	if err != nil {
		device.DestroyBuffer(ubo)
		err = errors.Wrapf(err, "failed to allocate descriptor set for %q material", pipeline)
		core.LogError(err.Error())
		return b, err
	}
	b.set = set
	device.WriteUniformBuffer(set, 0, ubo, size)
	return b, nil
}

func (b *base) PipelineName() string {
	return b.pipeline
}

func (b *base) DescriptorSet() metadata.DescriptorSet {
	return b.set
}

// write uploads the std140 encoding of v.
func (b *base) write(v any) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return errors.Wrap(err, "failed to encode uniform data")
	}
	if uint64(buf.Len()) != b.size {
		return errors.Newf("uniform data is %d bytes, buffer is %d", buf.Len(), b.size)
	}
	return b.device.UploadBuffer(b.ubo, 0, buf.Bytes())
}

// bindSet binds set 1 unless it is already the last bound set.
func (b *base) bindSet(cmd metadata.CommandBuffer, layout metadata.PipelineLayout, lastBound *metadata.DescriptorSet) {
	if *lastBound == b.set {
		return
	}
	cmd.BindDescriptorSets(metadata.PipelineBindPointGraphics, layout, 1, b.set)
	*lastBound = b.set
}

// Destroy releases the uniform buffer. The set goes back with its pool.
func (b *base) Destroy() {
	if b.ubo != 0 {
		b.device.DestroyBuffer(b.ubo)
		b.ubo = 0
	}
}
