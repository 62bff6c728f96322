package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// createDescriptorPool creates the pool every descriptor set is allocated
// from. Sets live until the device is destroyed.
func (d *Device) createDescriptorPool() error {
	n := d.config.MaxDescriptorSets
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: n},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: n},
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       n,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.logicalDevice, &poolCreateInfo, nil, &pool); res != vk.Success {
		return resultError("vkCreateDescriptorPool", res)
	}
	d.descriptorPool = pool
	core.LogDebug("descriptor pool created for %d sets", n)
	return nil
}

func (d *Device) CreateDescriptorSetLayout(bindings []metadata.DescriptorSetLayoutBinding) (metadata.DescriptorSetLayout, error) {
	native := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		count := b.Count
		if count == 0 {
			count = 1
		}
		native[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  toDescriptorType(b.Type),
			DescriptorCount: count,
			StageFlags:      toShaderStageFlags(b.Stages),
		}
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(native)),
		PBindings:    native,
	}

	var layout vk.DescriptorSetLayout
	if err := d.locks.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(d.logicalDevice, &createInfo, nil, &layout); res != vk.Success {
			return resultError("vkCreateDescriptorSetLayout", res)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.DescriptorSetLayout(d.setLayouts.put(layout)), nil
}

func (d *Device) DestroyDescriptorSetLayout(l metadata.DescriptorSetLayout) {
	if layout, ok := d.setLayouts.take(metadata.Handle(l)); ok {
		vk.DestroyDescriptorSetLayout(d.logicalDevice, layout, nil)
	}
}

func (d *Device) AllocateDescriptorSet(l metadata.DescriptorSetLayout) (metadata.DescriptorSet, error) {
	layout, ok := d.setLayouts.get(metadata.Handle(l))
	if !ok {
		err := errors.Wrapf(core.ErrNotFound, "descriptor set layout %d", l)
		core.LogError(err.Error())
		return 0, err
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}

	var set vk.DescriptorSet
	if err := d.locks.SafeCall(DescriptorManagement, func() error {
		if res := vk.AllocateDescriptorSets(d.logicalDevice, &allocInfo, &set); res != vk.Success {
			return resultError("vkAllocateDescriptorSets", res)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.DescriptorSet(d.descriptorSets.put(set)), nil
}

// WriteUniformBuffer points binding of set at the first size bytes of buffer.
func (d *Device) WriteUniformBuffer(s metadata.DescriptorSet, binding uint32, b metadata.Buffer, size uint64) {
	set, ok := d.descriptorSets.get(metadata.Handle(s))
	if !ok {
		core.LogError("WriteUniformBuffer - unknown descriptor set %d", s)
		return
	}
	buf, ok := d.buffers.get(metadata.Handle(b))
	if !ok {
		core.LogError("WriteUniformBuffer - unknown buffer %d", b)
		return
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf.handle,
			Offset: 0,
			Range:  vk.DeviceSize(size),
		}},
	}
	_ = d.locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(d.logicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		return nil
	})
}
