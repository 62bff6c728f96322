package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

const hostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

// CreateBuffer creates a host visible, coherent buffer. Meshes and uniforms
// are small enough that no staging copy is needed.
func (d *Device) CreateBuffer(size uint64, usage metadata.BufferUsage) (metadata.Buffer, error) {
	if size == 0 {
		err := errors.New("cannot create a zero sized buffer")
		core.LogError(err.Error())
		return 0, err
	}
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       toBufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var out buffer
	if err := d.locks.SafeCall(BufferManagement, func() error {
		var handle vk.Buffer
		if res := vk.CreateBuffer(d.logicalDevice, &bufferInfo, nil, &handle); res != vk.Success {
			return resultError("vkCreateBuffer", res)
		}
		var reqs vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(d.logicalDevice, handle, &reqs)
		memory, err := d.allocate(reqs, hostVisible)
		if err != nil {
			vk.DestroyBuffer(d.logicalDevice, handle, nil)
			return err
		}
		if res := vk.BindBufferMemory(d.logicalDevice, handle, memory, 0); res != vk.Success {
			vk.DestroyBuffer(d.logicalDevice, handle, nil)
			vk.FreeMemory(d.logicalDevice, memory, nil)
			return resultError("vkBindBufferMemory", res)
		}
		out = buffer{handle: handle, memory: memory, size: size}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.Buffer(d.buffers.put(out)), nil
}

// UploadBuffer copies data into the buffer at offset through a mapping.
func (d *Device) UploadBuffer(b metadata.Buffer, offset uint64, data []byte) error {
	buf, ok := d.buffers.get(metadata.Handle(b))
	if !ok {
		err := errors.Wrapf(core.ErrNotFound, "buffer %d", b)
		core.LogError(err.Error())
		return err
	}
	if offset+uint64(len(data)) > buf.size {
		err := errors.Newf("upload of %d bytes at offset %d overflows buffer of %d bytes", len(data), offset, buf.size)
		core.LogError(err.Error())
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return d.locks.SafeCall(BufferManagement, func() error {
		var mapped unsafe.Pointer
		if res := vk.MapMemory(d.logicalDevice, buf.memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
			return resultError("vkMapMemory", res)
		}
		vk.Memcopy(mapped, data)
		vk.UnmapMemory(d.logicalDevice, buf.memory)
		return nil
	})
}

func (d *Device) DestroyBuffer(b metadata.Buffer) {
	if buf, ok := d.buffers.take(metadata.Handle(b)); ok {
		vk.DestroyBuffer(d.logicalDevice, buf.handle, nil)
		vk.FreeMemory(d.logicalDevice, buf.memory, nil)
	}
}
