package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

func (d *Device) CreateFence(signaled bool) (metadata.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	// Make sure to signal the fence if required.
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := d.locks.SafeCall(SynchronizationManagement, func() error {
		if res := vk.CreateFence(d.logicalDevice, &fenceCreateInfo, nil, &fence); res != vk.Success {
			return resultError("vkCreateFence", res)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.Fence(d.fences.put(fence)), nil
}

func (d *Device) DestroyFence(f metadata.Fence) {
	if fence, ok := d.fences.take(metadata.Handle(f)); ok {
		vk.DestroyFence(d.logicalDevice, fence, nil)
	}
}

// WaitForFence logs anything but success and timeout.
func (d *Device) WaitForFence(f metadata.Fence, timeout uint64) metadata.Result {
	fence, ok := d.fences.get(metadata.Handle(f))
	if !ok {
		core.LogError("vk_fence_wait - unknown fence %d", f)
		return metadata.ResultErrorUnknown
	}
	result := vk.WaitForFences(d.logicalDevice, 1, []vk.Fence{fence}, vk.True, timeout)
	switch result {
	case vk.Success:
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - An unknown error has occurred.")
	}
	return toResult(result)
}

func (d *Device) ResetFence(f metadata.Fence) error {
	fence, ok := d.fences.get(metadata.Handle(f))
	if !ok {
		return resultError("vkResetFences", vk.ErrorUnknown)
	}
	if res := vk.ResetFences(d.logicalDevice, 1, []vk.Fence{fence}); res != vk.Success {
		return resultError("vkResetFences", res)
	}
	return nil
}

func (d *Device) CreateSemaphore() (metadata.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := d.locks.SafeCall(SynchronizationManagement, func() error {
		if res := vk.CreateSemaphore(d.logicalDevice, &semaphoreCreateInfo, nil, &semaphore); res != vk.Success {
			return resultError("vkCreateSemaphore", res)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.Semaphore(d.semaphores.put(semaphore)), nil
}

func (d *Device) DestroySemaphore(s metadata.Semaphore) {
	if semaphore, ok := d.semaphores.take(metadata.Handle(s)); ok {
		vk.DestroySemaphore(d.logicalDevice, semaphore, nil)
	}
}

// semaphore resolves s, returning the null semaphore for 0.
func (d *Device) semaphore(s metadata.Semaphore) vk.Semaphore {
	if v, ok := d.semaphores.get(metadata.Handle(s)); ok {
		return v
	}
	return vk.NullSemaphore
}

func (d *Device) fence(f metadata.Fence) vk.Fence {
	if v, ok := d.fences.get(metadata.Handle(f)); ok {
		return v
	}
	return vk.NullFence
}
