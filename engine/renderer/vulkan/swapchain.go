package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// CreateSwapchain creates a swapchain on the device's surface. The caller
// chooses format, extent, image count and present mode; info.OldSwapchain is
// handed to the driver and stays alive until the caller destroys it.
func (d *Device) CreateSwapchain(info metadata.SwapchainCreateInfo) (metadata.Swapchain, error) {
	var old vk.Swapchain = vk.NullSwapchain
	if info.OldSwapchain != 0 {
		sc, ok := d.swapchains.get(metadata.Handle(info.OldSwapchain))
		if !ok {
			err := errors.Wrapf(core.ErrNotFound, "old swapchain %d", info.OldSwapchain)
			core.LogError(err.Error())
			return 0, err
		}
		old = sc.handle
	}

	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(d.physicalDevice, d.surface, &caps); res != vk.Success {
		return 0, resultError("vkGetPhysicalDeviceSurfaceCapabilities", res)
	}
	caps.Deref()

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    info.MinImageCount,
		ImageFormat:      toFormat(info.Format.Format),
		ImageColorSpace:  toColorSpace(info.Format.ColorSpace),
		ImageExtent:      toExtent(info.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		// Graphics and present share one family.
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      toPresentMode(info.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	var handle vk.Swapchain
	if err := d.locks.SafeCall(SwapchainManagement, func() error {
		if res := vk.CreateSwapchain(d.logicalDevice, &swapchainCreateInfo, nil, &handle); res != vk.Success {
			return resultError("vkCreateSwapchain", res)
		}
		return nil
	}); err != nil {
		return 0, err
	}

	var imageCount uint32
	if res := vk.GetSwapchainImages(d.logicalDevice, handle, &imageCount, nil); res != vk.Success {
		vk.DestroySwapchain(d.logicalDevice, handle, nil)
		return 0, resultError("vkGetSwapchainImages", res)
	}
	native := make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(d.logicalDevice, handle, &imageCount, native); res != vk.Success {
		vk.DestroySwapchain(d.logicalDevice, handle, nil)
		return 0, resultError("vkGetSwapchainImages", res)
	}

	sc := swapchain{handle: handle, images: make([]metadata.Image, imageCount)}
	for i, img := range native {
		sc.images[i] = metadata.Image(d.images.put(image{handle: img}))
	}
	core.LogDebug("swapchain created: %dx%d, %d images, %s", info.Extent.Width, info.Extent.Height, imageCount, info.PresentMode)
	return metadata.Swapchain(d.swapchains.put(sc)), nil
}

func (d *Device) SwapchainImages(s metadata.Swapchain) ([]metadata.Image, error) {
	sc, ok := d.swapchains.get(metadata.Handle(s))
	if !ok {
		err := errors.Wrapf(core.ErrNotFound, "swapchain %d", s)
		core.LogError(err.Error())
		return nil, err
	}
	return append([]metadata.Image(nil), sc.images...), nil
}

// DestroySwapchain also forgets its images; their views must already be gone.
func (d *Device) DestroySwapchain(s metadata.Swapchain) {
	sc, ok := d.swapchains.take(metadata.Handle(s))
	if !ok {
		return
	}
	for _, img := range sc.images {
		d.images.take(metadata.Handle(img))
	}
	_ = d.locks.SafeCall(SwapchainManagement, func() error {
		vk.DestroySwapchain(d.logicalDevice, sc.handle, nil)
		return nil
	})
}

func (d *Device) AcquireNextImage(s metadata.Swapchain, timeout uint64, signal metadata.Semaphore) (uint32, metadata.Result) {
	sc, ok := d.swapchains.get(metadata.Handle(s))
	if !ok {
		core.LogError("vkAcquireNextImage - unknown swapchain %d", s)
		return 0, metadata.ResultErrorUnknown
	}
	var imageIndex uint32
	result := vk.AcquireNextImage(d.logicalDevice, sc.handle, timeout, d.semaphore(signal), vk.NullFence, &imageIndex)
	return imageIndex, toResult(result)
}

func (d *Device) Submit(info metadata.SubmitInfo) error {
	cmd, ok := info.CommandBuffer.(*CommandBuffer)
	if !ok {
		err := errors.Newf("cannot submit command buffer of type %T", info.CommandBuffer)
		core.LogError(err.Error())
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd.Handle},
	}
	if info.WaitSemaphore != 0 {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{d.semaphore(info.WaitSemaphore)}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{toPipelineStageFlags(info.WaitStage)}
	}
	if info.SignalSemaphore != 0 {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{d.semaphore(info.SignalSemaphore)}
	}

	return d.locks.SafeQueueCall(d.queueFamily, func() error {
		if res := vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{submitInfo}, d.fence(info.Fence)); res != vk.Success {
			return resultError("vkQueueSubmit", res)
		}
		cmd.State = COMMAND_BUFFER_STATE_SUBMITTED
		return nil
	})
}

// Present returns the image to the swapchain for presentation.
func (d *Device) Present(info metadata.PresentInfo) metadata.Result {
	sc, ok := d.swapchains.get(metadata.Handle(info.Swapchain))
	if !ok {
		core.LogError("vkQueuePresent - unknown swapchain %d", info.Swapchain)
		return metadata.ResultErrorUnknown
	}
	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{sc.handle},
		PImageIndices:  []uint32{info.ImageIndex},
	}
	if info.WaitSemaphore != 0 {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{d.semaphore(info.WaitSemaphore)}
	}

	var result vk.Result
	_ = d.locks.SafeQueueCall(d.queueFamily, func() error {
		result = vk.QueuePresent(d.queue, &presentInfo)
		return nil
	})
	return toResult(result)
}
