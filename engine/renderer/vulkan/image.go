package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

func (d *Device) CreateImageView(img metadata.Image, format metadata.Format, aspect metadata.ImageAspect) (metadata.ImageView, error) {
	i, ok := d.images.get(metadata.Handle(img))
	if !ok {
		err := errors.Wrapf(core.ErrNotFound, "image %d", img)
		core.LogError(err.Error())
		return 0, err
	}
	view, err := d.createView(i.handle, format, aspect)
	if err != nil {
		return 0, err
	}
	return metadata.ImageView(d.views.put(view)), nil
}

func (d *Device) createView(img vk.Image, format metadata.Format, aspect metadata.ImageAspect) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   toFormat(format),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     toAspectFlags(aspect, format),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(d.logicalDevice, &viewCreateInfo, nil, &view); res != vk.Success {
		return vk.NullImageView, resultError("vkCreateImageView", res)
	}
	return view, nil
}

func (d *Device) DestroyImageView(v metadata.ImageView) {
	if view, ok := d.views.take(metadata.Handle(v)); ok {
		vk.DestroyImageView(d.logicalDevice, view, nil)
	}
}

// CreateAttachment creates an optimally tiled, device local image with its
// own memory and a view over it.
func (d *Device) CreateAttachment(info metadata.AttachmentCreateInfo) (metadata.Attachment, error) {
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    toFormat(info.Format),
		Extent: vk.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         toImageUsageFlags(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var out metadata.Attachment
	err := d.locks.SafeCall(ImageManagement, func() error {
		var img vk.Image
		if res := vk.CreateImage(d.logicalDevice, &imageCreateInfo, nil, &img); res != vk.Success {
			return resultError("vkCreateImage", res)
		}

		var reqs vk.MemoryRequirements
		vk.GetImageMemoryRequirements(d.logicalDevice, img, &reqs)
		memory, err := d.allocate(reqs, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
		if err != nil {
			vk.DestroyImage(d.logicalDevice, img, nil)
			return err
		}
		if res := vk.BindImageMemory(d.logicalDevice, img, memory, 0); res != vk.Success {
			vk.DestroyImage(d.logicalDevice, img, nil)
			vk.FreeMemory(d.logicalDevice, memory, nil)
			return resultError("vkBindImageMemory", res)
		}

		view, err := d.createView(img, info.Format, info.Aspect)
		if err != nil {
			vk.DestroyImage(d.logicalDevice, img, nil)
			vk.FreeMemory(d.logicalDevice, memory, nil)
			return err
		}

		out = metadata.Attachment{
			Image:  metadata.Image(d.images.put(image{handle: img, memory: memory})),
			View:   metadata.ImageView(d.views.put(view)),
			Format: info.Format,
			Extent: info.Extent,
		}
		return nil
	})
	return out, err
}

func (d *Device) DestroyAttachment(a metadata.Attachment) {
	d.DestroyImageView(a.View)
	// Swapchain images are owned by their swapchain.
	if img, ok := d.images.get(metadata.Handle(a.Image)); !ok || img.memory == nil {
		return
	}
	img, _ := d.images.take(metadata.Handle(a.Image))
	vk.DestroyImage(d.logicalDevice, img.handle, nil)
	vk.FreeMemory(d.logicalDevice, img.memory, nil)
}
