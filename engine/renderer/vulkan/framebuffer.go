package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

func (d *Device) CreateFramebuffer(info metadata.FramebufferCreateInfo) (metadata.Framebuffer, error) {
	renderPass, ok := d.renderPasses.get(metadata.Handle(info.RenderPass))
	if !ok {
		err := errors.Wrapf(core.ErrNotFound, "render pass %d", info.RenderPass)
		core.LogError(err.Error())
		return 0, err
	}
	attachments := make([]vk.ImageView, len(info.Attachments))
	for i, a := range info.Attachments {
		view, ok := d.views.get(metadata.Handle(a))
		if !ok {
			err := errors.Wrapf(core.ErrNotFound, "framebuffer attachment %d (view %d)", i, a)
			core.LogError(err.Error())
			return 0, err
		}
		attachments[i] = view
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           info.Extent.Width,
		Height:          info.Extent.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(d.logicalDevice, &framebufferCreateInfo, nil, &framebuffer); res != vk.Success {
		return 0, resultError("vkCreateFramebuffer", res)
	}
	return metadata.Framebuffer(d.framebuffers.put(framebuffer)), nil
}

func (d *Device) DestroyFramebuffer(fb metadata.Framebuffer) {
	if framebuffer, ok := d.framebuffers.take(metadata.Handle(fb)); ok {
		vk.DestroyFramebuffer(d.logicalDevice, framebuffer, nil)
	}
}
