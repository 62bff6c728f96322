package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

func attachmentDescription(a metadata.AttachmentDescription) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         toFormat(a.Format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         toLoadOp(a.LoadOp),
		StoreOp:        toStoreOp(a.StoreOp),
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  toImageLayout(a.InitialLayout),
		FinalLayout:    toImageLayout(a.FinalLayout),
	}
}

// CreateRenderPass builds a single-subpass render pass. Color attachments
// come first, the depth attachment (if any) follows them.
func (d *Device) CreateRenderPass(info metadata.RenderPassCreateInfo) (metadata.RenderPass, error) {
	attachmentDescriptions := make([]vk.AttachmentDescription, 0, len(info.ColorAttachments)+1)
	colorAttachmentReferences := make([]vk.AttachmentReference, 0, len(info.ColorAttachments))
	for i, a := range info.ColorAttachments {
		attachmentDescriptions = append(attachmentDescriptions, attachmentDescription(a))
		colorAttachmentReferences = append(colorAttachmentReferences, vk.AttachmentReference{
			Attachment: uint32(i), // Attachment description array index
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachmentReferences)),
		PColorAttachments:    colorAttachmentReferences,
	}

	// Depth attachment, if there is one
	if info.DepthAttachment != nil {
		attachmentDescriptions = append(attachmentDescriptions, attachmentDescription(*info.DepthAttachment))
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	dependencies := make([]vk.SubpassDependency, len(info.Dependencies))
	for i, dep := range info.Dependencies {
		dependencies[i] = vk.SubpassDependency{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  toPipelineStageFlags(dep.SrcStageMask),
			SrcAccessMask: toAccessFlags(dep.SrcAccessMask),
			DstStageMask:  toPipelineStageFlags(dep.DstStageMask),
			DstAccessMask: toAccessFlags(dep.DstAccessMask),
		}
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var renderPass vk.RenderPass
	if err := d.locks.SafeCall(RenderpassManagement, func() error {
		if res := vk.CreateRenderPass(d.logicalDevice, &renderpassCreateInfo, nil, &renderPass); res != vk.Success {
			return resultError("vkCreateRenderPass", res)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return metadata.RenderPass(d.renderPasses.put(renderPass)), nil
}

func (d *Device) DestroyRenderPass(rp metadata.RenderPass) {
	if renderPass, ok := d.renderPasses.take(metadata.Handle(rp)); ok {
		vk.DestroyRenderPass(d.logicalDevice, renderPass, nil)
	}
}
