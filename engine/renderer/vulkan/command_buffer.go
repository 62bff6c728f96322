package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

/**
 * @brief A primary command buffer allocated from the device's graphics pool.
 * Recording methods resolve engine handles against the owning device.
 */
type CommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState

	device *Device
}

var _ metadata.CommandBuffer = (*CommandBuffer)(nil)

func (d *Device) AllocateCommandBuffers(count int) ([]metadata.CommandBuffer, error) {
	if count <= 0 {
		return nil, nil
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	handles := make([]vk.CommandBuffer, count)
	if err := d.locks.SafeCall(CommandBufferManagement, func() error {
		if res := vk.AllocateCommandBuffers(d.logicalDevice, &allocateInfo, handles); res != vk.Success {
			return resultError("vkAllocateCommandBuffers", res)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	out := make([]metadata.CommandBuffer, count)
	for i, h := range handles {
		out[i] = &CommandBuffer{Handle: h, State: COMMAND_BUFFER_STATE_READY, device: d}
	}
	return out, nil
}

func (d *Device) FreeCommandBuffers(buffers []metadata.CommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		cb, ok := b.(*CommandBuffer)
		if !ok || cb.State == COMMAND_BUFFER_STATE_NOT_ALLOCATED {
			continue
		}
		handles = append(handles, cb.Handle)
		cb.Handle = nil
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if len(handles) == 0 {
		return
	}
	_ = d.locks.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(d.logicalDevice, d.commandPool, uint32(len(handles)), handles)
		return nil
	})
}

func (v *CommandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(v.Handle, 0); res != vk.Success {
		return resultError("vkResetCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (v *CommandBuffer) Begin() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(v.Handle, &beginInfo); res != vk.Success {
		return resultError("vkBeginCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *CommandBuffer) End() error {
	if v.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		err := errors.New("command buffer ended inside a render pass")
		core.LogError(err.Error())
		return err
	}
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return resultError("vkEndCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func clearValue(c metadata.ClearValue) vk.ClearValue {
	var out vk.ClearValue
	switch {
	case c.IsDepth:
		out.SetDepthStencil(c.Depth, c.Stencil)
	case c.IsUint:
		*(*[4]uint32)(unsafe.Pointer(&out)) = c.Uint
	default:
		out.SetColor(c.Float[:])
	}
	return out
}

func (v *CommandBuffer) BeginRenderPass(info metadata.RenderPassBeginInfo) {
	d := v.device
	renderPass, ok := d.renderPasses.get(metadata.Handle(info.RenderPass))
	if !ok {
		core.LogError("BeginRenderPass - unknown render pass %d", info.RenderPass)
		return
	}
	framebuffer, ok := d.framebuffers.get(metadata.Handle(info.Framebuffer))
	if !ok {
		core.LogError("BeginRenderPass - unknown framebuffer %d", info.Framebuffer)
		return
	}
	clearValues := make([]vk.ClearValue, len(info.ClearValues))
	for i, c := range info.ClearValues {
		clearValues[i] = clearValue(c)
	}
	beginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      renderPass,
		Framebuffer:     framebuffer,
		RenderArea:      toRect(info.RenderArea),
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(v.Handle, &beginInfo, vk.SubpassContentsInline)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(v.Handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
}

func (v *CommandBuffer) SetViewport(viewport metadata.Viewport) {
	vk.CmdSetViewport(v.Handle, 0, 1, []vk.Viewport{toViewport(viewport)})
}

func (v *CommandBuffer) SetScissor(scissor metadata.Rect2D) {
	vk.CmdSetScissor(v.Handle, 0, 1, []vk.Rect2D{toRect(scissor)})
}

// SetLineWidth clamps to 1 on devices without wide line support.
func (v *CommandBuffer) SetLineWidth(width float32) {
	if !v.device.wideLines {
		width = 1
	}
	vk.CmdSetLineWidth(v.Handle, width)
}

func (v *CommandBuffer) BindPipeline(bindPoint metadata.PipelineBindPoint, p metadata.Pipeline) {
	pipeline, ok := v.device.pipelines.get(metadata.Handle(p))
	if !ok {
		core.LogError("BindPipeline - unknown pipeline %d", p)
		return
	}
	vk.CmdBindPipeline(v.Handle, toBindPoint(bindPoint), pipeline)
}

func (v *CommandBuffer) BindDescriptorSets(bindPoint metadata.PipelineBindPoint, l metadata.PipelineLayout, firstSet uint32, sets ...metadata.DescriptorSet) {
	d := v.device
	layout, ok := d.pipelineLayouts.get(metadata.Handle(l))
	if !ok {
		core.LogError("BindDescriptorSets - unknown pipeline layout %d", l)
		return
	}
	native := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		set, ok := d.descriptorSets.get(metadata.Handle(s))
		if !ok {
			core.LogError("BindDescriptorSets - unknown descriptor set %d", s)
			return
		}
		native[i] = set
	}
	vk.CmdBindDescriptorSets(v.Handle, toBindPoint(bindPoint), layout, firstSet, uint32(len(native)), native, 0, nil)
}

func (v *CommandBuffer) PushConstants(l metadata.PipelineLayout, stages metadata.ShaderStage, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	layout, ok := v.device.pipelineLayouts.get(metadata.Handle(l))
	if !ok {
		core.LogError("PushConstants - unknown pipeline layout %d", l)
		return
	}
	vk.CmdPushConstants(v.Handle, layout, toShaderStageFlags(stages), offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (v *CommandBuffer) BindVertexBuffer(binding uint32, b metadata.Buffer, offset uint64) {
	buf, ok := v.device.buffers.get(metadata.Handle(b))
	if !ok {
		core.LogError("BindVertexBuffer - unknown buffer %d", b)
		return
	}
	vk.CmdBindVertexBuffers(v.Handle, binding, 1, []vk.Buffer{buf.handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (v *CommandBuffer) BindIndexBuffer(b metadata.Buffer, offset uint64, indexType metadata.IndexType) {
	buf, ok := v.device.buffers.get(metadata.Handle(b))
	if !ok {
		core.LogError("BindIndexBuffer - unknown buffer %d", b)
		return
	}
	vk.CmdBindIndexBuffer(v.Handle, buf.handle, vk.DeviceSize(offset), toIndexType(indexType))
}

func (v *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(v.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (v *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(v.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
