package noop

import (
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// CommandBuffer records commands both locally (cleared on Reset) and in the
// owning device's call log, prefixed with "Cmd.".
type CommandBuffer struct {
	dev       *Device
	id        metadata.Handle
	recording bool

	// Commands holds everything recorded since the last Reset.
	Commands []Call
}

// ID returns the handle the device assigned to this command buffer.
func (c *CommandBuffer) ID() metadata.Handle {
	return c.id
}

func (c *CommandBuffer) add(op string, args ...any) {
	call := Call{Op: op, Handle: c.id, Args: args}
	c.Commands = append(c.Commands, call)
	c.dev.mu.Lock()
	c.dev.calls = append(c.dev.calls, Call{Op: "Cmd." + op, Handle: c.id, Args: args})
	c.dev.mu.Unlock()
}

// Count returns how many times op was recorded since the last Reset.
func (c *CommandBuffer) Count(op string) int {
	n := 0
	for _, call := range c.Commands {
		if call.Op == op {
			n++
		}
	}
	return n
}

func (c *CommandBuffer) Reset() error {
	c.Commands = nil
	c.recording = false
	c.dev.mu.Lock()
	c.dev.calls = append(c.dev.calls, Call{Op: "Cmd.Reset", Handle: c.id})
	c.dev.mu.Unlock()
	return nil
}

func (c *CommandBuffer) Begin() error {
	c.recording = true
	c.add("Begin")
	return nil
}

func (c *CommandBuffer) End() error {
	c.recording = false
	c.add("End")
	return nil
}

func (c *CommandBuffer) BeginRenderPass(info metadata.RenderPassBeginInfo) {
	c.add("BeginRenderPass", info.RenderPass, info.Framebuffer, info.RenderArea)
}

func (c *CommandBuffer) EndRenderPass() {
	c.add("EndRenderPass")
}

func (c *CommandBuffer) SetViewport(v metadata.Viewport) {
	c.add("SetViewport", v)
}

func (c *CommandBuffer) SetScissor(r metadata.Rect2D) {
	c.add("SetScissor", r)
}

func (c *CommandBuffer) SetLineWidth(w float32) {
	c.add("SetLineWidth", w)
}

func (c *CommandBuffer) BindPipeline(bp metadata.PipelineBindPoint, p metadata.Pipeline) {
	c.add("BindPipeline", bp, p)
}

func (c *CommandBuffer) BindDescriptorSets(bp metadata.PipelineBindPoint, layout metadata.PipelineLayout, firstSet uint32, sets ...metadata.DescriptorSet) {
	c.add("BindDescriptorSets", bp, layout, firstSet, append([]metadata.DescriptorSet(nil), sets...))
}

func (c *CommandBuffer) PushConstants(layout metadata.PipelineLayout, stages metadata.ShaderStage, offset uint32, data []byte) {
	c.add("PushConstants", layout, stages, offset, append([]byte(nil), data...))
}

func (c *CommandBuffer) BindVertexBuffer(binding uint32, b metadata.Buffer, offset uint64) {
	c.add("BindVertexBuffer", binding, b, offset)
}

func (c *CommandBuffer) BindIndexBuffer(b metadata.Buffer, offset uint64, t metadata.IndexType) {
	c.add("BindIndexBuffer", b, offset, t)
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.add("Draw", vertexCount, instanceCount, firstVertex, firstInstance)
}

func (c *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	c.add("DrawIndexed", indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

var _ metadata.CommandBuffer = (*CommandBuffer)(nil)
