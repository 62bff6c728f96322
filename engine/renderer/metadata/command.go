package metadata

/**
 * @brief A primary command buffer. Recording methods mirror the native
 * command set the passes use and never fail; Begin/End/Reset report errors.
 */
type CommandBuffer interface {
	Reset() error
	Begin() error
	End() error

	BeginRenderPass(info RenderPassBeginInfo)
	EndRenderPass()

	SetViewport(viewport Viewport)
	SetScissor(scissor Rect2D)
	SetLineWidth(width float32)

	BindPipeline(bindPoint PipelineBindPoint, pipeline Pipeline)
	BindDescriptorSets(bindPoint PipelineBindPoint, layout PipelineLayout, firstSet uint32, sets ...DescriptorSet)
	PushConstants(layout PipelineLayout, stages ShaderStage, offset uint32, data []byte)

	BindVertexBuffer(binding uint32, buffer Buffer, offset uint64)
	BindIndexBuffer(buffer Buffer, offset uint64, indexType IndexType)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}
