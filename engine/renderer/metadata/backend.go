package metadata

/** @brief Fences, semaphores and idle waits. */
type SyncDevice interface {
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(fence Fence)
	/** @brief Blocks until the fence signals or timeout (ns) expires. */
	WaitForFence(fence Fence, timeout uint64) Result
	ResetFence(fence Fence) error
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(semaphore Semaphore)
	WaitIdle() error
}

/** @brief Surface queries, swapchain management, submission and presentation. */
type PresentDevice interface {
	SurfaceSupport() (SurfaceSupport, error)
	SupportsDepthFormat(format Format) bool
	CreateSwapchain(info SwapchainCreateInfo) (Swapchain, error)
	SwapchainImages(swapchain Swapchain) ([]Image, error)
	DestroySwapchain(swapchain Swapchain)
	AcquireNextImage(swapchain Swapchain, timeout uint64, signal Semaphore) (uint32, Result)
	Submit(info SubmitInfo) error
	Present(info PresentInfo) Result
}

/** @brief Images, views, render passes and framebuffers. */
type TargetDevice interface {
	CreateImageView(image Image, format Format, aspect ImageAspect) (ImageView, error)
	DestroyImageView(view ImageView)
	CreateAttachment(info AttachmentCreateInfo) (Attachment, error)
	DestroyAttachment(attachment Attachment)
	CreateRenderPass(info RenderPassCreateInfo) (RenderPass, error)
	DestroyRenderPass(renderPass RenderPass)
	CreateFramebuffer(info FramebufferCreateInfo) (Framebuffer, error)
	DestroyFramebuffer(framebuffer Framebuffer)
}

/** @brief Shader modules, layouts, pipelines and the pipeline cache. */
type PipelineDevice interface {
	CreateShaderModule(code []uint32) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule)
	CreatePipelineLayout(info PipelineLayoutCreateInfo) (PipelineLayout, error)
	DestroyPipelineLayout(layout PipelineLayout)
	CreateGraphicsPipeline(cache PipelineCache, info GraphicsPipelineCreateInfo) (Pipeline, error)
	CreateComputePipeline(cache PipelineCache, info ComputePipelineCreateInfo) (Pipeline, error)
	DestroyPipeline(pipeline Pipeline)
	CreatePipelineCache() (PipelineCache, error)
	DestroyPipelineCache(cache PipelineCache)
}

/** @brief Buffers and descriptor sets. */
type ResourceDevice interface {
	CreateBuffer(size uint64, usage BufferUsage) (Buffer, error)
	UploadBuffer(buffer Buffer, offset uint64, data []byte) error
	DestroyBuffer(buffer Buffer)
	CreateDescriptorSetLayout(bindings []DescriptorSetLayoutBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout DescriptorSetLayout)
	AllocateDescriptorSet(layout DescriptorSetLayout) (DescriptorSet, error)
	WriteUniformBuffer(set DescriptorSet, binding uint32, buffer Buffer, size uint64)
}

/**
 * @brief The device/surface collaborator consumed by the frame engine. It owns
 * a logical device, a graphics+present queue, a command pool and the surface.
 */
type Device interface {
	SyncDevice
	PresentDevice
	TargetDevice
	PipelineDevice
	ResourceDevice

	AllocateCommandBuffers(count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers []CommandBuffer)
	Destroy()
}

/** @brief The window collaborator. */
type Window interface {
	/** @brief Current framebuffer size in pixels; zero while minimized. */
	FramebufferSize() (width, height int)
	/** @brief True once a platform resize callback fired since the last clear. */
	ResizePending() bool
	ClearResizePending()
	/** @brief Blocks until the platform delivers at least one event. */
	WaitEvents()
}
