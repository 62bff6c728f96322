package metadata

/**
 * @brief Opaque handles to device objects. The zero value is the null
 * handle for every kind. Backends map these onto their native objects.
 */
type Handle uint64

const NullHandle Handle = 0

type (
	Fence               Handle
	Semaphore           Handle
	Swapchain           Handle
	Image               Handle
	ImageView           Handle
	RenderPass          Handle
	Framebuffer         Handle
	ShaderModule        Handle
	Pipeline            Handle
	PipelineLayout      Handle
	PipelineCache       Handle
	DescriptorSetLayout Handle
	DescriptorSet       Handle
	Buffer              Handle
)

/** @brief An image owned by the device together with its view and memory. */
type Attachment struct {
	Image  Image
	View   ImageView
	Format Format
	Extent Extent2D
}

/** @brief Returns true if the attachment holds a live view. */
func (a Attachment) Valid() bool {
	return a.View != 0
}
