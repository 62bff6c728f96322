package metadata

type ImageLayout uint32

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutColorAttachmentOptimal
	ImageLayoutDepthStencilAttachmentOptimal
	ImageLayoutShaderReadOnlyOptimal
	ImageLayoutTransferSrcOptimal
	ImageLayoutPresentSrc
)

type LoadOp uint32

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

type StoreOp uint32

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

type AttachmentDescription struct {
	Format        Format
	LoadOp        LoadOp
	StoreOp       StoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

/** @brief Dependency between the external scope and subpass 0. */
type SubpassDependency struct {
	SrcStageMask  PipelineStage
	SrcAccessMask Access
	DstStageMask  PipelineStage
	DstAccessMask Access
}

/**
 * @brief A single-subpass render pass. Color attachments are referenced in
 * order starting at 0; the depth attachment, if any, follows them.
 */
type RenderPassCreateInfo struct {
	ColorAttachments []AttachmentDescription
	DepthAttachment  *AttachmentDescription
	Dependencies     []SubpassDependency
}

type FramebufferCreateInfo struct {
	RenderPass  RenderPass
	Attachments []ImageView
	Extent      Extent2D
}

/**
 * @brief Clear value for one attachment. Depth attachments use Depth/Stencil,
 * integer color attachments use Uint, the rest use Float.
 */
type ClearValue struct {
	Float   [4]float32
	Uint    [4]uint32
	Depth   float32
	Stencil uint32
	IsDepth bool
	IsUint  bool
}

func ClearColor(r, g, b, a float32) ClearValue {
	return ClearValue{Float: [4]float32{r, g, b, a}}
}

func ClearColorUint(v uint32) ClearValue {
	return ClearValue{Uint: [4]uint32{v, v, v, v}, IsUint: true}
}

func ClearDepthStencil(depth float32, stencil uint32) ClearValue {
	return ClearValue{Depth: depth, Stencil: stencil, IsDepth: true}
}

type RenderPassBeginInfo struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	RenderArea  Rect2D
	ClearValues []ClearValue
}
