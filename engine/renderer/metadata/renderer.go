package metadata

import (
	"fmt"
	"math"
)

/** @brief Image formats used by the engine. */
type Format uint32

const (
	FormatUndefined Format = iota
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8Srgb
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8Srgb
	FormatR32Uint
	FormatR32G32Sfloat
	FormatR32G32B32Sfloat
	FormatD32Sfloat
	FormatD32SfloatS8Uint
	FormatD24UnormS8Uint
)

/** @brief Returns true for depth (and depth/stencil) formats. */
func (f Format) IsDepth() bool {
	return f == FormatD32Sfloat || f == FormatD32SfloatS8Uint || f == FormatD24UnormS8Uint
}

type ColorSpace uint32

const (
	ColorSpaceSrgbNonlinear ColorSpace = iota
	ColorSpaceExtendedSrgbLinear
)

type PresentMode uint32

const (
	PresentModeImmediate PresentMode = iota
	PresentModeMailbox
	PresentModeFifo
	PresentModeFifoRelaxed
)

func (p PresentMode) String() string {
	switch p {
	case PresentModeImmediate:
		return "IMMEDIATE"
	case PresentModeMailbox:
		return "MAILBOX"
	case PresentModeFifo:
		return "FIFO"
	case PresentModeFifoRelaxed:
		return "FIFO_RELAXED"
	}
	return fmt.Sprintf("PresentMode(%d)", uint32(p))
}

/**
 * @brief Status codes returned by waits, acquire and present. Only the codes
 * the frame loop distinguishes are represented; anything else is ResultErrorUnknown.
 */
type Result int32

const (
	ResultSuccess Result = iota
	ResultNotReady
	ResultTimeout
	ResultSuboptimal
	ResultErrorOutOfDate
	ResultErrorDeviceLost
	ResultErrorSurfaceLost
	ResultErrorUnknown
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultNotReady:
		return "NOT_READY"
	case ResultTimeout:
		return "TIMEOUT"
	case ResultSuboptimal:
		return "SUBOPTIMAL"
	case ResultErrorOutOfDate:
		return "ERROR_OUT_OF_DATE"
	case ResultErrorDeviceLost:
		return "ERROR_DEVICE_LOST"
	case ResultErrorSurfaceLost:
		return "ERROR_SURFACE_LOST"
	}
	return "ERROR_UNKNOWN"
}

/** @brief Returns true for Success and Suboptimal. */
func (r Result) IsSuccess() bool {
	return r == ResultSuccess || r == ResultSuboptimal
}

/** @brief Sentinel reported as the current extent when the surface size is decided by the swapchain. */
const UndefinedExtent uint32 = math.MaxUint32

/** @brief Waits forever. */
const InfiniteTimeout uint64 = math.MaxUint64

type Extent2D struct {
	Width  uint32
	Height uint32
}

type Offset2D struct {
	X int32
	Y int32
}

type Rect2D struct {
	Offset Offset2D
	Extent Extent2D
}

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

/** @brief Full-extent viewport with depth range [0, 1]. */
func ViewportFromExtent(e Extent2D) Viewport {
	return Viewport{Width: float32(e.Width), Height: float32(e.Height), MinDepth: 0, MaxDepth: 1}
}

/** @brief Full-extent scissor. */
func ScissorFromExtent(e Extent2D) Rect2D {
	return Rect2D{Extent: e}
}

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
}

/** @brief What the surface supports, queried fresh for every swapchain (re)creation. */
type SurfaceSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

type SwapchainCreateInfo struct {
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent2D
	PresentMode   PresentMode
	/** @brief The previous swapchain, handed to the driver so presentation can transition. */
	OldSwapchain Swapchain
}

type PipelineStage uint32

const (
	PipelineStageTopOfPipe PipelineStage = 1 << iota
	PipelineStageEarlyFragmentTests
	PipelineStageColorAttachmentOutput
	PipelineStageComputeShader
	PipelineStageBottomOfPipe
)

type Access uint32

const (
	AccessColorAttachmentRead Access = 1 << iota
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentRead
	AccessDepthStencilAttachmentWrite
	AccessTransferRead
)

/** @brief A single queue submission of one command buffer. */
type SubmitInfo struct {
	CommandBuffer   CommandBuffer
	WaitSemaphore   Semaphore
	WaitStage       PipelineStage
	SignalSemaphore Semaphore
	/** @brief Signaled by the device once the command buffer has completed. */
	Fence Fence
}

type PresentInfo struct {
	WaitSemaphore Semaphore
	Swapchain     Swapchain
	ImageIndex    uint32
}

type ImageUsage uint32

const (
	ImageUsageColorAttachment ImageUsage = 1 << iota
	ImageUsageDepthStencilAttachment
	ImageUsageTransferSrc
	ImageUsageSampled
)

type ImageAspect uint32

const (
	ImageAspectColor ImageAspect = 1 << iota
	ImageAspectDepth
)

type AttachmentCreateInfo struct {
	Format Format
	Extent Extent2D
	Usage  ImageUsage
	Aspect ImageAspect
}

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
)

type IndexType uint32

const (
	IndexTypeUint16 IndexType = iota
	IndexTypeUint32
)
