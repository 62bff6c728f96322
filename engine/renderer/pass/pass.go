package pass

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/pipeline"
)

// Type tags the concrete pass kinds. The set is closed.
type Type int

const (
	TypeGeometry Type = iota
	TypePicker
)

func (t Type) String() string {
	switch t {
	case TypeGeometry:
		return "geometry"
	case TypePicker:
		return "picker"
	}
	return "unknown"
}

type State int

const (
	StateUninitialized State = iota
	StateActive
	StateRecreating
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateRecreating:
		return "recreating"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

/**
 * @brief A render pass owned by the render graph. Only this package can
 * implement it.
 */
type RenderPass interface {
	ID() uuid.UUID
	Type() Type
	State() State
	/** @brief Number of completed Recreate calls. */
	Generation() int
	Handle() metadata.RenderPass
	Pipelines() *pipeline.Manager

	/** @brief Per-frame bookkeeping before recording. Records no commands. */
	Update(dt float64, imageIndex uint32) error
	/** @brief Records the pass into cmd targeting the given swapchain image. */
	Record(cmd metadata.CommandBuffer, imageIndex uint32) error
	/** @brief Rebuilds framebuffers, render pass and pipelines; keeps the old handle. */
	Recreate() error
	/** @brief Destroys the handle kept by the last Recreate. Idempotent. */
	CleanupOld()
	/** @brief Called after Recreate with the new swapchain extent. */
	OnResize(extent metadata.Extent2D)
	Destroy()

	sealed()
}

// SwapchainSource is the read-only view of the swapchain passes build
// against. Only the render graph mutates the swapchain.
type SwapchainSource interface {
	Extent() metadata.Extent2D
	ImageFormat() metadata.Format
	DepthFormat() metadata.Format
	NumImages() int
	ImageView(i int) metadata.ImageView
	DepthView(i int) metadata.ImageView
}

// SceneSource supplies the objects to draw and the global descriptor set.
type SceneSource interface {
	// Renderables returns the objects in a stable order.
	Renderables() []metadata.Renderable
	// CameraSet is bound at set 0. It may be null.
	CameraSet() metadata.DescriptorSet
	// SetExtent tells the scene the render target size changed.
	SetExtent(extent metadata.Extent2D)
}

// Context carries the collaborators every pass needs.
type Context struct {
	Device        metadata.Device
	Swapchain     SwapchainSource
	Scene         SceneSource
	PipelineCache metadata.PipelineCache
}

var (
	_ RenderPass = (*GeometryPass)(nil)
	_ RenderPass = (*PickerPass)(nil)
)
