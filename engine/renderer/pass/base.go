package pass

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/pipeline"
)

// targetBuilder is implemented by each concrete pass to describe its attachments.
type targetBuilder interface {
	// createTargets allocates pass-owned images for the current extent.
	createTargets() error
	destroyTargets()
	renderPassInfo() metadata.RenderPassCreateInfo
	framebufferViews(imageIndex int) []metadata.ImageView
}

// base holds the lifecycle shared by every pass: the native render pass, the
// handle retired by the last recreate, the framebuffers and the pipelines.
type base struct {
	id         uuid.UUID
	kind       Type
	state      State
	generation int

	ctx     Context
	targets targetBuilder

	handle       metadata.RenderPass
	old          metadata.RenderPass
	framebuffers []metadata.Framebuffer
	extent       metadata.Extent2D

	pipelines *pipeline.Manager
}

func newBase(kind Type, ctx Context, t targetBuilder) base {
	b := base{
		id:      uuid.New(),
		kind:    kind,
		ctx:     ctx,
		targets: t,
	}
	return b
}

// init must be called on the base embedded in its final location, since the
// pipeline manager captures a pointer to it.
func (b *base) init() error {
	b.pipelines = pipeline.NewManager(b.ctx.Device,
		pipeline.WithPipelineCache(b.ctx.PipelineCache),
		pipeline.WithRenderPass(func() metadata.RenderPass { return b.handle }),
	)
	if err := b.build(); err != nil {
		b.teardown()
		return err
	}
	b.state = StateActive
	core.LogDebug("%s pass %s created", b.kind, b.id)
	return nil
}

func (b *base) build() error {
	b.extent = b.ctx.Swapchain.Extent()
	if err := b.targets.createTargets(); err != nil {
		return err
	}
	handle, err := b.ctx.Device.CreateRenderPass(b.targets.renderPassInfo())
	if err != nil {
		err = errors.Wrapf(err, "failed to create %s render pass", b.kind)
		core.LogError(err.Error())
		return err
	}
	b.handle = handle
	return b.createFramebuffers()
}

func (b *base) createFramebuffers() error {
	n := b.ctx.Swapchain.NumImages()
	b.framebuffers = make([]metadata.Framebuffer, 0, n)
	for i := 0; i < n; i++ {
		fb, err := b.ctx.Device.CreateFramebuffer(metadata.FramebufferCreateInfo{
			RenderPass:  b.handle,
			Attachments: b.targets.framebufferViews(i),
			Extent:      b.extent,
		})
		if err != nil {
			err = errors.Wrapf(err, "failed to create %s framebuffer %d", b.kind, i)
			core.LogError(err.Error())
			return err
		}
		b.framebuffers = append(b.framebuffers, fb)
	}
	return nil
}

func (b *base) destroyFramebuffers() {
	for _, fb := range b.framebuffers {
		b.ctx.Device.DestroyFramebuffer(fb)
	}
	b.framebuffers = nil
}

func (b *base) ID() uuid.UUID { return b.id }
func (b *base) Type() Type { return b.kind }
func (b *base) State() State { return b.state }
func (b *base) Generation() int { return b.generation }
func (b *base) Handle() metadata.RenderPass { return b.handle }
func (b *base) Pipelines() *pipeline.Manager { return b.pipelines }
func (b *base) Extent() metadata.Extent2D { return b.extent }
func (b *base) Framebuffers() int { return len(b.framebuffers) }
func (b *base) OldHandle() metadata.RenderPass { return b.old }

func (b *base) sealed() {}

// Recreate tears down the framebuffers, keeps the current render pass alive
// as the old handle and rebuilds everything against the swapchain's current
// extent, then rebuilds every pipeline against the new render pass.
func (b *base) Recreate() error {
	if b.state != StateActive {
		err := errors.Newf("cannot recreate %s pass in state %s", b.kind, b.state)
		core.LogError(err.Error())
		return err
	}
	b.state = StateRecreating

	b.destroyFramebuffers()
	b.targets.destroyTargets()
	if b.old != 0 {
		// a second recreate before cleanup: the older handle is no longer
		// referenced by anything recorded since
		b.ctx.Device.DestroyRenderPass(b.old)
	}
	b.old = b.handle
	b.handle = 0

	if err := b.build(); err != nil {
		return err
	}
	if err := b.pipelines.RecreateAll(); err != nil {
		return errors.Wrapf(err, "failed to rebuild %s pipelines", b.kind)
	}

	b.generation++
	b.state = StateActive
	return nil
}

func (b *base) CleanupOld() {
	if b.old == 0 {
		return
	}
	b.ctx.Device.DestroyRenderPass(b.old)
	b.old = 0
}

func (b *base) Destroy() {
	if b.state == StateDestroyed {
		return
	}
	b.teardown()
	b.state = StateDestroyed
}

func (b *base) teardown() {
	if b.pipelines != nil {
		b.pipelines.DestroyAll()
	}
	b.destroyFramebuffers()
	b.targets.destroyTargets()
	if b.handle != 0 {
		b.ctx.Device.DestroyRenderPass(b.handle)
		b.handle = 0
	}
	b.CleanupOld()
}

// begin starts the render pass on the image's framebuffer and sets the
// dynamic viewport and scissor to the full extent.
func (b *base) begin(cmd metadata.CommandBuffer, imageIndex uint32, clears []metadata.ClearValue) error {
	if b.state != StateActive {
		err := errors.Newf("cannot record %s pass in state %s", b.kind, b.state)
		core.LogError(err.Error())
		return err
	}
	if int(imageIndex) >= len(b.framebuffers) {
		err := errors.Newf("%s pass has no framebuffer for image %d", b.kind, imageIndex)
		core.LogError(err.Error())
		return err
	}
	cmd.BeginRenderPass(metadata.RenderPassBeginInfo{
		RenderPass:  b.handle,
		Framebuffer: b.framebuffers[imageIndex],
		RenderArea:  metadata.ScissorFromExtent(b.extent),
		ClearValues: clears,
	})
	cmd.SetViewport(metadata.ViewportFromExtent(b.extent))
	cmd.SetScissor(metadata.ScissorFromExtent(b.extent))
	return nil
}
