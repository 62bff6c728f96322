package graph

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/pass"
	"github.com/spaghettifunk/vks/engine/renderer/syncobj"
)

type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateRecording
	StateSubmitting
	StatePresenting
	StateRecreating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateRecording:
		return "recording"
	case StateSubmitting:
		return "submitting"
	case StatePresenting:
		return "presenting"
	case StateRecreating:
		return "recreating"
	}
	return "unknown"
}

// Swapchain is what the graph needs from the swapchain: the pass view plus
// the right to recreate it. The graph is its only mutator.
type Swapchain interface {
	pass.SwapchainSource
	Handle() metadata.Swapchain
	Recreate() error
	CleanupOld()
}

type Context struct {
	Device    metadata.Device
	Window    metadata.Window
	Swapchain Swapchain
}

// statsReporter is implemented by passes that count their draws.
type statsReporter interface {
	LastStats() pass.DrawStats
}

/**
 * @brief Orders render passes and drives the per-frame acquire, record,
 * submit and present protocol, including surface recreation.
 */
type Graph struct {
	ctx  Context
	opts Options

	passes []pass.RenderPass
	sync   *syncobj.SyncObjects
	cmds   []metadata.CommandBuffer

	frameSlot  int
	frameCount uint64
	state      State
	started    bool
	resized    bool
}

func New(ctx Context, opts ...Option) (*Graph, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.FramesInFlight < 1 {
		err := errors.Newf("frames in flight must be at least 1, got %d", o.FramesInFlight)
		core.LogError(err.Error())
		return nil, err
	}

	sync, err := syncobj.New(ctx.Device, ctx.Swapchain.NumImages(), o.FramesInFlight)
	if err != nil {
		return nil, err
	}
	cmds, err := ctx.Device.AllocateCommandBuffers(o.FramesInFlight)
	if err != nil {
		sync.Destroy()
		err = errors.Wrap(err, "failed to allocate frame command buffers")
		core.LogError(err.Error())
		return nil, err
	}
	return &Graph{
		ctx:  ctx,
		opts: o,
		sync: sync,
		cmds: cmds,
	}, nil
}

// AddPass appends p to the record order. Passes can only be added before the
// first Execute.
func (g *Graph) AddPass(p pass.RenderPass) error {
	if g.started {
		err := errors.Wrapf(core.ErrGraphStarted, "cannot add %s pass", p.Type())
		core.LogError(err.Error())
		return err
	}
	if _, ok := g.GetPass(p.Type()); ok {
		err := errors.Newf("a %s pass is already registered", p.Type())
		core.LogError(err.Error())
		return err
	}
	g.passes = append(g.passes, p)
	return nil
}

// GetPass finds the registered pass of the given type.
func (g *Graph) GetPass(t pass.Type) (pass.RenderPass, bool) {
	for _, p := range g.passes {
		if p.Type() == t {
			return p, true
		}
	}
	return nil, false
}

func (g *Graph) Passes() []pass.RenderPass {
	return append([]pass.RenderPass(nil), g.passes...)
}

// SetResized requests a swapchain recreation after the next present.
func (g *Graph) SetResized() {
	g.resized = true
}

func (g *Graph) State() State { return g.state }
func (g *Graph) FrameSlot() int { return g.frameSlot }
func (g *Graph) FrameCount() uint64 { return g.frameCount }
func (g *Graph) Sync() *syncobj.SyncObjects { return g.sync }
func (g *Graph) FramesInFlight() int { return g.opts.FramesInFlight }

// Execute renders one frame. Surface invalidation is handled internally and
// never returned; any error is fatal.
func (g *Graph) Execute(dt float64) error {
	g.started = true
	slot := g.frameSlot
	inFlight := g.sync.InFlightFence(slot)

	g.state = StateAcquiring
	if err := g.waitFence(inFlight); err != nil {
		return err
	}

	imageIndex, res := g.ctx.Device.AcquireNextImage(g.ctx.Swapchain.Handle(), g.opts.AcquireTimeout, g.sync.ImageAvailable(slot))
	switch res {
	case metadata.ResultSuccess, metadata.ResultSuboptimal:
	case metadata.ResultErrorOutOfDate:
		// nothing was submitted for this slot; retry on the next tick
		return g.recreate()
	default:
		return g.resultError("failed to acquire swapchain image", res)
	}

	// the image may still be in use by a different frame slot
	if fence, ok := g.sync.ImageInFlight(imageIndex); ok {
		if err := g.waitFence(fence); err != nil {
			return err
		}
	}
	g.sync.SetImageInFlight(imageIndex, inFlight)

	g.state = StateRecording
	cmd := g.cmds[slot]
	if err := g.record(cmd, imageIndex); err != nil {
		return err
	}

	g.state = StateSubmitting
	if err := g.ctx.Device.ResetFence(inFlight); err != nil {
		err = errors.Wrap(err, "failed to reset in-flight fence")
		core.LogError(err.Error())
		return err
	}
	if err := g.ctx.Device.Submit(metadata.SubmitInfo{
		CommandBuffer:   cmd,
		WaitSemaphore:   g.sync.ImageAvailable(slot),
		WaitStage:       metadata.PipelineStageColorAttachmentOutput,
		SignalSemaphore: g.sync.RenderFinished(imageIndex),
		Fence:           inFlight,
	}); err != nil {
		err = errors.Wrap(err, "failed to submit frame")
		core.LogError(err.Error())
		return err
	}

	g.state = StatePresenting
	res = g.ctx.Device.Present(metadata.PresentInfo{
		WaitSemaphore: g.sync.RenderFinished(imageIndex),
		Swapchain:     g.ctx.Swapchain.Handle(),
		ImageIndex:    imageIndex,
	})
	resized := g.resized || g.ctx.Window.ResizePending()
	switch {
	case res == metadata.ResultErrorOutOfDate, res == metadata.ResultSuboptimal:
		if err := g.recreate(); err != nil {
			return err
		}
	case !res.IsSuccess():
		// fatal even with a resize pending
		return g.resultError("failed to present swapchain image", res)
	case resized:
		if err := g.recreate(); err != nil {
			return err
		}
	}

	for _, p := range g.passes {
		if err := p.Update(dt, imageIndex); err != nil {
			return errors.Wrapf(err, "%s pass update failed", p.Type())
		}
	}

	g.frameSlot = (slot + 1) % g.opts.FramesInFlight
	g.frameCount++
	g.state = StateIdle
	return nil
}

func (g *Graph) record(cmd metadata.CommandBuffer, imageIndex uint32) error {
	if err := cmd.Reset(); err != nil {
		return errors.Wrap(err, "failed to reset command buffer")
	}
	if err := cmd.Begin(); err != nil {
		return errors.Wrap(err, "failed to begin command buffer")
	}
	var binds, draws int
	for _, p := range g.passes {
		if err := p.Record(cmd, imageIndex); err != nil {
			return errors.Wrapf(err, "%s pass record failed", p.Type())
		}
		if r, ok := p.(statsReporter); ok {
			s := r.LastStats()
			binds += s.PipelineBinds
			draws += s.Draws
		}
	}
	if err := cmd.End(); err != nil {
		return errors.Wrap(err, "failed to end command buffer")
	}
	core.MetricsRecordDraws(uint32(binds), uint32(draws))
	return nil
}

// recreate rebuilds the swapchain and everything sized to it. It blocks while
// the window has no area.
func (g *Graph) recreate() error {
	g.state = StateRecreating
	if err := g.ctx.Device.WaitIdle(); err != nil {
		return errors.Wrap(err, "failed to wait for device idle")
	}

	for {
		w, h := g.ctx.Window.FramebufferSize()
		if w > 0 && h > 0 {
			break
		}
		g.ctx.Window.WaitEvents()
	}

	if err := g.ctx.Swapchain.Recreate(); err != nil {
		return err
	}
	extent := g.ctx.Swapchain.Extent()
	for _, p := range g.passes {
		if err := p.Recreate(); err != nil {
			return err
		}
		p.OnResize(extent)
	}
	// the device is idle, nothing recorded before the recreate is pending
	g.ctx.Swapchain.CleanupOld()
	for _, p := range g.passes {
		p.CleanupOld()
	}
	if err := g.sync.Recreate(g.ctx.Swapchain.NumImages()); err != nil {
		return err
	}

	g.resized = false
	g.ctx.Window.ClearResizePending()
	core.MetricsRecordRecreate()
	core.LogInfo("swapchain recreated at %dx%d with %d images", extent.Width, extent.Height, g.ctx.Swapchain.NumImages())
	g.state = StateIdle
	return nil
}

func (g *Graph) waitFence(f metadata.Fence) error {
	res := g.ctx.Device.WaitForFence(f, g.opts.FenceTimeout)
	switch res {
	case metadata.ResultSuccess:
		return nil
	case metadata.ResultTimeout, metadata.ResultErrorDeviceLost:
		err := errors.Wrapf(core.ErrDeviceLost, "fence wait returned %s", res)
		core.LogError(err.Error())
		return err
	}
	return g.resultError("fence wait failed", res)
}

func (g *Graph) resultError(msg string, res metadata.Result) error {
	var err error
	if res == metadata.ResultErrorDeviceLost {
		err = errors.Wrap(core.ErrDeviceLost, msg)
	} else {
		err = errors.Newf("%s: %s", msg, res)
	}
	core.LogError(err.Error())
	return err
}

// Destroy waits for the device and releases the passes, command buffers and
// sync objects.
func (g *Graph) Destroy() {
	if err := g.ctx.Device.WaitIdle(); err != nil {
		core.LogWarn("wait idle before graph destroy failed: %s", err.Error())
	}
	for i := len(g.passes) - 1; i >= 0; i-- {
		g.passes[i].Destroy()
	}
	g.passes = nil
	if g.cmds != nil {
		g.ctx.Device.FreeCommandBuffers(g.cmds)
		g.cmds = nil
	}
	g.sync.Destroy()
}
