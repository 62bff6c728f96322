// Package noop provides a Device that performs no GPU work. Every call is
// recorded in order so tests can assert on the exact sequence the frame
// engine issues. Submissions complete instantly: a submitted fence is
// signaled as soon as Submit returns.
package noop

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// Call is one recorded device or command buffer operation.
type Call struct {
	Op     string
	Handle metadata.Handle
	Args   []any
}

// Device is a recording, instantly-completing implementation of
// metadata.Device.
type Device struct {
	mu sync.Mutex

	next  uint64
	calls []Call

	live       map[string]map[metadata.Handle]struct{}
	doubleFree []Call

	signaled   map[metadata.Fence]bool
	swapchains map[metadata.Swapchain]*swapchainState
	buffers    map[metadata.Buffer][]byte

	// Support is returned by SurfaceSupport.
	Support metadata.SurfaceSupport
	// DepthFormats lists supported depth formats. Nil means all.
	DepthFormats map[metadata.Format]bool
	// AcquireResults and PresentResults are consumed one per call; once
	// empty, calls succeed.
	AcquireResults []metadata.Result
	PresentResults []metadata.Result
	// Failures makes the named create operation (e.g. "CreateGraphicsPipeline")
	// return the given error.
	Failures map[string]error

	// LastSwapchainInfo is the info of the most recent CreateSwapchain call.
	LastSwapchainInfo metadata.SwapchainCreateInfo
	// LastGraphicsPipeline is the info of the most recent CreateGraphicsPipeline call.
	LastGraphicsPipeline metadata.GraphicsPipelineCreateInfo
}

type swapchainState struct {
	images []metadata.Image
	cursor uint32
}

// New returns a device whose surface reports a 800x600 window, 2..8 images,
// and the common sRGB format plus mailbox and FIFO present modes.
func New() *Device {
	return &Device{
		live:       make(map[string]map[metadata.Handle]struct{}),
		signaled:   make(map[metadata.Fence]bool),
		swapchains: make(map[metadata.Swapchain]*swapchainState),
		buffers:    make(map[metadata.Buffer][]byte),
		Failures:   make(map[string]error),
		Support: metadata.SurfaceSupport{
			Capabilities: metadata.SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  8,
				CurrentExtent:  metadata.Extent2D{Width: 800, Height: 600},
				MinImageExtent: metadata.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: metadata.Extent2D{Width: 4096, Height: 4096},
			},
			Formats: []metadata.SurfaceFormat{
				{Format: metadata.FormatB8G8R8A8Unorm, ColorSpace: metadata.ColorSpaceSrgbNonlinear},
				{Format: metadata.FormatB8G8R8A8Srgb, ColorSpace: metadata.ColorSpaceSrgbNonlinear},
			},
			PresentModes: []metadata.PresentMode{metadata.PresentModeFifo, metadata.PresentModeMailbox},
		},
	}
}

func (d *Device) record(op string, h metadata.Handle, args ...any) {
	d.calls = append(d.calls, Call{Op: op, Handle: h, Args: args})
}

func (d *Device) create(kind, op string, args ...any) (metadata.Handle, error) {
	if err := d.Failures[op]; err != nil {
		d.record(op+"!", 0, args...)
		return 0, err
	}
	d.next++
	h := metadata.Handle(d.next)
	if d.live[kind] == nil {
		d.live[kind] = make(map[metadata.Handle]struct{})
	}
	d.live[kind][h] = struct{}{}
	d.record(op, h, args...)
	return h, nil
}

func (d *Device) destroy(kind, op string, h metadata.Handle) {
	if h == 0 {
		return
	}
	if _, ok := d.live[kind][h]; !ok {
		d.doubleFree = append(d.doubleFree, Call{Op: op, Handle: h})
	}
	delete(d.live[kind], h)
	d.record(op, h)
}

// Calls returns a copy of the recorded call log.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Ops returns the recorded operation names in order.
func (d *Device) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ops := make([]string, len(d.calls))
	for i, c := range d.calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was recorded.
func (d *Device) Count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log. Live object tracking is kept.
func (d *Device) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

// Live returns how many objects of kind ("fence", "pipeline", ...) exist.
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live[kind])
}

// IsLive reports whether h of kind has been created and not destroyed.
func (d *Device) IsLive(kind string, h metadata.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.live[kind][h]
	return ok
}

// DoubleFrees returns destroy calls on handles that were not live.
func (d *Device) DoubleFrees() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.doubleFree...)
}

// Signaled reports the fence state.
func (d *Device) Signaled(f metadata.Fence) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.signaled[f]
}

func (d *Device) CreateFence(signaled bool) (metadata.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("fence", "CreateFence", signaled)
	if err != nil {
		return 0, err
	}
	d.signaled[metadata.Fence(h)] = signaled
	return metadata.Fence(h), nil
}

func (d *Device) DestroyFence(f metadata.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("fence", "DestroyFence", metadata.Handle(f))
	delete(d.signaled, f)
}

// WaitForFence returns Success for signaled fences and Timeout otherwise,
// since nothing would ever signal them.
func (d *Device) WaitForFence(f metadata.Fence, timeout uint64) metadata.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WaitForFence", metadata.Handle(f), timeout)
	if _, ok := d.live["fence"][metadata.Handle(f)]; !ok {
		return metadata.ResultErrorDeviceLost
	}
	if d.signaled[f] {
		return metadata.ResultSuccess
	}
	return metadata.ResultTimeout
}

func (d *Device) ResetFence(f metadata.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ResetFence", metadata.Handle(f))
	d.signaled[f] = false
	return nil
}

func (d *Device) CreateSemaphore() (metadata.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("semaphore", "CreateSemaphore")
	return metadata.Semaphore(h), err
}

func (d *Device) DestroySemaphore(s metadata.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("semaphore", "DestroySemaphore", metadata.Handle(s))
}

func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WaitIdle", 0)
	return nil
}

func (d *Device) SurfaceSupport() (metadata.SurfaceSupport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SurfaceSupport", 0)
	return d.Support, nil
}

func (d *Device) SupportsDepthFormat(f metadata.Format) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DepthFormats == nil {
		return f.IsDepth()
	}
	return d.DepthFormats[f]
}

func (d *Device) CreateSwapchain(info metadata.SwapchainCreateInfo) (metadata.Swapchain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("swapchain", "CreateSwapchain", info)
	if err != nil {
		return 0, err
	}
	d.LastSwapchainInfo = info
	state := &swapchainState{}
	for i := uint32(0); i < info.MinImageCount; i++ {
		d.next++
		state.images = append(state.images, metadata.Image(d.next))
	}
	d.swapchains[metadata.Swapchain(h)] = state
	return metadata.Swapchain(h), nil
}

func (d *Device) SwapchainImages(sc metadata.Swapchain) ([]metadata.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	state, ok := d.swapchains[sc]
	if !ok {
		return nil, errors.Newf("unknown swapchain %d", sc)
	}
	return append([]metadata.Image(nil), state.images...), nil
}

func (d *Device) DestroySwapchain(sc metadata.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("swapchain", "DestroySwapchain", metadata.Handle(sc))
	delete(d.swapchains, sc)
}

// AcquireNextImage hands out images round-robin.
func (d *Device) AcquireNextImage(sc metadata.Swapchain, timeout uint64, signal metadata.Semaphore) (uint32, metadata.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("AcquireNextImage", metadata.Handle(sc), signal)
	res := metadata.ResultSuccess
	if len(d.AcquireResults) > 0 {
		res = d.AcquireResults[0]
		d.AcquireResults = d.AcquireResults[1:]
	}
	if !res.IsSuccess() {
		return 0, res
	}
	state, ok := d.swapchains[sc]
	if !ok || len(state.images) == 0 {
		return 0, metadata.ResultErrorSurfaceLost
	}
	idx := state.cursor
	state.cursor = (state.cursor + 1) % uint32(len(state.images))
	return idx, res
}

func (d *Device) Submit(info metadata.SubmitInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Submit", metadata.Handle(info.Fence), info)
	if info.Fence != 0 {
		if d.signaled[info.Fence] {
			return errors.Newf("submit with fence %d still signaled", info.Fence)
		}
		d.signaled[info.Fence] = true
	}
	return nil
}

func (d *Device) Present(info metadata.PresentInfo) metadata.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Present", metadata.Handle(info.Swapchain), info)
	if len(d.PresentResults) > 0 {
		res := d.PresentResults[0]
		d.PresentResults = d.PresentResults[1:]
		return res
	}
	return metadata.ResultSuccess
}

func (d *Device) CreateImageView(image metadata.Image, format metadata.Format, aspect metadata.ImageAspect) (metadata.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("imageview", "CreateImageView", image, format)
	return metadata.ImageView(h), err
}

func (d *Device) DestroyImageView(v metadata.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("imageview", "DestroyImageView", metadata.Handle(v))
}

func (d *Device) CreateAttachment(info metadata.AttachmentCreateInfo) (metadata.Attachment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("attachment", "CreateAttachment", info)
	if err != nil {
		return metadata.Attachment{}, err
	}
	return metadata.Attachment{
		Image:  metadata.Image(h),
		View:   metadata.ImageView(h),
		Format: info.Format,
		Extent: info.Extent,
	}, nil
}

func (d *Device) DestroyAttachment(a metadata.Attachment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("attachment", "DestroyAttachment", metadata.Handle(a.View))
}

func (d *Device) CreateRenderPass(info metadata.RenderPassCreateInfo) (metadata.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("renderpass", "CreateRenderPass", info)
	return metadata.RenderPass(h), err
}

func (d *Device) DestroyRenderPass(rp metadata.RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("renderpass", "DestroyRenderPass", metadata.Handle(rp))
}

func (d *Device) CreateFramebuffer(info metadata.FramebufferCreateInfo) (metadata.Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("framebuffer", "CreateFramebuffer", info)
	return metadata.Framebuffer(h), err
}

func (d *Device) DestroyFramebuffer(fb metadata.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("framebuffer", "DestroyFramebuffer", metadata.Handle(fb))
}

func (d *Device) CreateShaderModule(code []uint32) (metadata.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("shader", "CreateShaderModule", len(code))
	return metadata.ShaderModule(h), err
}

func (d *Device) DestroyShaderModule(m metadata.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("shader", "DestroyShaderModule", metadata.Handle(m))
}

func (d *Device) CreatePipelineLayout(info metadata.PipelineLayoutCreateInfo) (metadata.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("layout", "CreatePipelineLayout", info)
	return metadata.PipelineLayout(h), err
}

func (d *Device) DestroyPipelineLayout(l metadata.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("layout", "DestroyPipelineLayout", metadata.Handle(l))
}

func (d *Device) CreateGraphicsPipeline(cache metadata.PipelineCache, info metadata.GraphicsPipelineCreateInfo) (metadata.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("pipeline", "CreateGraphicsPipeline", cache, info)
	if err == nil {
		d.LastGraphicsPipeline = info
	}
	return metadata.Pipeline(h), err
}

func (d *Device) CreateComputePipeline(cache metadata.PipelineCache, info metadata.ComputePipelineCreateInfo) (metadata.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("pipeline", "CreateComputePipeline", cache, info)
	return metadata.Pipeline(h), err
}

func (d *Device) DestroyPipeline(p metadata.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("pipeline", "DestroyPipeline", metadata.Handle(p))
}

func (d *Device) CreatePipelineCache() (metadata.PipelineCache, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("pipelinecache", "CreatePipelineCache")
	return metadata.PipelineCache(h), err
}

func (d *Device) DestroyPipelineCache(c metadata.PipelineCache) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("pipelinecache", "DestroyPipelineCache", metadata.Handle(c))
}

func (d *Device) CreateBuffer(size uint64, usage metadata.BufferUsage) (metadata.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("buffer", "CreateBuffer", size, usage)
	if err == nil {
		d.buffers[metadata.Buffer(h)] = make([]byte, size)
	}
	return metadata.Buffer(h), err
}

func (d *Device) UploadBuffer(b metadata.Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live["buffer"][metadata.Handle(b)]; !ok {
		return errors.Newf("upload to unknown buffer %d", b)
	}
	mem := d.buffers[b]
	if offset+uint64(len(data)) > uint64(len(mem)) {
		return errors.Newf("upload of %d bytes at %d overflows buffer %d of %d bytes", len(data), offset, b, len(mem))
	}
	copy(mem[offset:], data)
	d.record("UploadBuffer", metadata.Handle(b), offset, len(data))
	return nil
}

func (d *Device) DestroyBuffer(b metadata.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("buffer", "DestroyBuffer", metadata.Handle(b))
	delete(d.buffers, b)
}

// Contents returns a copy of the bytes last uploaded to b.
func (d *Device) Contents(b metadata.Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.buffers[b]...)
}

func (d *Device) CreateDescriptorSetLayout(bindings []metadata.DescriptorSetLayoutBinding) (metadata.DescriptorSetLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("setlayout", "CreateDescriptorSetLayout", bindings)
	return metadata.DescriptorSetLayout(h), err
}

func (d *Device) DestroyDescriptorSetLayout(l metadata.DescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("setlayout", "DestroyDescriptorSetLayout", metadata.Handle(l))
}

func (d *Device) AllocateDescriptorSet(layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("descriptorset", "AllocateDescriptorSet", layout)
	return metadata.DescriptorSet(h), err
}

func (d *Device) WriteUniformBuffer(set metadata.DescriptorSet, binding uint32, buffer metadata.Buffer, size uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WriteUniformBuffer", metadata.Handle(set), binding, buffer, size)
}

func (d *Device) AllocateCommandBuffers(count int) ([]metadata.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]metadata.CommandBuffer, 0, count)
	for i := 0; i < count; i++ {
		h, err := d.create("commandbuffer", "AllocateCommandBuffer")
		if err != nil {
			return nil, err
		}
		out = append(out, &CommandBuffer{dev: d, id: h})
	}
	return out, nil
}

func (d *Device) FreeCommandBuffers(buffers []metadata.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range buffers {
		if cb, ok := b.(*CommandBuffer); ok {
			d.destroy("commandbuffer", "FreeCommandBuffer", cb.id)
		}
	}
}

func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyDevice", 0)
}

var _ metadata.Device = (*Device)(nil)
