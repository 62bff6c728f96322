package pass

import (
	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// ShaderReloader reports SPIR-V files rebuilt since the last call. Update
// runs on the render thread.
type ShaderReloader interface {
	Update() []string
}

/**
 * @brief Draws the scene into the swapchain image with a depth buffer.
 * Color is cleared to near-black and transitioned for presentation.
 */
type GeometryPass struct {
	base

	reloader ShaderReloader
	stats    DrawStats
}

type GeometryOption func(*GeometryPass)

// WithShaderReloader rebuilds pipelines whose shaders the reloader reports.
func WithShaderReloader(r ShaderReloader) GeometryOption {
	return func(g *GeometryPass) {
		g.reloader = r
	}
}

func NewGeometryPass(ctx Context, opts ...GeometryOption) (*GeometryPass, error) {
	g := &GeometryPass{}
	for _, opt := range opts {
		opt(g)
	}
	g.base = newBase(TypeGeometry, ctx, g)
	if err := g.init(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GeometryPass) createTargets() error { return nil }
func (g *GeometryPass) destroyTargets() {}

func (g *GeometryPass) renderPassInfo() metadata.RenderPassCreateInfo {
	return metadata.RenderPassCreateInfo{
		ColorAttachments: []metadata.AttachmentDescription{{
			Format:        g.ctx.Swapchain.ImageFormat(),
			LoadOp:        metadata.LoadOpClear,
			StoreOp:       metadata.StoreOpStore,
			InitialLayout: metadata.ImageLayoutUndefined,
			FinalLayout:   metadata.ImageLayoutPresentSrc,
		}},
		DepthAttachment: &metadata.AttachmentDescription{
			Format:        g.ctx.Swapchain.DepthFormat(),
			LoadOp:        metadata.LoadOpClear,
			StoreOp:       metadata.StoreOpDontCare,
			InitialLayout: metadata.ImageLayoutUndefined,
			FinalLayout:   metadata.ImageLayoutDepthStencilAttachmentOptimal,
		},
		Dependencies: []metadata.SubpassDependency{{
			SrcStageMask:  metadata.PipelineStageColorAttachmentOutput | metadata.PipelineStageEarlyFragmentTests,
			DstStageMask:  metadata.PipelineStageColorAttachmentOutput | metadata.PipelineStageEarlyFragmentTests,
			DstAccessMask: metadata.AccessColorAttachmentWrite | metadata.AccessDepthStencilAttachmentWrite,
		}},
	}
}

func (g *GeometryPass) framebufferViews(i int) []metadata.ImageView {
	return []metadata.ImageView{g.ctx.Swapchain.ImageView(i), g.ctx.Swapchain.DepthView(i)}
}

// Update rebuilds pipelines whose shaders were recompiled. A failed rebuild
// is logged; the frame carries on.
func (g *GeometryPass) Update(dt float64, imageIndex uint32) error {
	if g.reloader == nil {
		return nil
	}
	changed := g.reloader.Update()
	if len(changed) == 0 {
		return nil
	}
	// pipelines may still be referenced by in-flight command buffers
	if err := g.ctx.Device.WaitIdle(); err != nil {
		return err
	}
	for _, path := range changed {
		for _, name := range g.pipelines.NamesUsing(path) {
			core.LogInfo("reloading pipeline %q after %s changed", name, path)
			if err := g.pipelines.Reload(name); err != nil {
				core.LogError("hot reload of %q failed: %s", name, err.Error())
			}
		}
	}
	return nil
}

func (g *GeometryPass) Record(cmd metadata.CommandBuffer, imageIndex uint32) error {
	clears := []metadata.ClearValue{
		metadata.ClearColor(0.01, 0.01, 0.01, 1.0),
		metadata.ClearDepthStencil(1.0, 0),
	}
	if err := g.begin(cmd, imageIndex, clears); err != nil {
		return err
	}
	var objects []metadata.Renderable
	var cameraSet metadata.DescriptorSet
	if g.ctx.Scene != nil {
		objects = g.ctx.Scene.Renderables()
		cameraSet = g.ctx.Scene.CameraSet()
	}
	stats, err := DrawObjects(cmd, g.pipelines, objects, cameraSet)
	cmd.EndRenderPass()
	g.stats = stats
	return err
}

func (g *GeometryPass) OnResize(extent metadata.Extent2D) {
	if g.ctx.Scene != nil {
		g.ctx.Scene.SetExtent(extent)
	}
}

// LastStats returns the draw statistics of the most recent Record.
func (g *GeometryPass) LastStats() DrawStats {
	return g.stats
}
