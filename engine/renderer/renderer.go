package renderer

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/platform"
	"github.com/spaghettifunk/vks/engine/renderer/graph"
	"github.com/spaghettifunk/vks/engine/renderer/material"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/pass"
	"github.com/spaghettifunk/vks/engine/renderer/pipeline"
	"github.com/spaghettifunk/vks/engine/renderer/swapchain"
	"github.com/spaghettifunk/vks/engine/renderer/vulkan"
	"github.com/spaghettifunk/vks/engine/scene"
	"github.com/spaghettifunk/vks/engine/shaders"
)

const (
	PickerVertexShader   = "object_picker.vert"
	PickerFragmentShader = "object_picker.frag"
)

/**
 * @brief Owns the device and everything built on it: swapchain, scene,
 * pipeline cache, render passes and the render graph that drives them.
 * All methods run on the render thread.
 */
type Renderer struct {
	config Config
	device metadata.Device
	window metadata.Window

	cameraLayout   metadata.DescriptorSetLayout
	materialLayout metadata.DescriptorSetLayout
	cache          metadata.PipelineCache

	swapchain *swapchain.Swapchain
	scene     *scene.Scene
	reloader  *shaders.HotReloader
	geometry  *pass.GeometryPass
	picker    *pass.PickerPass
	graph     *graph.Graph
}

// New creates the Vulkan backend on the platform window and builds the frame
// engine on top of it.
func New(p *platform.Platform, config Config) (*Renderer, error) {
	if config.Type != Vulkan {
		err := errors.Newf("unsupported renderer backend %s", config.Type)
		core.LogError(err.Error())
		return nil, err
	}
	device, err := vulkan.New(p.Window, vulkan.Config{
		ApplicationName:   config.ApplicationName,
		Validation:        config.Validation,
		MaxDescriptorSets: config.MaxDescriptorSets,
	})
	if err != nil {
		return nil, err
	}
	r, err := NewWithDevice(device, p, config)
	if err != nil {
		device.Destroy()
		return nil, err
	}
	return r, nil
}

// NewWithDevice builds the frame engine on an existing device. The renderer
// takes ownership of device only when it returns without error.
func NewWithDevice(device metadata.Device, window metadata.Window, config Config) (*Renderer, error) {
	r := &Renderer{
		config: config,
		device: device,
		window: window,
	}
	if err := r.initialize(); err != nil {
		r.destroy()
		return nil, err
	}
	core.LogInfo("renderer initialized: %d swapchain images, %d frames in flight", r.swapchain.NumImages(), r.graph.FramesInFlight())
	return r, nil
}

func (r *Renderer) initialize() error {
	var err error
	if r.cameraLayout, err = r.device.CreateDescriptorSetLayout(scene.CameraBinding); err != nil {
		return errors.Wrap(err, "failed to create camera set layout")
	}
	if r.materialLayout, err = r.device.CreateDescriptorSetLayout(material.UniformBinding); err != nil {
		return errors.Wrap(err, "failed to create material set layout")
	}

	if r.swapchain, err = swapchain.New(r.device, r.window); err != nil {
		return err
	}
	extent := r.swapchain.Extent()
	aspect := float32(1)
	if extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}
	if r.scene, err = scene.New(r.device, r.cameraLayout, aspect); err != nil {
		return err
	}
	if r.cache, err = r.device.CreatePipelineCache(); err != nil {
		return errors.Wrap(err, "failed to create pipeline cache")
	}

	if r.config.HotReload {
		r.startHotReload()
	}

	ctx := pass.Context{
		Device:        r.device,
		Swapchain:     r.swapchain,
		Scene:         r.scene,
		PipelineCache: r.cache,
	}
	var opts []pass.GeometryOption
	if r.reloader != nil {
		opts = append(opts, pass.WithShaderReloader(r.reloader))
	}
	if r.geometry, err = pass.NewGeometryPass(ctx, opts...); err != nil {
		return err
	}
	if r.picker, err = pass.NewPickerPass(ctx, pass.PickerConfig{
		VertexShader:     r.config.ShaderPath(PickerVertexShader),
		FragmentShader:   r.config.ShaderPath(PickerFragmentShader),
		CameraSetLayout:  r.cameraLayout,
		VertexBindings:   scene.VertexBindings,
		VertexAttributes: scene.VertexAttributes,
	}); err != nil {
		return err
	}

	if r.graph, err = graph.New(graph.Context{
		Device:    r.device,
		Window:    r.window,
		Swapchain: r.swapchain,
	}, graph.WithFramesInFlight(r.config.FramesInFlight), graph.WithFenceTimeout(r.config.FenceTimeout)); err != nil {
		return err
	}
	if err := r.graph.AddPass(r.geometry); err != nil {
		return err
	}
	return r.graph.AddPass(r.picker)
}

// startHotReload compiles the shader sources and watches them. Failing to
// start is not fatal: pipelines are built from whatever SPIR-V is on disk.
func (r *Renderer) startHotReload() {
	compiler := shaders.NewCompiler(r.config.ShaderOutDir,
		shaders.WithDebounce(r.config.Debounce),
		shaders.OnCompiled(func(b shaders.Build) {
			ctx := core.EventContext{}
			ctx.Data.S = b.Output
			core.EventFire(core.EventCodeShaderCompiled, r, ctx)
		}),
	)
	reloader, err := shaders.NewHotReloader(context.Background(), r.config.ShaderDir, compiler)
	if err != nil {
		core.LogWarn("shader hot reload disabled: %s", err.Error())
		return
	}
	r.reloader = reloader
}

func (r *Renderer) Device() metadata.Device {
	return r.device
}

func (r *Renderer) Scene() *scene.Scene {
	return r.scene
}

func (r *Renderer) Graph() *graph.Graph {
	return r.graph
}

// Pipelines is the pipeline registry of the geometry pass. Materials name
// their pipelines here.
func (r *Renderer) Pipelines() *pipeline.Manager {
	return r.geometry.Pipelines()
}

func (r *Renderer) CameraSetLayout() metadata.DescriptorSetLayout {
	return r.cameraLayout
}

func (r *Renderer) MaterialSetLayout() metadata.DescriptorSetLayout {
	return r.materialLayout
}

// ShaderPath returns the compiled path of a shader source name.
func (r *Renderer) ShaderPath(source string) string {
	return r.config.ShaderPath(source)
}

// DrawFrame updates the scene and renders one frame through the graph.
func (r *Renderer) DrawFrame(deltaTime float64) error {
	if err := r.scene.Update(deltaTime); err != nil {
		err = errors.Wrap(err, "scene update failed")
		core.LogError(err.Error())
		return err
	}
	return r.graph.Execute(deltaTime)
}

// OnResize flags the swapchain for recreation at the end of the next frame.
func (r *Renderer) OnResize(width, height uint32) {
	core.LogDebug("renderer resize requested: %dx%d", width, height)
	r.graph.SetResized()
}

// Shutdown waits for the device and releases everything the renderer built,
// then the device itself. Models and materials must be destroyed first.
func (r *Renderer) Shutdown() error {
	if err := r.device.WaitIdle(); err != nil {
		core.LogWarn("wait idle before shutdown failed: %s", err.Error())
	}
	r.destroy()
	r.device.Destroy()
	return nil
}

func (r *Renderer) destroy() {
	if r.graph != nil {
		r.graph.Destroy()
		r.graph = nil
	}
	// passes not yet handed to the graph
	if r.picker != nil {
		r.picker.Destroy()
	}
	if r.geometry != nil {
		r.geometry.Destroy()
	}
	if r.reloader != nil {
		if err := r.reloader.Close(); err != nil {
			core.LogWarn("failed to close shader watcher: %s", err.Error())
		}
		r.reloader = nil
	}
	if r.cache != 0 {
		r.device.DestroyPipelineCache(r.cache)
		r.cache = 0
	}
	if r.scene != nil {
		r.scene.Destroy()
		r.scene = nil
	}
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
	if r.materialLayout != 0 {
		r.device.DestroyDescriptorSetLayout(r.materialLayout)
		r.materialLayout = 0
	}
	if r.cameraLayout != 0 {
		r.device.DestroyDescriptorSetLayout(r.cameraLayout)
		r.cameraLayout = 0
	}
}
