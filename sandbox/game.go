package sandbox

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/vks/engine"
	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/math"
	"github.com/spaghettifunk/vks/engine/renderer"
	"github.com/spaghettifunk/vks/engine/renderer/material"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/pipeline"
	"github.com/spaghettifunk/vks/engine/scene"
)

const (
	SpherePipeline = "sphere"
	GridPipeline   = "grid"
)

type Sandbox struct {
	*engine.Game
}

type gameState struct {
	renderer *renderer.Renderer
	registry *material.Registry

	sphere    *scene.Model
	materials []interface{ Destroy() }
	spheres   []*scene.Object

	orbit       float32
	orbitRadius float32
	spin        float32
}

func NewSandbox(config *engine.ApplicationConfig) *Sandbox {
	s := &Sandbox{
		Game: &engine.Game{
			ApplicationConfig: config,
			State: &gameState{
				registry:    material.NewRegistry(),
				orbitRadius: 10,
			},
		},
	}
	s.FnInitialize = s.Initialize
	s.FnUpdate = s.Update
	s.FnOnResize = s.OnResize
	s.FnShutdown = s.Shutdown
	return s
}

func (g *Sandbox) state() *gameState {
	return g.State.(*gameState)
}

// Pipelines describes the sandbox pipelines against the renderer's set
// layouts and shader directory.
func Pipelines(r *renderer.Renderer) map[string]pipeline.Desc {
	setLayouts := []metadata.DescriptorSetLayout{r.CameraSetLayout(), r.MaterialSetLayout()}

	sphere := pipeline.DefaultGraphicsDesc(r.ShaderPath("sphere.vert"), r.ShaderPath("sphere.frag"))
	sphere.VertexBindings = scene.VertexBindings
	sphere.VertexAttributes = scene.VertexAttributes

	// lines are generated from gl_VertexIndex and gl_InstanceIndex
	grid := pipeline.DefaultGraphicsDesc(r.ShaderPath("grid.vert"), r.ShaderPath("grid.frag"))
	grid.VertexInput = false
	grid.Topology = metadata.PrimitiveTopologyLineStrip
	grid.CullMode = metadata.CullModeNone
	grid.DepthWrite = false
	grid.AlphaBlending = true
	grid.DynamicStates = append(grid.DynamicStates, metadata.DynamicStateLineWidth)

	return map[string]pipeline.Desc{
		SpherePipeline: {
			Kind:       pipeline.KindGraphics,
			SetLayouts: setLayouts,
			PushConstants: []metadata.PushConstantRange{{
				Stages: metadata.ShaderStageVertex,
				Size:   64,
			}},
			Graphics: sphere,
		},
		GridPipeline: {
			Kind:       pipeline.KindGraphics,
			SetLayouts: setLayouts,
			Graphics:   grid,
		},
	}
}

func (g *Sandbox) Initialize(r *renderer.Renderer) error {
	core.LogDebug("Sandbox Initialize fn....")
	state := g.state()
	state.renderer = r

	descs := Pipelines(r)
	for _, name := range []string{GridPipeline, SpherePipeline} {
		if err := r.Pipelines().CreateOrReplace(name, descs[name]); err != nil {
			return err
		}
	}

	device := r.Device()
	sphere, err := scene.NewSphere(device, 1.0, 48, 24)
	if err != nil {
		return err
	}
	state.sphere = sphere

	gridMat, err := material.NewGridMaterial(device, r.MaterialSetLayout(), GridPipeline, material.GridUBO{
		Color:        mgl32.Vec4{0.35, 0.35, 0.4, 1.0},
		Spacing:      1.0,
		Dimension:    10,
		GlowStrength: 0.6,
		GlowPower:    4.0,
		NearFade:     5.0,
		FarFade:      40.0,
	})
	if err != nil {
		return err
	}
	state.materials = append(state.materials, gridMat)

	red, err := material.NewColorMaterial(device, r.MaterialSetLayout(), SpherePipeline, mgl32.Vec4{0.9, 0.1, 0.1, 1.0})
	if err != nil {
		return err
	}
	state.materials = append(state.materials, red)

	blue, err := material.NewColorMaterial(device, r.MaterialSetLayout(), SpherePipeline, mgl32.Vec4{0.1, 0.2, 0.9, 1.0})
	if err != nil {
		return err
	}
	state.materials = append(state.materials, blue)

	sc := r.Scene()
	if _, err := sc.Add("grid", nil, gridMat, mgl32.Ident4()); err != nil {
		return err
	}
	for _, o := range []struct {
		name string
		mat  metadata.Material
		pos  mgl32.Vec3
	}{
		{"red sphere", red, mgl32.Vec3{-2, 0, 1}},
		{"blue sphere", blue, mgl32.Vec3{2, 0, 1}},
	} {
		obj, err := sc.Add(o.name, sphere, o.mat, mgl32.Translate3D(o.pos.X(), o.pos.Y(), o.pos.Z()))
		if err != nil {
			return err
		}
		state.spheres = append(state.spheres, obj)
	}

	g.placeCamera()
	g.logMaterials()
	return nil
}

func (g *Sandbox) logMaterials() {
	state := g.state()
	for _, obj := range state.renderer.Scene().Objects() {
		props, err := state.registry.Inspect(obj.Material)
		if err != nil {
			continue
		}
		for _, p := range props {
			core.LogDebug("%s (%s): %s = %v", obj.Name, material.KindName(obj.Material.Kind()), p.Name, p.Value)
		}
	}
}

func (g *Sandbox) placeCamera() {
	state := g.state()
	cam := state.renderer.Scene().Camera()
	x := state.orbitRadius * math.Cos(state.orbit)
	y := state.orbitRadius * math.Sin(state.orbit)
	cam.SetPosition(mgl32.Vec3{x, y, 5})
	cam.LookAt(mgl32.Vec3{0, 0, 0.5})
}

// Update orbits the camera around the origin and spins the spheres in place.
func (g *Sandbox) Update(deltaTime float64) error {
	state := g.state()
	if state.renderer == nil {
		return errors.New("sandbox updated before initialize")
	}
	state.orbit += float32(0.2 * deltaTime)
	state.spin += float32(deltaTime)
	g.placeCamera()

	rot := mgl32.HomogRotate3DZ(state.spin)
	for _, obj := range state.spheres {
		pos := obj.Transform.Col(3)
		obj.Transform = mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).Mul4(rot)
	}
	return nil
}

func (g *Sandbox) OnResize(width, height uint32) error {
	core.LogDebug("sandbox resized to %dx%d", width, height)
	return nil
}

// Shutdown destroys the materials and the sphere model. The renderer is
// still alive at this point.
func (g *Sandbox) Shutdown() error {
	state := g.state()
	if state.renderer != nil {
		if err := state.renderer.Device().WaitIdle(); err != nil {
			core.LogWarn("wait idle before sandbox shutdown failed: %s", err.Error())
		}
	}
	for _, m := range state.materials {
		m.Destroy()
	}
	state.materials = nil
	if state.sphere != nil {
		state.sphere.Destroy()
		state.sphere = nil
	}
	state.spheres = nil
	return nil
}
