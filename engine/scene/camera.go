package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/vks/engine/math"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// CameraUBO is the set 0 uniform block shared by every pipeline.
type CameraUBO struct {
	View mgl32.Mat4
	Proj mgl32.Mat4
}

const cameraUBOSize = 128

// CameraBinding is the set 0 layout: the camera block at binding 0.
var CameraBinding = []metadata.DescriptorSetLayoutBinding{{
	Binding: 0,
	Type:    metadata.DescriptorTypeUniformBuffer,
	Count:   1,
	Stages:  metadata.ShaderStageVertex | metadata.ShaderStageFragment,
}}

/**
 * @brief A free-flying perspective camera in a Z-up world. Yaw and pitch are
 * in radians; pitch is clamped short of the poles.
 */
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32

	fovY   float32
	near   float32
	far    float32
	aspect float32

	/** @brief Internal flag used to determine when the matrices need to be rebuilt. */
	isDirty bool
	view    mgl32.Mat4
	proj    mgl32.Mat4
}

var worldUp = mgl32.Vec3{0, 0, 1}

// pitchLimit keeps the view direction off the poles.
var pitchLimit = math.DegToRad(89)

func NewCamera(aspect float32) *Camera {
	c := &Camera{}
	c.Reset()
	c.aspect = aspect
	return c
}

func (c *Camera) Reset() {
	c.Position = mgl32.Vec3{5, 5, 5}
	c.Yaw = 0
	c.Pitch = 0
	c.fovY = math.DegToRad(45)
	c.near = 0.1
	c.far = 100
	c.aspect = 1
	c.isDirty = true
}

func (c *Camera) Aspect() float32 {
	return c.aspect
}

func (c *Camera) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.aspect = aspect
	c.isDirty = true
}

// SetPerspective sets the vertical field of view (radians) and clip planes.
func (c *Camera) SetPerspective(fovY, near, far float32) {
	c.fovY, c.near, c.far = fovY, near, far
	c.isDirty = true
}

func (c *Camera) SetPosition(p mgl32.Vec3) {
	c.Position = p
	c.isDirty = true
}

// Rotate adds to yaw and pitch.
func (c *Camera) Rotate(dYaw, dPitch float32) {
	c.Yaw += dYaw
	c.Pitch = math.Clamp(c.Pitch+dPitch, -pitchLimit, pitchLimit)
	c.isDirty = true
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target mgl32.Vec3) {
	d := target.Sub(c.Position)
	if d.Len() == 0 {
		return
	}
	d = d.Normalize()
	c.Pitch = math.Clamp(math.Asin(d.Z()), -pitchLimit, pitchLimit)
	c.Yaw = math.Atan2(d.Y(), d.X())
	c.isDirty = true
}

func (c *Camera) Forward() mgl32.Vec3 {
	cp, sp := math.Cos(c.Pitch), math.Sin(c.Pitch)
	cy, sy := math.Cos(c.Yaw), math.Sin(c.Yaw)
	return mgl32.Vec3{cp * cy, cp * sy, sp}.Normalize()
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(worldUp).Normalize()
}

func (c *Camera) Up() mgl32.Vec3 {
	return c.Right().Cross(c.Forward()).Normalize()
}

func (c *Camera) Move(forward, right, up float32) {
	c.Position = c.Position.
		Add(c.Forward().Mul(forward)).
		Add(c.Right().Mul(right)).
		Add(c.Up().Mul(up))
	c.isDirty = true
}

func (c *Camera) View() mgl32.Mat4 {
	c.rebuild()
	return c.view
}

// Projection is a right-handed perspective with clip-space Y pointing down.
func (c *Camera) Projection() mgl32.Mat4 {
	c.rebuild()
	return c.proj
}

func (c *Camera) UBO() CameraUBO {
	c.rebuild()
	return CameraUBO{View: c.view, Proj: c.proj}
}

func (c *Camera) rebuild() {
	if !c.isDirty {
		return
	}
	c.view = mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), worldUp)
	c.proj = mgl32.Perspective(c.fovY, c.aspect, c.near, c.far)
	// Vulkan clip space has Y down
	c.proj.Set(1, 1, -c.proj.At(1, 1))
	c.isDirty = false
}
