package scene

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/material"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// Object is one drawable entry of a scene. Model may be nil for
// procedural materials such as the grid.
type Object struct {
	ID        uuid.UUID
	Name      string
	Model     metadata.Model
	Material  metadata.Material
	Transform mgl32.Mat4
}

// Scene holds the camera and the objects in insertion order. It is used
// from the render thread only.
type Scene struct {
	device    metadata.ResourceDevice
	camera    *Camera
	cameraUBO metadata.Buffer
	cameraSet metadata.DescriptorSet
	objects   []*Object
}

// New allocates the camera uniform buffer and its set 0 descriptor.
func New(device metadata.ResourceDevice, cameraSetLayout metadata.DescriptorSetLayout, aspect float32) (*Scene, error) {
	s := &Scene{device: device, camera: NewCamera(aspect)}
	ubo, err := device.CreateBuffer(cameraUBOSize, metadata.BufferUsageUniform)
	if err != nil {
		err = errors.Wrap(err, "failed to create camera uniform buffer")
		core.LogError(err.Error())
		return nil, err
	}
	s.cameraUBO = ubo
	set, err := device.AllocateDescriptorSet(cameraSetLayout)
	if err != nil {
		device.DestroyBuffer(ubo)
		err = errors.Wrap(err, "failed to allocate camera descriptor set")
		core.LogError(err.Error())
		return nil, err
	}
	s.cameraSet = set
	device.WriteUniformBuffer(set, 0, ubo, cameraUBOSize)
	if err := s.uploadCamera(); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *Scene) Camera() *Camera {
	return s.camera
}

// Add appends an object and returns it with a fresh ID.
func (s *Scene) Add(name string, model metadata.Model, mat metadata.Material, transform mgl32.Mat4) (*Object, error) {
	if mat == nil {
		return nil, errors.Newf("object %q has no material", name)
	}
	obj := &Object{
		ID:        uuid.New(),
		Name:      name,
		Model:     model,
		Material:  mat,
		Transform: transform,
	}
	s.objects = append(s.objects, obj)
	return obj, nil
}

// Remove deletes the object with the given ID, keeping the order of the rest.
func (s *Scene) Remove(id uuid.UUID) error {
	for i, o := range s.objects {
		if o.ID == id {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return nil
		}
	}
	return errors.Mark(errors.Newf("object %s not in scene", id), core.ErrNotFound)
}

func (s *Scene) Find(name string) (*Object, bool) {
	for _, o := range s.objects {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

func (s *Scene) Objects() []*Object {
	return s.objects
}

// Renderables returns the objects in insertion order.
func (s *Scene) Renderables() []metadata.Renderable {
	out := make([]metadata.Renderable, len(s.objects))
	for i, o := range s.objects {
		out[i] = metadata.Renderable{Model: o.Model, Material: o.Material, Transform: o.Transform}
	}
	return out
}

func (s *Scene) CameraSet() metadata.DescriptorSet {
	return s.cameraSet
}

func (s *Scene) SetExtent(extent metadata.Extent2D) {
	if extent.Height == 0 {
		return
	}
	s.camera.SetAspect(float32(extent.Width) / float32(extent.Height))
}

// Update advances animated materials once each and uploads the camera.
func (s *Scene) Update(dt float64) error {
	seen := make(map[metadata.Material]struct{}, len(s.objects))
	for _, o := range s.objects {
		u, ok := o.Material.(material.Updater)
		if !ok {
			continue
		}
		if _, done := seen[o.Material]; done {
			continue
		}
		seen[o.Material] = struct{}{}
		if err := u.Update(dt); err != nil {
			return errors.Wrapf(err, "failed to update material of %q", o.Name)
		}
	}
	return s.uploadCamera()
}

func (s *Scene) uploadCamera() error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, s.camera.UBO()); err != nil {
		return errors.Wrap(err, "failed to encode camera")
	}
	return s.device.UploadBuffer(s.cameraUBO, 0, buf.Bytes())
}

// Destroy releases the camera buffer. Models and materials are owned by the
// caller.
func (s *Scene) Destroy() {
	if s.cameraUBO != 0 {
		s.device.DestroyBuffer(s.cameraUBO)
		s.cameraUBO = 0
	}
	s.objects = nil
}
