package scene

import (
	"bytes"
	"encoding/binary"
	m "math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// Vertex is the interleaved layout of every mesh: position, normal, uv.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

const vertexStride = 32

// VertexBindings and VertexAttributes describe Vertex to a pipeline.
var (
	VertexBindings = []metadata.VertexBinding{{Binding: 0, Stride: vertexStride}}

	VertexAttributes = []metadata.VertexAttribute{
		{Location: 0, Binding: 0, Format: metadata.FormatR32G32B32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: metadata.FormatR32G32B32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: metadata.FormatR32G32Sfloat, Offset: 24},
	}
)

// Model is an indexed mesh living in device buffers.
type Model struct {
	device       metadata.ResourceDevice
	vertexBuffer metadata.Buffer
	indexBuffer  metadata.Buffer
	vertexCount  uint32
	indexCount   uint32
}

// NewModel uploads vertices and 32-bit indices.
func NewModel(device metadata.ResourceDevice, vertices []Vertex, indices []uint32) (*Model, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, errors.New("model needs at least one vertex and one index")
	}
	md := &Model{
		device:      device,
		vertexCount: uint32(len(vertices)),
		indexCount:  uint32(len(indices)),
	}
	var err error
	if md.vertexBuffer, err = upload(device, vertices, metadata.BufferUsageVertex); err != nil {
		return nil, err
	}
	if md.indexBuffer, err = upload(device, indices, metadata.BufferUsageIndex); err != nil {
		md.Destroy()
		return nil, err
	}
	return md, nil
}

// NewSphere builds a UV sphere around the origin with Z as its axis.
func NewSphere(device metadata.ResourceDevice, radius float32, sectors, stacks uint32) (*Model, error) {
	vertices, indices, err := SphereMesh(radius, sectors, stacks)
	if err != nil {
		return nil, err
	}
	return NewModel(device, vertices, indices)
}

// SphereMesh generates (stacks+1)*(sectors+1) vertices. The pole stacks
// contribute one triangle per sector, every other stack two.
func SphereMesh(radius float32, sectors, stacks uint32) ([]Vertex, []uint32, error) {
	if radius <= 0 || sectors < 3 || stacks < 2 {
		return nil, nil, errors.Newf("invalid sphere: radius %v, %d sectors, %d stacks", radius, sectors, stacks)
	}
	vertices := make([]Vertex, 0, (stacks+1)*(sectors+1))
	sectorStep := 2 * m.Pi / float64(sectors)
	stackStep := m.Pi / float64(stacks)
	inv := 1 / radius

	for i := uint32(0); i <= stacks; i++ {
		stackAngle := m.Pi/2 - float64(i)*stackStep
		xy := radius * float32(m.Cos(stackAngle))
		z := radius * float32(m.Sin(stackAngle))
		for j := uint32(0); j <= sectors; j++ {
			sectorAngle := float64(j) * sectorStep
			x := xy * float32(m.Cos(sectorAngle))
			y := xy * float32(m.Sin(sectorAngle))
			vertices = append(vertices, Vertex{
				Position: mgl32.Vec3{x, y, z},
				Normal:   mgl32.Vec3{x * inv, y * inv, z * inv},
				UV:       mgl32.Vec2{float32(j) / float32(sectors), float32(i) / float32(stacks)},
			})
		}
	}

	indices := make([]uint32, 0, 6*sectors*(stacks-1))
	for i := uint32(0); i < stacks; i++ {
		k1 := i * (sectors + 1)
		k2 := k1 + sectors + 1
		for j := uint32(0); j < sectors; j, k1, k2 = j+1, k1+1, k2+1 {
			if i != 0 {
				indices = append(indices, k1, k2, k1+1)
			}
			if i != stacks-1 {
				indices = append(indices, k1+1, k2, k2+1)
			}
		}
	}
	return vertices, indices, nil
}

func upload(device metadata.ResourceDevice, data any, usage metadata.BufferUsage) (metadata.Buffer, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return 0, errors.Wrap(err, "failed to encode mesh data")
	}
	b, err := device.CreateBuffer(uint64(buf.Len()), usage)
	if err != nil {
		err = errors.Wrap(err, "failed to create mesh buffer")
		core.LogError(err.Error())
		return 0, err
	}
	if err := device.UploadBuffer(b, 0, buf.Bytes()); err != nil {
		device.DestroyBuffer(b)
		return 0, errors.Wrap(err, "failed to upload mesh buffer")
	}
	return b, nil
}

// Bind binds the vertex and index buffers. The material issues the draw.
func (md *Model) Bind(cmd metadata.CommandBuffer) {
	cmd.BindVertexBuffer(0, md.vertexBuffer, 0)
	cmd.BindIndexBuffer(md.indexBuffer, 0, metadata.IndexTypeUint32)
}

func (md *Model) IndexCount() uint32 {
	return md.indexCount
}

func (md *Model) VertexCount() uint32 {
	return md.vertexCount
}

func (md *Model) Destroy() {
	if md.vertexBuffer != 0 {
		md.device.DestroyBuffer(md.vertexBuffer)
		md.vertexBuffer = 0
	}
	if md.indexBuffer != 0 {
		md.device.DestroyBuffer(md.indexBuffer)
		md.indexBuffer = 0
	}
}
