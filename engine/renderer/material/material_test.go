package material

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/noop"
)

type fakeModel struct {
	indices uint32
	binds   int
}

func (m *fakeModel) Bind(cmd metadata.CommandBuffer) { m.binds++ }
func (m *fakeModel) IndexCount() uint32 { return m.indices }

func newSetLayout(t *testing.T, dev *noop.Device) metadata.DescriptorSetLayout {
	t.Helper()
	l, err := dev.CreateDescriptorSetLayout(UniformBinding)
	if err != nil {
		t.Fatalf("CreateDescriptorSetLayout() error = %v", err)
	}
	return l
}

func newCmd(t *testing.T, dev *noop.Device) *noop.CommandBuffer {
	t.Helper()
	cmds, err := dev.AllocateCommandBuffers(1)
	if err != nil {
		t.Fatalf("AllocateCommandBuffers() error = %v", err)
	}
	return cmds[0].(*noop.CommandBuffer)
}

func floatAt(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func TestColorMaterialUploadsColor(t *testing.T) {
	dev := noop.New()
	layout := newSetLayout(t, dev)
	color := mgl32.Vec4{1, 0, 0, 1}

	m, err := NewColorMaterial(dev, layout, "sphere", color)
	if err != nil {
		t.Fatalf("NewColorMaterial() error = %v", err)
	}
	if m.Kind() != KindColor {
		t.Errorf("Kind() = %v, want %v", m.Kind(), KindColor)
	}
	if m.PipelineName() != "sphere" {
		t.Errorf("PipelineName() = %q, want %q", m.PipelineName(), "sphere")
	}
	if m.DescriptorSet() == 0 {
		t.Fatal("DescriptorSet() is null")
	}
	if got := dev.Count("WriteUniformBuffer"); got != 1 {
		t.Errorf("WriteUniformBuffer calls = %d, want 1", got)
	}

	data := dev.Contents(m.ubo)
	if len(data) != 16 {
		t.Fatalf("uniform size = %d, want 16", len(data))
	}
	for i := 0; i < 4; i++ {
		if got := floatAt(data, i*4); got != color[i] {
			t.Errorf("color[%d] = %v, want %v", i, got, color[i])
		}
	}

	m.Color = mgl32.Vec4{0, 0, 1, 1}
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := floatAt(dev.Contents(m.ubo), 8); got != 1 {
		t.Errorf("blue after Flush() = %v, want 1", got)
	}

	m.Destroy()
	m.Destroy()
	if got := dev.Live("buffer"); got != 0 {
		t.Errorf("live buffers after Destroy() = %d, want 0", got)
	}
	if got := len(dev.DoubleFrees()); got != 0 {
		t.Errorf("double frees = %d, want 0", got)
	}
}

func TestColorMaterialDraw(t *testing.T) {
	dev := noop.New()
	layout := newSetLayout(t, dev)
	m, err := NewColorMaterial(dev, layout, "sphere", mgl32.Vec4{1, 1, 1, 1})
	if err != nil {
		t.Fatalf("NewColorMaterial() error = %v", err)
	}
	cmd := newCmd(t, dev)
	model := &fakeModel{indices: 36}
	var last metadata.DescriptorSet
	transform := mgl32.Translate3D(1, 2, 3)

	for i := 0; i < 2; i++ {
		if err := m.Draw(cmd, 7, &last, model, transform); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
	}

	if last != m.DescriptorSet() {
		t.Errorf("last bound set = %d, want %d", last, m.DescriptorSet())
	}
	if got := cmd.Count("BindDescriptorSets"); got != 1 {
		t.Errorf("BindDescriptorSets = %d, want 1", got)
	}
	if got := cmd.Count("DrawIndexed"); got != 2 {
		t.Errorf("DrawIndexed = %d, want 2", got)
	}
	if model.binds != 2 {
		t.Errorf("model binds = %d, want 2", model.binds)
	}

	for _, c := range cmd.Commands {
		switch c.Op {
		case "BindDescriptorSets":
			if c.Args[2] != uint32(1) {
				t.Errorf("BindDescriptorSets firstSet = %v, want 1", c.Args[2])
			}
		case "PushConstants":
			data := c.Args[3].([]byte)
			if len(data) != 64 {
				t.Fatalf("push constant size = %d, want 64", len(data))
			}
			if got := floatAt(data, 12*4); got != 1 {
				t.Errorf("translation x = %v, want 1", got)
			}
		case "DrawIndexed":
			if c.Args[0] != uint32(36) {
				t.Errorf("DrawIndexed count = %v, want 36", c.Args[0])
			}
		}
	}
}

func TestColorMaterialDrawWithoutModel(t *testing.T) {
	dev := noop.New()
	m, err := NewColorMaterial(dev, newSetLayout(t, dev), "sphere", mgl32.Vec4{})
	if err != nil {
		t.Fatalf("NewColorMaterial() error = %v", err)
	}
	cmd := newCmd(t, dev)
	var last metadata.DescriptorSet
	if err := m.Draw(cmd, 7, &last, nil, mgl32.Ident4()); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if got := cmd.Count("DrawIndexed"); got != 0 {
		t.Errorf("DrawIndexed = %d, want 0", got)
	}
	if got := cmd.Count("PushConstants"); got != 0 {
		t.Errorf("PushConstants = %d, want 0", got)
	}
}

func TestNewMaterialFailure(t *testing.T) {
	tests := []struct {
		name string
		op   string
	}{
		{"buffer", "CreateBuffer"},
		{"descriptor set", "AllocateDescriptorSet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := noop.New()
			layout := newSetLayout(t, dev)
			dev.Failures[tt.op] = errors.New("out of memory")
			if _, err := NewColorMaterial(dev, layout, "sphere", mgl32.Vec4{}); err == nil {
				t.Fatal("NewColorMaterial() error = nil, want failure")
			}
			if got := dev.Live("buffer"); got != 0 {
				t.Errorf("live buffers = %d, want 0", got)
			}
		})
	}
}

func TestGridUBOLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, GridUBO{}); err != nil {
		t.Fatalf("binary.Write() error = %v", err)
	}
	if buf.Len() != 48 {
		t.Errorf("GridUBO size = %d, want 48", buf.Len())
	}
}

func TestGridMaterial(t *testing.T) {
	dev := noop.New()
	g, err := NewGridMaterial(dev, newSetLayout(t, dev), "grid", GridUBO{
		Color:     mgl32.Vec4{0.5, 0.5, 0.5, 1},
		Spacing:   1,
		Dimension: 10,
	})
	if err != nil {
		t.Fatalf("NewGridMaterial() error = %v", err)
	}
	if g.Kind() != KindGrid {
		t.Errorf("Kind() = %v, want %v", g.Kind(), KindGrid)
	}
	if g.Thickness != DefaultGridThickness {
		t.Errorf("Thickness = %v, want %v", g.Thickness, DefaultGridThickness)
	}
	if got, want := g.InstanceCount(), uint32(3*21*21); got != want {
		t.Errorf("InstanceCount() = %d, want %d", got, want)
	}

	for i := 0; i < 3; i++ {
		if err := g.Update(0.5); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	if g.UBO.Time != 1.5 {
		t.Errorf("Time = %v, want 1.5", g.UBO.Time)
	}
	if got := floatAt(dev.Contents(g.ubo), 40); got != 1.5 {
		t.Errorf("uploaded time = %v, want 1.5", got)
	}

	cmd := newCmd(t, dev)
	var last metadata.DescriptorSet
	if err := g.Draw(cmd, 9, &last, nil, mgl32.Ident4()); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	want := []string{"BindDescriptorSets", "SetLineWidth", "Draw"}
	if len(cmd.Commands) != len(want) {
		t.Fatalf("commands = %d, want %d", len(cmd.Commands), len(want))
	}
	for i, op := range want {
		if cmd.Commands[i].Op != op {
			t.Errorf("command[%d] = %s, want %s", i, cmd.Commands[i].Op, op)
		}
	}
	draw := cmd.Commands[2]
	if draw.Args[0] != uint32(DefaultGridSamplesPerLine) || draw.Args[1] != g.InstanceCount() {
		t.Errorf("Draw args = %v, want [%d %d ...]", draw.Args, DefaultGridSamplesPerLine, g.InstanceCount())
	}
}

func TestGridMaterialNegativeDimension(t *testing.T) {
	dev := noop.New()
	if _, err := NewGridMaterial(dev, newSetLayout(t, dev), "grid", GridUBO{Dimension: -1}); err == nil {
		t.Error("NewGridMaterial() error = nil, want error")
	}
	if got := dev.Live("buffer"); got != 0 {
		t.Errorf("Live(buffer) = %d, want 0", got)
	}

	g, err := NewGridMaterial(dev, newSetLayout(t, dev), "grid", GridUBO{Dimension: 1})
	if err != nil {
		t.Fatalf("NewGridMaterial() error = %v", err)
	}
	tests := []struct {
		dimension int32
		want      uint32
	}{
		{0, 3},
		{1, 27},
		{-5, 3},
	}
	for _, tt := range tests {
		g.UBO.Dimension = tt.dimension
		if got := g.InstanceCount(); got != tt.want {
			t.Errorf("InstanceCount() with dimension %d = %d, want %d", tt.dimension, got, tt.want)
		}
	}
}

func TestRegistryInspect(t *testing.T) {
	dev := noop.New()
	layout := newSetLayout(t, dev)
	color, _ := NewColorMaterial(dev, layout, "sphere", mgl32.Vec4{1, 0, 0, 1})
	grid, _ := NewGridMaterial(dev, layout, "grid", GridUBO{Dimension: 2})

	r := NewRegistry()
	if got := r.Kinds(); len(got) != 2 || got[0] != KindColor || got[1] != KindGrid {
		t.Errorf("Kinds() = %v, want [color grid]", got)
	}

	tests := []struct {
		name string
		m    metadata.Material
		want int
	}{
		{"color", color, 2},
		{"grid", grid, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := r.Inspect(tt.m)
			if err != nil {
				t.Fatalf("Inspect() error = %v", err)
			}
			if len(props) != tt.want {
				t.Errorf("Inspect() = %d properties, want %d", len(props), tt.want)
			}
			if props[0].Name != "pipeline" || props[0].Value != tt.m.PipelineName() {
				t.Errorf("Inspect()[0] = %v, want pipeline %s", props[0], tt.m.PipelineName())
			}
		})
	}

	empty := &Registry{inspectors: map[Kind]Inspector{}}
	if _, err := empty.Inspect(color); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Inspect() on empty registry error = %v, want ErrNotFound", err)
	}
}
