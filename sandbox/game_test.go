package sandbox

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/spaghettifunk/vks/engine"
	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer"
	"github.com/spaghettifunk/vks/engine/renderer/noop"
	"github.com/spaghettifunk/vks/engine/renderer/pipeline"
)

func newRenderer(t *testing.T, device *noop.Device) *renderer.Renderer {
	t.Helper()
	config := renderer.DefaultConfig()
	config.HotReload = false
	config.ShaderOutDir = t.TempDir()

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf, pipeline.SPIRVMagic)
	for _, src := range []string{
		renderer.PickerVertexShader, renderer.PickerFragmentShader,
		"sphere.vert", "sphere.frag", "grid.vert", "grid.frag",
	} {
		if err := os.WriteFile(config.ShaderPath(src), buf, 0o644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", src, err)
		}
	}
	r, err := renderer.NewWithDevice(device, noop.NewWindow(800, 600), config)
	if err != nil {
		t.Fatalf("NewWithDevice() error = %v", err)
	}
	return r
}

func TestSandboxInitialize(t *testing.T) {
	device := noop.New()
	r := newRenderer(t, device)
	defer r.Shutdown()

	s := NewSandbox(engine.DefaultApplicationConfig())
	if err := s.Initialize(r); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer s.Shutdown()

	for _, name := range []string{SpherePipeline, GridPipeline} {
		if !r.Pipelines().Has(name) {
			t.Errorf("Pipelines().Has(%q) = false, want true", name)
		}
	}
	objects := r.Scene().Objects()
	wantNames := []string{"grid", "red sphere", "blue sphere"}
	if len(objects) != len(wantNames) {
		t.Fatalf("len(Objects()) = %d, want %d", len(objects), len(wantNames))
	}
	for i, want := range wantNames {
		if objects[i].Name != want {
			t.Errorf("Objects()[%d].Name = %q, want %q", i, objects[i].Name, want)
		}
	}
	if objects[0].Model != nil {
		t.Error("grid object has a model, want nil")
	}
}

func TestSandboxFrame(t *testing.T) {
	device := noop.New()
	r := newRenderer(t, device)
	defer r.Shutdown()

	s := NewSandbox(engine.DefaultApplicationConfig())
	if err := s.Initialize(r); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer s.Shutdown()

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := r.DrawFrame(0.016); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}

	m := core.MetricsSnapshot()
	if m.DrawCalls != 3 {
		t.Errorf("DrawCalls = %d, want 3", m.DrawCalls)
	}
	// grid, then both spheres share one pipeline
	if m.PipelineBinds != 2 {
		t.Errorf("PipelineBinds = %d, want 2", m.PipelineBinds)
	}
}

func TestSandboxUpdateKeepsSpherePositions(t *testing.T) {
	device := noop.New()
	r := newRenderer(t, device)
	defer r.Shutdown()

	s := NewSandbox(engine.DefaultApplicationConfig())
	if err := s.Initialize(r); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer s.Shutdown()

	before := make([][3]float32, 0, 2)
	for _, obj := range s.state().spheres {
		c := obj.Transform.Col(3)
		before = append(before, [3]float32{c.X(), c.Y(), c.Z()})
	}
	for i := 0; i < 10; i++ {
		if err := s.Update(0.1); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	for i, obj := range s.state().spheres {
		c := obj.Transform.Col(3)
		got := [3]float32{c.X(), c.Y(), c.Z()}
		if got != before[i] {
			t.Errorf("sphere %d position = %v, want %v", i, got, before[i])
		}
	}
}

func TestSandboxUpdateBeforeInitialize(t *testing.T) {
	s := NewSandbox(engine.DefaultApplicationConfig())
	if err := s.Update(0.016); err == nil {
		t.Error("Update() error = nil, want error")
	}
}

func TestSandboxShutdownReleasesResources(t *testing.T) {
	device := noop.New()
	r := newRenderer(t, device)

	s := NewSandbox(engine.DefaultApplicationConfig())
	if err := s.Initialize(r); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatalf("renderer Shutdown() error = %v", err)
	}
	if got := device.Live("buffer"); got != 0 {
		t.Errorf("Live(buffer) = %d, want 0", got)
	}
}
