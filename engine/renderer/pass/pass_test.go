package pass

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/noop"
	"github.com/spaghettifunk/vks/engine/renderer/pipeline"
	"github.com/spaghettifunk/vks/engine/renderer/swapchain"
)

type fakeModel struct {
	vertices metadata.Buffer
	count    uint32
}

func (m *fakeModel) Bind(cmd metadata.CommandBuffer) {
	cmd.BindVertexBuffer(0, m.vertices, 0)
}

func (m *fakeModel) IndexCount() uint32 { return m.count }

type fakeMaterial struct {
	pipeline string
	set      metadata.DescriptorSet
}

func (m *fakeMaterial) Kind() metadata.MaterialKind { return 0 }
func (m *fakeMaterial) PipelineName() string { return m.pipeline }
func (m *fakeMaterial) DescriptorSet() metadata.DescriptorSet { return m.set }

func (m *fakeMaterial) Draw(cmd metadata.CommandBuffer, layout metadata.PipelineLayout, lastBound *metadata.DescriptorSet, model metadata.Model, transform mgl32.Mat4) error {
	if *lastBound != m.set {
		cmd.BindDescriptorSets(metadata.PipelineBindPointGraphics, layout, 1, m.set)
		*lastBound = m.set
	}
	if model != nil {
		model.Bind(cmd)
		cmd.DrawIndexed(model.IndexCount(), 1, 0, 0, 0)
		return nil
	}
	cmd.Draw(3, 1, 0, 0)
	return nil
}

type fakeScene struct {
	objects   []metadata.Renderable
	cameraSet metadata.DescriptorSet
	extent    metadata.Extent2D
}

func (s *fakeScene) Renderables() []metadata.Renderable { return s.objects }
func (s *fakeScene) CameraSet() metadata.DescriptorSet { return s.cameraSet }
func (s *fakeScene) SetExtent(extent metadata.Extent2D) { s.extent = extent }

type fakeReloader struct {
	changed []string
}

func (r *fakeReloader) Update() []string {
	out := r.changed
	r.changed = nil
	return out
}

func writeSPIRV(t *testing.T, dir, name string) string {
	t.Helper()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf, pipeline.SPIRVMagic)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
	return path
}

func shaderDesc(t *testing.T, dir, name string) pipeline.Desc {
	t.Helper()
	return pipeline.Desc{
		Kind: pipeline.KindGraphics,
		Graphics: pipeline.DefaultGraphicsDesc(
			writeSPIRV(t, dir, name+".vert.spv"),
			writeSPIRV(t, dir, name+".frag.spv"),
		),
	}
}

type fixture struct {
	dev   *noop.Device
	sc    *swapchain.Swapchain
	scene *fakeScene
	cmd   *noop.CommandBuffer
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev := noop.New()
	sc, err := swapchain.New(dev, noop.NewWindow(800, 600))
	if err != nil {
		t.Fatalf("swapchain.New() error = %v", err)
	}
	cmds, err := dev.AllocateCommandBuffers(1)
	if err != nil {
		t.Fatalf("AllocateCommandBuffers() error = %v", err)
	}
	return &fixture{
		dev:   dev,
		sc:    sc,
		scene: &fakeScene{cameraSet: 500},
		cmd:   cmds[0].(*noop.CommandBuffer),
		dir:   t.TempDir(),
	}
}

func (f *fixture) context() Context {
	return Context{Device: f.dev, Swapchain: f.sc, Scene: f.scene}
}

func (f *fixture) geometry(t *testing.T, pipelines ...string) *GeometryPass {
	t.Helper()
	g, err := NewGeometryPass(f.context())
	if err != nil {
		t.Fatalf("NewGeometryPass() error = %v", err)
	}
	for _, name := range pipelines {
		if err := g.Pipelines().CreateOrReplace(name, shaderDesc(t, f.dir, name)); err != nil {
			t.Fatalf("CreateOrReplace(%s) error = %v", name, err)
		}
	}
	return g
}

func TestGeometryPassLifecycle(t *testing.T) {
	f := newFixture(t)
	g := f.geometry(t, "sphere")

	if g.Type() != TypeGeometry {
		t.Errorf("Type() = %v, want geometry", g.Type())
	}
	if g.State() != StateActive {
		t.Errorf("State() = %v, want active", g.State())
	}
	if g.Handle() == 0 {
		t.Error("Handle() is null")
	}
	if got := g.Framebuffers(); got != f.sc.NumImages() {
		t.Errorf("Framebuffers() = %d, want %d", got, f.sc.NumImages())
	}

	first := g.Handle()
	if err := g.Recreate(); err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}
	if g.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", g.Generation())
	}
	if g.OldHandle() != first {
		t.Errorf("OldHandle() = %d, want %d", g.OldHandle(), first)
	}
	if !f.dev.IsLive("renderpass", metadata.Handle(first)) {
		t.Error("old render pass destroyed before CleanupOld()")
	}
	if got := f.dev.LastGraphicsPipeline.RenderPass; got != g.Handle() {
		t.Errorf("rebuilt pipeline targets render pass %d, want %d", got, g.Handle())
	}
	if got := f.dev.Live("framebuffer"); got != f.sc.NumImages() {
		t.Errorf("live framebuffers = %d, want %d", got, f.sc.NumImages())
	}

	g.CleanupOld()
	if f.dev.IsLive("renderpass", metadata.Handle(first)) {
		t.Error("old render pass live after CleanupOld()")
	}
	before := len(f.dev.Calls())
	g.CleanupOld()
	if after := len(f.dev.Calls()); after != before {
		t.Errorf("second CleanupOld() issued %d calls, want 0", after-before)
	}

	g.Destroy()
	g.Destroy()
	if g.State() != StateDestroyed {
		t.Errorf("State() = %v, want destroyed", g.State())
	}
	for _, kind := range []string{"renderpass", "framebuffer", "pipeline", "layout"} {
		if got := f.dev.Live(kind); got != 0 {
			t.Errorf("live %s after Destroy() = %d, want 0", kind, got)
		}
	}
	if df := f.dev.DoubleFrees(); len(df) != 0 {
		t.Errorf("double frees = %v", df)
	}
	if err := g.Record(f.cmd, 0); err == nil {
		t.Error("Record() after Destroy() error = nil")
	}
}

func TestGeometryPassRecreateFollowsSwapchain(t *testing.T) {
	f := newFixture(t)
	g := f.geometry(t)

	f.dev.Support.Capabilities.CurrentExtent = metadata.Extent2D{Width: 1280, Height: 720}
	f.dev.Support.Capabilities.MinImageCount = 3
	if err := f.sc.Recreate(); err != nil {
		t.Fatalf("swapchain Recreate() error = %v", err)
	}
	if err := g.Recreate(); err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}
	g.OnResize(f.sc.Extent())

	if got := g.Extent(); got != f.sc.Extent() {
		t.Errorf("Extent() = %+v, want %+v", got, f.sc.Extent())
	}
	if got := g.Framebuffers(); got != 4 {
		t.Errorf("Framebuffers() = %d, want 4", got)
	}
	if f.scene.extent != f.sc.Extent() {
		t.Errorf("scene extent = %+v, want %+v", f.scene.extent, f.sc.Extent())
	}
}

func TestGeometryPassRecord(t *testing.T) {
	f := newFixture(t)
	g := f.geometry(t, "sphere")
	f.scene.objects = []metadata.Renderable{
		{Model: &fakeModel{vertices: 1, count: 36}, Material: &fakeMaterial{pipeline: "sphere", set: 10}},
		{Model: &fakeModel{vertices: 2, count: 36}, Material: &fakeMaterial{pipeline: "sphere", set: 11}},
	}

	if err := g.Record(f.cmd, 1); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	want := []string{"BeginRenderPass", "SetViewport", "SetScissor"}
	for i, op := range want {
		if f.cmd.Commands[i].Op != op {
			t.Errorf("command %d = %s, want %s", i, f.cmd.Commands[i].Op, op)
		}
	}
	if last := f.cmd.Commands[len(f.cmd.Commands)-1].Op; last != "EndRenderPass" {
		t.Errorf("last command = %s, want EndRenderPass", last)
	}
	if got := f.cmd.Count("BindPipeline"); got != 1 {
		t.Errorf("BindPipeline = %d, want 1", got)
	}
	if got := f.cmd.Count("DrawIndexed"); got != 2 {
		t.Errorf("DrawIndexed = %d, want 2", got)
	}
	stats := g.LastStats()
	if stats.Draws != 2 || stats.MaterialBinds != 2 {
		t.Errorf("LastStats() = %+v, want 2 draws and 2 material binds", stats)
	}

	if err := g.Record(f.cmd, 7); err == nil {
		t.Error("Record() with out of range image error = nil")
	}
}

func TestGeometryPassHotReload(t *testing.T) {
	f := newFixture(t)
	reloader := &fakeReloader{}
	g, err := NewGeometryPass(f.context(), WithShaderReloader(reloader))
	if err != nil {
		t.Fatalf("NewGeometryPass() error = %v", err)
	}
	desc := shaderDesc(t, f.dir, "grid")
	if err := g.Pipelines().CreateOrReplace("grid", desc); err != nil {
		t.Fatal(err)
	}
	if err := g.Pipelines().CreateOrReplace("sphere", shaderDesc(t, f.dir, "sphere")); err != nil {
		t.Fatal(err)
	}
	gridBefore, _ := g.Pipelines().GetPipeline("grid")
	sphereBefore, _ := g.Pipelines().GetPipeline("sphere")

	if err := g.Update(0.016, 0); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := f.dev.Count("WaitIdle"); got != 0 {
		t.Errorf("WaitIdle without changes = %d, want 0", got)
	}

	reloader.changed = []string{desc.Graphics.FragmentShader}
	if err := g.Update(0.016, 0); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := f.dev.Count("WaitIdle"); got != 1 {
		t.Errorf("WaitIdle = %d, want 1", got)
	}
	gridAfter, _ := g.Pipelines().GetPipeline("grid")
	sphereAfter, _ := g.Pipelines().GetPipeline("sphere")
	if gridAfter == gridBefore {
		t.Error("grid pipeline not rebuilt")
	}
	if sphereAfter != sphereBefore {
		t.Error("sphere pipeline rebuilt without a change")
	}

	// a bad rebuild keeps the previous grid pipeline
	os.WriteFile(desc.Graphics.FragmentShader, []byte{0, 0, 0, 0}, 0o644)
	reloader.changed = []string{desc.Graphics.FragmentShader}
	if err := g.Update(0.016, 0); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if kept, err := g.Pipelines().GetPipeline("grid"); err != nil || kept != gridAfter {
		t.Errorf("grid after failed reload = %d, %v, want %d", kept, err, gridAfter)
	}
}

func TestPickerPass(t *testing.T) {
	f := newFixture(t)
	p, err := NewPickerPass(f.context(), PickerConfig{
		VertexShader:    writeSPIRV(t, f.dir, "picker.vert.spv"),
		FragmentShader:  writeSPIRV(t, f.dir, "picker.frag.spv"),
		CameraSetLayout: 3,
	})
	if err != nil {
		t.Fatalf("NewPickerPass() error = %v", err)
	}
	if p.Type() != TypePicker {
		t.Errorf("Type() = %v, want picker", p.Type())
	}
	if !p.Pipelines().Has(PickerPipeline) {
		t.Fatalf("picker pipeline %q not registered", PickerPipeline)
	}
	if !f.dev.LastGraphicsPipeline.IntegerTarget {
		t.Error("picker pipeline not built for an integer target")
	}
	if got := f.dev.Live("attachment"); got != 2*f.sc.NumImages() {
		t.Errorf("attachments = %d, want %d (depth + id per image)", got, 2*f.sc.NumImages())
	}
	if got := p.Target(0).Format; got != metadata.FormatR32Uint {
		t.Errorf("Target(0).Format = %v, want R32Uint", got)
	}

	f.scene.objects = []metadata.Renderable{
		{Model: &fakeModel{vertices: 1, count: 6}, Material: &fakeMaterial{pipeline: "sphere"}, Transform: mgl32.Ident4()},
		{Material: &fakeMaterial{pipeline: "grid"}},
		{Model: &fakeModel{vertices: 2, count: 6}, Material: &fakeMaterial{pipeline: "sphere"}, Transform: mgl32.Ident4()},
	}
	if err := p.Record(f.cmd, 0); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := f.cmd.Count("DrawIndexed"); got != 2 {
		t.Errorf("DrawIndexed = %d, want 2 (objects without a model are skipped)", got)
	}
	var ids []uint32
	for _, c := range f.cmd.Commands {
		if c.Op == "PushConstants" {
			data := c.Args[3].([]byte)
			if len(data) != 68 {
				t.Fatalf("push constant size = %d, want 68", len(data))
			}
			ids = append(ids, binary.LittleEndian.Uint32(data[64:]))
		}
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("picker ids = %v, want [1 3]", ids)
	}

	old := p.Target(0)
	if err := p.Recreate(); err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}
	if f.dev.IsLive("attachment", metadata.Handle(old.View)) {
		t.Error("old picker target still live after Recreate()")
	}
	if !p.Pipelines().Has(PickerPipeline) {
		t.Error("picker pipeline lost on Recreate()")
	}
	p.Destroy()
	if got := f.dev.Live("attachment"); got != f.sc.NumImages() {
		t.Errorf("attachments after Destroy() = %d, want %d", got, f.sc.NumImages())
	}
}
