package pipeline

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/noop"
)

// writeSPIRV writes a minimal file that passes LoadShader's checks.
func writeSPIRV(t *testing.T, dir, name string) string {
	t.Helper()
	words := []uint32{SPIRVMagic, 0x00010000, 0, 1, 0}
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
	return path
}

func graphicsDesc(t *testing.T, dir, name string) Desc {
	t.Helper()
	g := DefaultGraphicsDesc(
		writeSPIRV(t, dir, name+".vert.spv"),
		writeSPIRV(t, dir, name+".frag.spv"),
	)
	return Desc{
		Kind:          KindGraphics,
		SetLayouts:    []metadata.DescriptorSetLayout{7, 8},
		PushConstants: []metadata.PushConstantRange{{Stages: metadata.ShaderStageVertex, Size: 64}},
		Graphics:      g,
	}
}

func TestLoadShader(t *testing.T) {
	dir := t.TempDir()
	good := writeSPIRV(t, dir, "good.spv")

	badMagic := filepath.Join(dir, "magic.spv")
	os.WriteFile(badMagic, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 0o644)
	badSize := filepath.Join(dir, "size.spv")
	os.WriteFile(badSize, []byte{0x03, 0x02, 0x23, 0x07, 0}, 0o644)
	empty := filepath.Join(dir, "empty.spv")
	os.WriteFile(empty, nil, 0o644)

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid", good, nil},
		{"missing", filepath.Join(dir, "nope.spv"), core.ErrShaderMissing},
		{"bad magic", badMagic, core.ErrShaderInvalid},
		{"bad size", badSize, core.ErrShaderInvalid},
		{"empty", empty, core.ErrShaderInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := LoadShader(tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("LoadShader() error = %v", err)
				}
				if code[0] != SPIRVMagic {
					t.Errorf("LoadShader()[0] = 0x%08x, want magic", code[0])
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadShader() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateOrReplaceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dev := noop.New()
	m := NewManager(dev, WithRenderPass(func() metadata.RenderPass { return 99 }))

	desc := graphicsDesc(t, dir, "sphere")
	if err := m.CreateOrReplace("sphere", desc); err != nil {
		t.Fatalf("CreateOrReplace() error = %v", err)
	}
	p, err := m.GetPipeline("sphere")
	if err != nil || p == 0 {
		t.Errorf("GetPipeline() = %d, %v, want non-null", p, err)
	}
	l, err := m.GetLayout("sphere")
	if err != nil || l == 0 {
		t.Errorf("GetLayout() = %d, %v, want non-null", l, err)
	}
	if got := dev.Count("CreateGraphicsPipeline"); got != 1 {
		t.Errorf("CreateGraphicsPipeline calls = %d, want 1", got)
	}
	if got := dev.LastGraphicsPipeline.RenderPass; got != 99 {
		t.Errorf("pipeline render pass = %d, want 99", got)
	}
	if got := dev.Live("shader"); got != 0 {
		t.Errorf("live shader modules = %d, want 0", got)
	}
}

func TestCreateOrReplaceDestroysOld(t *testing.T) {
	dir := t.TempDir()
	dev := noop.New()
	m := NewManager(dev)
	desc := graphicsDesc(t, dir, "sphere")

	if err := m.CreateOrReplace("sphere", desc); err != nil {
		t.Fatalf("CreateOrReplace() error = %v", err)
	}
	first, _ := m.GetPipeline("sphere")
	if err := m.CreateOrReplace("sphere", desc); err != nil {
		t.Fatalf("CreateOrReplace() again error = %v", err)
	}
	second, _ := m.GetPipeline("sphere")
	if first == second {
		t.Error("CreateOrReplace() kept the old handle")
	}
	if dev.IsLive("pipeline", metadata.Handle(first)) {
		t.Error("old pipeline still live")
	}
	if got := dev.Live("pipeline"); got != 1 {
		t.Errorf("live pipelines = %d, want 1", got)
	}
	if got := dev.Live("layout"); got != 1 {
		t.Errorf("live layouts = %d, want 1", got)
	}
}

func TestCreateOrReplaceMissingShader(t *testing.T) {
	dev := noop.New()
	m := NewManager(dev)
	desc := Desc{Kind: KindGraphics, Graphics: DefaultGraphicsDesc("missing.vert.spv", "missing.frag.spv")}

	err := m.CreateOrReplace("broken", desc)
	if !errors.Is(err, core.ErrShaderMissing) {
		t.Fatalf("CreateOrReplace() error = %v, want ErrShaderMissing", err)
	}
	if m.Has("broken") {
		t.Error("failed pipeline is registered")
	}
	if got := dev.Live("layout") + dev.Live("pipeline") + dev.Live("shader"); got != 0 {
		t.Errorf("objects leaked by failed build = %d", got)
	}
}

func TestCreateOrReplaceDeviceFailure(t *testing.T) {
	dir := t.TempDir()
	dev := noop.New()
	dev.Failures["CreateGraphicsPipeline"] = errors.New("rejected")
	m := NewManager(dev)

	if err := m.CreateOrReplace("sphere", graphicsDesc(t, dir, "sphere")); err == nil {
		t.Fatal("CreateOrReplace() error = nil, want error")
	}
	if _, err := m.GetPipeline("sphere"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetPipeline() error = %v, want ErrNotFound", err)
	}
	if got := dev.Live("layout") + dev.Live("shader"); got != 0 {
		t.Errorf("objects leaked by failed build = %d", got)
	}
}

func TestNotFound(t *testing.T) {
	m := NewManager(noop.New())
	if _, err := m.GetPipeline("nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetPipeline() error = %v, want ErrNotFound", err)
	}
	if _, err := m.GetLayout("nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetLayout() error = %v, want ErrNotFound", err)
	}
	if err := m.Destroy("nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Destroy() error = %v, want ErrNotFound", err)
	}
	if err := m.Recreate("nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Recreate() error = %v, want ErrNotFound", err)
	}
}

func TestDestroy(t *testing.T) {
	dir := t.TempDir()
	dev := noop.New()
	m := NewManager(dev)
	if err := m.CreateOrReplace("sphere", graphicsDesc(t, dir, "sphere")); err != nil {
		t.Fatalf("CreateOrReplace() error = %v", err)
	}
	if err := m.Destroy("sphere"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if m.Has("sphere") {
		t.Error("Has() = true after Destroy()")
	}
	if got := dev.Live("pipeline") + dev.Live("layout"); got != 0 {
		t.Errorf("live objects = %d, want 0", got)
	}
	if err := m.Destroy("sphere"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Destroy() error = %v, want ErrNotFound", err)
	}
}

func TestRecreateAllKeepsDescriptors(t *testing.T) {
	dir := t.TempDir()
	dev := noop.New()
	renderPass := metadata.RenderPass(10)
	m := NewManager(dev, WithRenderPass(func() metadata.RenderPass { return renderPass }))

	descA := graphicsDesc(t, dir, "grid")
	descA.Graphics.VertexInput = false
	descA.Graphics.Topology = metadata.PrimitiveTopologyLineStrip
	descB := graphicsDesc(t, dir, "sphere")

	for name, d := range map[string]Desc{"grid": descA, "sphere": descB} {
		if err := m.CreateOrReplace(name, d); err != nil {
			t.Fatalf("CreateOrReplace(%s) error = %v", name, err)
		}
	}
	before := map[string]metadata.Pipeline{}
	for _, name := range m.Names() {
		before[name], _ = m.GetPipeline(name)
	}

	renderPass = 11
	dev.ResetCalls()
	if err := m.RecreateAll(); err != nil {
		t.Fatalf("RecreateAll() error = %v", err)
	}

	for name, want := range map[string]Desc{"grid": descA, "sphere": descB} {
		p, err := m.GetPipeline(name)
		if err != nil || p == 0 {
			t.Errorf("GetPipeline(%s) = %d, %v, want non-null", name, p, err)
		}
		if p == before[name] {
			t.Errorf("GetPipeline(%s) returned the pre-recreate handle", name)
		}
		got, ok := m.Desc(name)
		if !ok || !reflect.DeepEqual(got, want) {
			t.Errorf("Desc(%s) = %+v, want %+v", name, got, want)
		}
	}
	if got := dev.Count("CreateGraphicsPipeline"); got != 2 {
		t.Errorf("CreateGraphicsPipeline calls = %d, want 2", got)
	}
	if got := dev.LastGraphicsPipeline.RenderPass; got != 11 {
		t.Errorf("rebuilt pipeline render pass = %d, want 11", got)
	}
	if got := dev.Live("pipeline"); got != 2 {
		t.Errorf("live pipelines = %d, want 2", got)
	}
}

func TestRecreateAllContinuesPastFailure(t *testing.T) {
	dir := t.TempDir()
	dev := noop.New()
	m := NewManager(dev)
	if err := m.CreateOrReplace("a", graphicsDesc(t, dir, "a")); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateOrReplace("b", graphicsDesc(t, dir, "b")); err != nil {
		t.Fatal(err)
	}
	os.Remove(filepath.Join(dir, "a.vert.spv"))

	if err := m.RecreateAll(); !errors.Is(err, core.ErrShaderMissing) {
		t.Errorf("RecreateAll() error = %v, want ErrShaderMissing", err)
	}
	if m.Has("a") {
		t.Error("pipeline a registered after failed rebuild")
	}
	if !m.Has("b") {
		t.Error("pipeline b missing after RecreateAll()")
	}
}

func TestComputeAndCustom(t *testing.T) {
	dir := t.TempDir()
	dev := noop.New()
	m := NewManager(dev)

	compute := Desc{Kind: KindCompute, Compute: &ComputeDesc{Shader: writeSPIRV(t, dir, "cull.comp.spv")}}
	if err := m.CreateOrReplace("cull", compute); err != nil {
		t.Fatalf("CreateOrReplace(compute) error = %v", err)
	}
	if got := dev.Count("CreateComputePipeline"); got != 1 {
		t.Errorf("CreateComputePipeline calls = %d, want 1", got)
	}

	var gotLayout metadata.PipelineLayout
	custom := Desc{
		Kind: KindCustom,
		Custom: func(d metadata.PipelineDevice, layout metadata.PipelineLayout, rp metadata.RenderPass) (metadata.Pipeline, error) {
			gotLayout = layout
			return d.CreateComputePipeline(0, metadata.ComputePipelineCreateInfo{Layout: layout})
		},
	}
	if err := m.CreateOrReplace("custom", custom); err != nil {
		t.Fatalf("CreateOrReplace(custom) error = %v", err)
	}
	if l, _ := m.GetLayout("custom"); l != gotLayout || l == 0 {
		t.Errorf("GetLayout(custom) = %d, builder saw %d", l, gotLayout)
	}

	if err := m.CreateOrReplace("empty", Desc{Kind: KindCustom}); err == nil {
		t.Error("CreateOrReplace(custom without builder) error = nil")
	}
}

func TestNamesUsing(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(noop.New())
	a := graphicsDesc(t, dir, "a")
	b := graphicsDesc(t, dir, "b")
	b.Graphics.FragmentShader = a.Graphics.FragmentShader
	m.CreateOrReplace("a", a)
	m.CreateOrReplace("b", b)

	if got := m.NamesUsing(a.Graphics.FragmentShader); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("NamesUsing(shared) = %v, want [a b]", got)
	}
	if got := m.NamesUsing(b.Graphics.VertexShader); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("NamesUsing(b.vert) = %v, want [b]", got)
	}
}

func TestDestroyAll(t *testing.T) {
	dir := t.TempDir()
	dev := noop.New()
	m := NewManager(dev)
	m.CreateOrReplace("a", graphicsDesc(t, dir, "a"))
	m.CreateOrReplace("b", graphicsDesc(t, dir, "b"))
	m.DestroyAll()
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	if got := dev.Live("pipeline") + dev.Live("layout"); got != 0 {
		t.Errorf("live objects = %d, want 0", got)
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	dev := noop.New()
	m := NewManager(dev)
	desc := graphicsDesc(t, dir, "sphere")
	if err := m.CreateOrReplace("sphere", desc); err != nil {
		t.Fatalf("CreateOrReplace() error = %v", err)
	}
	first, _ := m.GetPipeline("sphere")

	if err := m.Reload("sphere"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	second, _ := m.GetPipeline("sphere")
	if second == first || dev.IsLive("pipeline", metadata.Handle(first)) {
		t.Errorf("Reload() = %d, old %d live %v, want a new handle and the old one released", second, first, dev.IsLive("pipeline", metadata.Handle(first)))
	}

	// a broken shader keeps the working pipeline
	os.WriteFile(desc.Graphics.FragmentShader, []byte{1, 2, 3, 4}, 0o644)
	if err := m.Reload("sphere"); !errors.Is(err, core.ErrShaderInvalid) {
		t.Errorf("Reload() with bad shader error = %v, want ErrShaderInvalid", err)
	}
	kept, err := m.GetPipeline("sphere")
	if err != nil || kept != second {
		t.Errorf("GetPipeline() after failed Reload() = %d, %v, want %d", kept, err, second)
	}
	if got := dev.Live("pipeline"); got != 1 {
		t.Errorf("live pipelines = %d, want 1", got)
	}
	if got := dev.Live("layout"); got != 1 {
		t.Errorf("live layouts = %d, want 1", got)
	}

	if err := m.Reload("missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Reload(missing) error = %v, want ErrNotFound", err)
	}
}
