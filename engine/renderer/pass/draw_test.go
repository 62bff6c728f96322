package pass

import (
	"testing"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
	"github.com/spaghettifunk/vks/engine/renderer/noop"
	"github.com/spaghettifunk/vks/engine/renderer/pipeline"
)

func drawFixture(t *testing.T, names ...string) (*pipeline.Manager, *noop.CommandBuffer) {
	t.Helper()
	dev := noop.New()
	dir := t.TempDir()
	m := pipeline.NewManager(dev)
	for _, name := range names {
		if err := m.CreateOrReplace(name, shaderDesc(t, dir, name)); err != nil {
			t.Fatalf("CreateOrReplace(%s) error = %v", name, err)
		}
	}
	cmds, err := dev.AllocateCommandBuffers(1)
	if err != nil {
		t.Fatal(err)
	}
	return m, cmds[0].(*noop.CommandBuffer)
}

func TestDrawObjects(t *testing.T) {
	model := &fakeModel{vertices: 1, count: 36}
	p1a := &fakeMaterial{pipeline: "P1", set: 10}
	p1b := &fakeMaterial{pipeline: "P1", set: 11}
	p2 := &fakeMaterial{pipeline: "P2", set: 20}

	tests := []struct {
		name      string
		objects   []metadata.Renderable
		cameraSet metadata.DescriptorSet
		want      DrawStats
		indexed   int
		plain     int
	}{
		{
			name:    "empty",
			objects: nil,
			want:    DrawStats{},
		},
		{
			name: "shared pipeline binds once",
			objects: []metadata.Renderable{
				{Model: model, Material: p1a},
				{Model: model, Material: p1b},
			},
			cameraSet: 5,
			want:      DrawStats{PipelineBinds: 1, CameraBinds: 2, MaterialBinds: 2, Draws: 2},
			indexed:   2,
		},
		{
			name: "unsorted order rebinds",
			objects: []metadata.Renderable{
				{Model: model, Material: p1a},
				{Model: model, Material: p2},
				{Model: model, Material: p1a},
			},
			cameraSet: 5,
			want:      DrawStats{PipelineBinds: 3, CameraBinds: 4, MaterialBinds: 3, Draws: 3},
			indexed:   3,
		},
		{
			name: "material set cached",
			objects: []metadata.Renderable{
				{Model: model, Material: p1a},
				{Model: model, Material: p1a},
				{Material: p1a},
			},
			want:    DrawStats{PipelineBinds: 1, MaterialBinds: 1, Draws: 3},
			indexed: 2,
			plain:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := drawFixture(t, "P1", "P2")
			got, err := DrawObjects(cmd, m, tt.objects, tt.cameraSet)
			if err != nil {
				t.Fatalf("DrawObjects() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DrawObjects() = %+v, want %+v", got, tt.want)
			}
			if n := cmd.Count("BindPipeline"); n != tt.want.PipelineBinds {
				t.Errorf("BindPipeline commands = %d, want %d", n, tt.want.PipelineBinds)
			}
			if n := cmd.Count("DrawIndexed"); n != tt.indexed {
				t.Errorf("DrawIndexed commands = %d, want %d", n, tt.indexed)
			}
			if n := cmd.Count("Draw"); n != tt.plain {
				t.Errorf("Draw commands = %d, want %d", n, tt.plain)
			}
		})
	}
}

func TestDrawObjectsBindOrder(t *testing.T) {
	m, cmd := drawFixture(t, "P1", "P2")
	p1, _ := m.GetPipeline("P1")
	p2, _ := m.GetPipeline("P2")
	objects := []metadata.Renderable{
		{Material: &fakeMaterial{pipeline: "P1", set: 1}},
		{Material: &fakeMaterial{pipeline: "P2", set: 2}},
		{Material: &fakeMaterial{pipeline: "P1", set: 1}},
	}
	if _, err := DrawObjects(cmd, m, objects, 9); err != nil {
		t.Fatalf("DrawObjects() error = %v", err)
	}

	var bound []metadata.Pipeline
	for _, c := range cmd.Commands {
		if c.Op == "BindPipeline" {
			bound = append(bound, c.Args[1].(metadata.Pipeline))
		}
	}
	want := []metadata.Pipeline{p1, p2, p1}
	if len(bound) != len(want) {
		t.Fatalf("bound pipelines = %v, want %v", bound, want)
	}
	for i := range want {
		if bound[i] != want[i] {
			t.Errorf("bind %d = %d, want %d", i, bound[i], want[i])
		}
	}

	// set 0 is bound before the first pipeline, using the first object's layout
	first := cmd.Commands[0]
	if first.Op != "BindDescriptorSets" || first.Args[2].(uint32) != 0 {
		t.Errorf("first command = %+v, want set 0 bind", first)
	}
	l1, _ := m.GetLayout("P1")
	if first.Args[1].(metadata.PipelineLayout) != l1 {
		t.Errorf("set 0 bound with layout %v, want %v", first.Args[1], l1)
	}
}

func TestDrawObjectsUnknownPipeline(t *testing.T) {
	m, cmd := drawFixture(t, "P1")
	objects := []metadata.Renderable{
		{Material: &fakeMaterial{pipeline: "P1"}},
		{Material: &fakeMaterial{pipeline: "missing"}},
	}
	if _, err := DrawObjects(cmd, m, objects, 0); err == nil {
		t.Error("DrawObjects() error = nil, want not found")
	}
}
