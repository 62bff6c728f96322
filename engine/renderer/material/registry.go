package material

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// Property is one named, displayable material parameter.
type Property struct {
	Name  string
	Value any
}

// Inspector lists the parameters of a material of a known kind.
type Inspector func(m metadata.Material) ([]Property, error)

// Registry maps material kinds to inspectors so callers never need to
// type-switch on concrete material types.
type Registry struct {
	mu         sync.RWMutex
	inspectors map[Kind]Inspector
}

// NewRegistry returns a registry with the built-in kinds registered.
func NewRegistry() *Registry {
	r := &Registry{inspectors: make(map[Kind]Inspector)}
	r.Register(KindColor, inspectColor)
	r.Register(KindGrid, inspectGrid)
	return r
}

func (r *Registry) Register(kind Kind, fn Inspector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inspectors[kind] = fn
}

// Kinds returns the registered kinds in ascending order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.inspectors))
	for k := range r.inspectors {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Inspect(m metadata.Material) ([]Property, error) {
	r.mu.RLock()
	fn, ok := r.inspectors[m.Kind()]
	r.mu.RUnlock()
	if !ok {
		err := errors.Mark(errors.Newf("no inspector for material kind %s", KindName(m.Kind())), core.ErrNotFound)
		core.LogWarn(err.Error())
		return nil, err
	}
	return fn(m)
}

func inspectColor(m metadata.Material) ([]Property, error) {
	c, ok := m.(*ColorMaterial)
	if !ok {
		return nil, errors.Newf("material of kind color is %T", m)
	}
	return []Property{
		{Name: "pipeline", Value: c.PipelineName()},
		{Name: "color", Value: c.Color},
	}, nil
}

func inspectGrid(m metadata.Material) ([]Property, error) {
	g, ok := m.(*GridMaterial)
	if !ok {
		return nil, errors.Newf("material of kind grid is %T", m)
	}
	return []Property{
		{Name: "pipeline", Value: g.PipelineName()},
		{Name: "color", Value: g.UBO.Color},
		{Name: "spacing", Value: g.UBO.Spacing},
		{Name: "dimension", Value: g.UBO.Dimension},
		{Name: "thickness", Value: g.Thickness},
		{Name: "samplesPerLine", Value: g.SamplesPerLine},
	}, nil
}
