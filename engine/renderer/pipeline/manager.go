package pipeline

import (
	"slices"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

type entry struct {
	desc     Desc
	pipeline metadata.Pipeline
	layout   metadata.PipelineLayout
}

/**
 * @brief Registry of named pipelines. Handles change on every
 * CreateOrReplace/Recreate, so callers look them up by name each frame.
 * Not safe for concurrent use; it belongs to the render thread.
 */
type Manager struct {
	device     metadata.PipelineDevice
	cache      metadata.PipelineCache
	renderPass func() metadata.RenderPass
	entries    map[string]*entry
}

type Option func(*Manager)

// WithPipelineCache builds every pipeline through cache.
func WithPipelineCache(cache metadata.PipelineCache) Option {
	return func(m *Manager) {
		m.cache = cache
	}
}

// WithRenderPass makes graphics pipelines target the pass returned by fn at
// build time.
func WithRenderPass(fn func() metadata.RenderPass) Option {
	return func(m *Manager) {
		m.renderPass = fn
	}
}

func NewManager(device metadata.PipelineDevice, opts ...Option) *Manager {
	m := &Manager{
		device:  device,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) currentRenderPass() metadata.RenderPass {
	if m.renderPass == nil {
		return 0
	}
	return m.renderPass()
}

// CreateOrReplace builds the pipeline described by desc under name. An
// existing entry is destroyed first; on failure the name is left unregistered.
func (m *Manager) CreateOrReplace(name string, desc Desc) error {
	if e, ok := m.entries[name]; ok {
		m.release(e)
		delete(m.entries, name)
	}
	pipeline, layout, err := m.build(desc)
	if err != nil {
		err = errors.Wrapf(err, "failed to build pipeline %q", name)
		core.LogError(err.Error())
		return err
	}
	m.entries[name] = &entry{desc: desc, pipeline: pipeline, layout: layout}
	core.LogDebug("pipeline %q (%s) created", name, desc.Kind)
	return nil
}

// Destroy releases the named pipeline and its layout.
func (m *Manager) Destroy(name string) error {
	e, ok := m.entries[name]
	if !ok {
		return notFound("pipeline", name)
	}
	m.release(e)
	delete(m.entries, name)
	return nil
}

// Recreate rebuilds the named pipeline from its stored Desc.
func (m *Manager) Recreate(name string) error {
	e, ok := m.entries[name]
	if !ok {
		return notFound("pipeline", name)
	}
	return m.CreateOrReplace(name, e.desc)
}

// Reload rebuilds the named pipeline before releasing the current one, so a
// failed build leaves the previous pipeline registered and bound.
func (m *Manager) Reload(name string) error {
	e, ok := m.entries[name]
	if !ok {
		return notFound("pipeline", name)
	}
	pipeline, layout, err := m.build(e.desc)
	if err != nil {
		err = errors.Wrapf(err, "failed to reload pipeline %q, keeping the previous one", name)
		core.LogError(err.Error())
		return err
	}
	m.release(e)
	m.entries[name] = &entry{desc: e.desc, pipeline: pipeline, layout: layout}
	core.LogDebug("pipeline %q reloaded", name)
	return nil
}

// RecreateAll rebuilds every pipeline. The set of names and descriptors is
// captured before anything is destroyed. A failing pipeline does not stop
// the others from being rebuilt; all failures are returned together.
func (m *Manager) RecreateAll() error {
	snapshot := make(map[string]Desc, len(m.entries))
	for name, e := range m.entries {
		snapshot[name] = e.desc
	}
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		if err := m.CreateOrReplace(name, snapshot[name]); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

func (m *Manager) GetPipeline(name string) (metadata.Pipeline, error) {
	e, ok := m.entries[name]
	if !ok {
		return 0, notFound("pipeline", name)
	}
	return e.pipeline, nil
}

func (m *Manager) GetLayout(name string) (metadata.PipelineLayout, error) {
	e, ok := m.entries[name]
	if !ok {
		return 0, notFound("pipeline layout", name)
	}
	return e.layout, nil
}

// Desc returns the descriptor the named pipeline was built from.
func (m *Manager) Desc(name string) (Desc, bool) {
	e, ok := m.entries[name]
	if !ok {
		return Desc{}, false
	}
	return e.desc, true
}

func (m *Manager) Has(name string) bool {
	_, ok := m.entries[name]
	return ok
}

// Names returns the registered names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamesUsing returns the pipelines built from the given SPIR-V file.
func (m *Manager) NamesUsing(shaderPath string) []string {
	var names []string
	for _, name := range m.Names() {
		if slices.Contains(m.entries[name].desc.ShaderPaths(), shaderPath) {
			names = append(names, name)
		}
	}
	return names
}

func (m *Manager) Len() int {
	return len(m.entries)
}

// DestroyAll releases every pipeline.
func (m *Manager) DestroyAll() {
	for name, e := range m.entries {
		m.release(e)
		delete(m.entries, name)
	}
}

func (m *Manager) release(e *entry) {
	if e.pipeline != 0 {
		m.device.DestroyPipeline(e.pipeline)
		e.pipeline = 0
	}
	if e.layout != 0 {
		m.device.DestroyPipelineLayout(e.layout)
		e.layout = 0
	}
}

func notFound(what, name string) error {
	err := errors.Wrapf(core.ErrNotFound, "%s %q", what, name)
	core.LogError(err.Error())
	return err
}
