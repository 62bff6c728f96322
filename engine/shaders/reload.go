package shaders

import (
	"context"

	"github.com/cockroachdb/errors"
)

// HotReloader feeds watcher events into a compiler. Its Update is driven by
// the geometry pass once per frame.
type HotReloader struct {
	Compiler *Compiler
	watcher  *Watcher
}

// NewHotReloader compiles every source in srcDir, then watches it.
func NewHotReloader(ctx context.Context, srcDir string, compiler *Compiler) (*HotReloader, error) {
	if _, err := compiler.CompileAll(ctx, srcDir); err != nil {
		return nil, errors.Wrap(err, "initial shader compile failed")
	}
	w, err := NewWatcher(srcDir, func(path string) {
		compiler.RequestCompile(path)
	})
	if err != nil {
		return nil, err
	}
	return &HotReloader{Compiler: compiler, watcher: w}, nil
}

func (h *HotReloader) Update() []string {
	return h.Compiler.Update()
}

func (h *HotReloader) Close() error {
	return h.watcher.Close()
}
