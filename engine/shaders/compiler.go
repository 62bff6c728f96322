package shaders

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/vks/engine/core"
)

const DefaultDebounce = 200 * time.Millisecond

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var b bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &b
	cmd.Stderr = &b
	err := cmd.Run()
	return b.Bytes(), err
}

// Build describes one successful compilation.
type Build struct {
	ID       uuid.UUID
	Source   string
	Output   string
	Duration time.Duration
}

/**
 * @brief Compiles GLSL sources to SPIR-V with glslc. Requests may come from
 * any goroutine; Update runs the queue on the render thread, at most one
 * compile per debounce interval.
 */
type Compiler struct {
	mu      sync.Mutex
	queue   []string
	pending map[string]struct{}

	outDir      string
	glslc       string
	debounce    time.Duration
	lastCompile time.Time
	now         func() time.Time
	run         Runner
	onCompiled  func(Build)
}

type CompilerOption func(*Compiler)

func WithDebounce(d time.Duration) CompilerOption {
	return func(c *Compiler) {
		c.debounce = d
	}
}

func WithRunner(r Runner) CompilerOption {
	return func(c *Compiler) {
		c.run = r
	}
}

func WithGlslc(path string) CompilerOption {
	return func(c *Compiler) {
		c.glslc = path
	}
}

func WithClock(now func() time.Time) CompilerOption {
	return func(c *Compiler) {
		c.now = now
	}
}

// OnCompiled is called after every successful compile, from the goroutine
// that ran it.
func OnCompiled(fn func(Build)) CompilerOption {
	return func(c *Compiler) {
		c.onCompiled = fn
	}
}

// NewCompiler writes SPIR-V files to outDir.
func NewCompiler(outDir string, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		pending:  make(map[string]struct{}),
		outDir:   outDir,
		glslc:    "glslc",
		debounce: DefaultDebounce,
		now:      time.Now,
		run:      ExecRunner,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastCompile = c.now()
	return c
}

// OutputPath maps a source such as shaders/grid.frag to <outDir>/grid.frag.spv.
func (c *Compiler) OutputPath(source string) string {
	return filepath.Join(c.outDir, filepath.Base(source)+".spv")
}

// RequestCompile queues source unless it is already waiting.
func (c *Compiler) RequestCompile(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[source]; ok {
		return false
	}
	c.pending[source] = struct{}{}
	c.queue = append(c.queue, source)
	return true
}

// Pending returns the number of queued sources.
func (c *Compiler) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Update compiles the oldest queued source once the debounce interval has
// passed since the previous compile. It returns the SPIR-V paths that were
// rebuilt, which is empty when nothing ran or the compile failed.
func (c *Compiler) Update() []string {
	now := c.now()
	if now.Sub(c.lastCompile) < c.debounce {
		return nil
	}

	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return nil
	}
	source := c.queue[0]
	c.queue = c.queue[1:]
	delete(c.pending, source)
	c.mu.Unlock()

	c.lastCompile = now
	build, err := c.Compile(context.Background(), source)
	if err != nil {
		return nil
	}
	return []string{build.Output}
}

// Compile runs glslc on source synchronously.
func (c *Compiler) Compile(ctx context.Context, source string) (Build, error) {
	start := time.Now()
	out := c.OutputPath(source)
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return Build{}, errors.Wrapf(err, "failed to create %s", c.outDir)
	}
	output, err := c.run(ctx, c.glslc, "-std=450", "-g", source, "-o", out)
	if err != nil {
		err = errors.Wrapf(err, "glslc failed on %s: %s", source, strings.TrimSpace(string(output)))
		core.LogError(err.Error())
		return Build{}, err
	}
	b := Build{ID: uuid.New(), Source: source, Output: out, Duration: time.Since(start)}
	core.LogInfo("shader build %s: %s -> %s", b.ID, source, out)
	if c.onCompiled != nil {
		c.onCompiled(b)
	}
	return b, nil
}

// CompileAll compiles every shader source in dir concurrently. The first
// failure cancels the remaining compiles.
func (c *Compiler) CompileAll(ctx context.Context, dir string) ([]Build, error) {
	sources, err := Sources(dir)
	if err != nil {
		return nil, err
	}
	builds := make([]Build, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			b, err := c.Compile(ctx, src)
			if err != nil {
				return err
			}
			builds[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return builds, nil
}

// Sources lists the shader sources directly inside dir, sorted.
func Sources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read shader directory %s", dir)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSource(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
