package renderer

import (
	"path/filepath"
	"time"

	"github.com/spaghettifunk/vks/engine/renderer/graph"
	"github.com/spaghettifunk/vks/engine/shaders"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	}
	return "unknown"
}

// Config is everything the renderer needs to build its backend, graph and
// passes.
type Config struct {
	Type            RendererType
	ApplicationName string
	Validation      bool

	FramesInFlight int
	// FenceTimeout of zero waits forever.
	FenceTimeout time.Duration

	// ShaderDir holds GLSL sources, ShaderOutDir the compiled SPIR-V.
	ShaderDir    string
	ShaderOutDir string
	HotReload    bool
	Debounce     time.Duration

	MaxDescriptorSets uint32
}

func DefaultConfig() Config {
	return Config{
		Type:              Vulkan,
		ApplicationName:   "vks",
		FramesInFlight:    graph.DefaultFramesInFlight,
		ShaderDir:         "assets/shaders",
		ShaderOutDir:      "assets/shaders/bin",
		HotReload:         true,
		Debounce:          shaders.DefaultDebounce,
		MaxDescriptorSets: 256,
	}
}

// ShaderPath returns the compiled SPIR-V path of a source file name such as
// "grid.vert".
func (c Config) ShaderPath(source string) string {
	return filepath.Join(c.ShaderOutDir, source+".spv")
}
