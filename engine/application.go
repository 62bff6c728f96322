package engine

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/renderer"
)

type RendererConfig struct {
	FramesInFlight int `toml:"frames_in_flight"`
	// FenceTimeoutMs of zero waits forever.
	FenceTimeoutMs    int64  `toml:"fence_timeout_ms"`
	ShaderDir         string `toml:"shader_dir"`
	ShaderOutDir      string `toml:"shader_out_dir"`
	HotReload         bool   `toml:"hot_reload"`
	DebounceMs        int64  `toml:"debounce_ms"`
	Validation        bool   `toml:"validation"`
	MaxDescriptorSets uint32 `toml:"max_descriptor_sets"`
}

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
	// LogFile, when set, mirrors the log into a rotating file.
	LogFile  string         `toml:"log_file"`
	Renderer RendererConfig `toml:"renderer"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	rc := renderer.DefaultConfig()
	return &ApplicationConfig{
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  1280,
		StartHeight: 720,
		Name:        "vks",
		LogLevel:    "debug",
		LogFile:     "vks.log",
		Renderer: RendererConfig{
			FramesInFlight:    rc.FramesInFlight,
			ShaderDir:         rc.ShaderDir,
			ShaderOutDir:      rc.ShaderOutDir,
			HotReload:         rc.HotReload,
			DebounceMs:        rc.Debounce.Milliseconds(),
			MaxDescriptorSets: rc.MaxDescriptorSets,
		},
	}
}

// LoadApplicationConfig overlays the TOML file at path on the defaults. A
// missing file yields the defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogInfo("no config at %s, using defaults", path)
			return config, nil
		}
		err = errors.Wrapf(err, "failed to read config %s", path)
		core.LogError(err.Error())
		return nil, err
	}
	if err := toml.Unmarshal(data, config); err != nil {
		err = errors.Wrapf(err, "failed to parse config %s", path)
		core.LogError(err.Error())
		return nil, err
	}
	return config, nil
}

// RendererConfig converts the file representation into the renderer's.
func (c *ApplicationConfig) RendererConfig() renderer.Config {
	rc := renderer.DefaultConfig()
	rc.ApplicationName = c.Name
	rc.Validation = c.Renderer.Validation
	rc.FramesInFlight = c.Renderer.FramesInFlight
	rc.FenceTimeout = time.Duration(c.Renderer.FenceTimeoutMs) * time.Millisecond
	rc.ShaderDir = c.Renderer.ShaderDir
	rc.ShaderOutDir = c.Renderer.ShaderOutDir
	rc.HotReload = c.Renderer.HotReload
	rc.Debounce = time.Duration(c.Renderer.DebounceMs) * time.Millisecond
	if c.Renderer.MaxDescriptorSets > 0 {
		rc.MaxDescriptorSets = c.Renderer.MaxDescriptorSets
	}
	return rc
}
