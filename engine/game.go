package engine

import (
	"github.com/spaghettifunk/vks/engine/renderer"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Initialize runs once the renderer is up. Games register pipelines,
// materials and scene objects here.
type Initialize func(r *renderer.Renderer) error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error

// Shutdown releases game-owned models and materials before the renderer goes
// away.
type Shutdown func() error
