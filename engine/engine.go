package engine

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/engine/platform"
	"github.com/spaghettifunk/vks/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every system
	EngineStageShutdown
)

// metricsLogInterval is how often, in seconds, the frame metrics are logged.
const metricsLogInterval = 5.0

type Engine struct {
	currentStage Stage
	gameInstance *Game
	running      atomic.Bool
	isSuspended  bool
	platform     *platform.Platform
	renderer     *renderer.Renderer
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64
	shutdownOnce sync.Once
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		err := errors.New("game and application config are required")
		core.LogError(err.Error())
		return nil, err
	}
	if g.FnInitialize == nil || g.FnUpdate == nil {
		err := errors.New("game must provide initialize and update functions")
		core.LogError(err.Error())
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     platform.New(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig

	core.SetLogLevel(core.ParseLogLevel(config.LogLevel))
	if config.LogFile != "" {
		if err := core.OpenLogFile(config.LogFile, core.DefaultLogFileMaxSize); err != nil {
			core.LogWarn("file logging disabled: %s", err.Error())
		}
	}

	core.EventInitialize()
	core.EventRegister(core.EventCodeApplicationQuit, e, e.onEvent)
	core.EventRegister(core.EventCodeResized, e, e.onResized)
	core.EventRegister(core.EventCodeShaderCompiled, e, e.onEvent)

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	if err := e.platform.Startup(config.Name, config.StartPosX, config.StartPosY, config.StartWidth, config.StartHeight); err != nil {
		return err
	}

	r, err := renderer.New(e.platform, config.RendererConfig())
	if err != nil {
		return err
	}
	e.renderer = r

	if err := e.gameInstance.FnInitialize(r); err != nil {
		return errors.Wrap(err, "game initialize failed")
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives frames until the window closes, a quit event arrives or Stop is
// called. A frame error ends the loop and is returned.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.Newf("engine cannot run in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.running.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var runningTime float64 = 0.0

	for e.running.Load() {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.running.Store(false)
			break
		}

		if e.isSuspended {
			// minimized; block until the window comes back
			e.platform.WaitEvents()
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		var currentTime float64 = e.clock.Elapsed()
		var delta float64 = (currentTime - e.lastTime)
		var frameStartTime float64 = core.GetAbsoluteTime()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			e.running.Store(false)
			return errors.Wrap(err, "game update failed")
		}

		if err := e.renderer.DrawFrame(delta); err != nil {
			e.running.Store(false)
			return errors.Wrap(err, "draw frame failed")
		}

		var frameElapsedTime float64 = core.GetAbsoluteTime() - frameStartTime
		core.MetricsUpdate(frameElapsedTime)

		runningTime += delta
		if runningTime >= metricsLogInterval {
			m := core.MetricsSnapshot()
			core.LogDebug("fps: %.0f, frame: %.3f ms, draws: %d, pipeline binds: %d, recreations: %d",
				m.FPS, m.MSavg, m.DrawCalls, m.PipelineBinds, m.Recreations)
			runningTime = 0
		}

		// Update last time
		e.lastTime = currentTime
	}
	e.clock.Stop()
	return nil
}

// Stop asks Run to return after the current frame. Safe from any goroutine.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Shutdown releases the game, renderer and window in that order. It must run
// on the thread that called Run.
func (e *Engine) Shutdown() error {
	var errs error
	e.shutdownOnce.Do(func() {
		e.currentStage = EngineStageShuttingDown
		if e.renderer != nil {
			if e.gameInstance.FnShutdown != nil {
				if err := e.gameInstance.FnShutdown(); err != nil {
					errs = errors.CombineErrors(errs, err)
				}
			}
			if err := e.renderer.Shutdown(); err != nil {
				errs = errors.CombineErrors(errs, err)
			}
			e.renderer = nil
		}
		if err := e.platform.Shutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
		core.EventUnregister(core.EventCodeApplicationQuit, e)
		core.EventUnregister(core.EventCodeResized, e)
		core.EventUnregister(core.EventCodeShaderCompiled, e)
		if err := core.EventShutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
		core.LogInfo("engine shut down")
		core.CloseLogFile()
		e.currentStage = EngineStageShutdown
	})
	return errs
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	switch code {
	case core.EventCodeApplicationQuit:
		core.LogInfo("EventCodeApplicationQuit received, shutting down.")
		e.running.Store(false)
		return true
	case core.EventCodeShaderCompiled:
		core.LogInfo("shader compiled: %s", context.Data.S)
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	if code != core.EventCodeResized {
		return false
	}
	width := context.Data.U32[0]
	height := context.Data.U32[1]

	// Check if different. If so, trigger a resize event.
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	if e.renderer != nil {
		e.renderer.OnResize(width, height)
	}
	// other listeners may care about the new size too
	return false
}
