/*
The sandbox application: two spheres over a procedural grid, rendered
through the vks frame engine.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vks/engine"
	"github.com/spaghettifunk/vks/engine/core"
	"github.com/spaghettifunk/vks/sandbox"
)

func main() {
	configPath := flag.String("config", "engine.toml", "path to the engine configuration")
	flag.Parse()

	config, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal(err.Error())
	}

	e, err := engine.New(sandbox.NewSandbox(config).Game)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// the render thread owns every GPU object, so the signal only stops the loop
	go func() {
		<-sigCh
		core.LogInfo("signal received, stopping")
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
}
