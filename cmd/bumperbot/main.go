package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/golang/glog"

	"github.com/tigerbot-team/bumperbot/pkg/config"
	"github.com/tigerbot-team/bumperbot/pkg/hardware"
)

var CLI struct {
	Config  string `help:"Config file to load." default:"${config_path}" type:"path"`
	InUse   string `help:"Where to write the effective config; empty to skip." default:"${in_use_path}"`
	Verbose int    `short:"v" help:"Log verbosity."`
	DryRun  bool   `help:"Run on an in-memory bus instead of the real hardware."`
}

func main() {
	kong.Parse(&CLI,
		kong.Description("Drives forward until it hits something, then reverses."),
		kong.Vars{
			"config_path": config.DefaultPath,
			"in_use_path": config.DefaultInUse,
		})
	initLogging(CLI.Verbose)
	exitCode := 0
	defer func() {
		glog.Flush()
		os.Exit(exitCode)
	}()

	fmt.Println("---- bumperbot ----")
	glog.Infof("GOMAXPROCS %d", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		glog.Exitf("Bad config: %v", err)
	}
	if CLI.InUse != "" {
		if err := cfg.WriteInUse(CLI.InUse); err != nil {
			glog.Warningf("Failed to write in-use config: %v", err)
		}
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	var hw hardware.Interface
	if CLI.DryRun {
		hw, _, err = hardware.NewDummy(cfg)
	} else {
		hw, err = hardware.New(cfg)
	}
	if err != nil {
		glog.Exitf("Failed to initialise hardware: %v", err)
	}
	defer func() {
		glog.Info("Zeroing motors for shut down")
		hw.Shutdown()
		time.Sleep(100 * time.Millisecond)
	}()
	hw.Start(ctx)

	controller, err := hw.Controller()
	if err != nil {
		glog.Errorf("Failed to create controller: %v", err)
		exitCode = 1
		return
	}
	hw.PlaySound(cfg.Sound.Bump)

	if err := controller.Run(ctx); err != nil {
		glog.Errorf("Controller stopped: %v", err)
		exitCode = 1
		return
	}
	glog.Infof("Context done after %d collisions", controller.Collisions())
}

// initLogging points glog at stderr; its flags are not exposed on our command
// line.
func initLogging(v int) {
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("v", strconv.Itoa(v))
	_ = flag.CommandLine.Parse(nil)
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		glog.Infof("Signal: %v", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		glog.Flush()
		os.Exit(0)
	}()
}
