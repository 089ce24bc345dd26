//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"sparkrt/app"
	"sparkrt/hal"
	"sparkrt/internal/logging"
	"sparkrt/kernel"
)

func main() {
	var (
		headless hal.HeadlessConfig
		window   hal.WindowConfig
		cfg      app.Config
		level    string
		noPI     bool
		quantum  uint
	)
	kcfg := kernel.DefaultConfig()
	flag.BoolVar(&headless.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&headless.Hz, "hz", 60, "Frame rate in headless mode.")
	flag.Uint64Var(&headless.Frames, "frames", 0, "Stop after N frames in headless mode (0 = run forever).")
	flag.IntVar(&window.Scale, "scale", 2, "Window scale factor.")
	flag.StringVar(&level, "log-level", "info", "System log level: debug, info, warn or error.")
	flag.BoolVar(&noPI, "no-pi", false, "Disable priority inheritance.")
	flag.UintVar(&quantum, "quantum", uint(kcfg.Quantum), "Round-robin quantum in ticks (0 = off).")
	flag.BoolVar(&cfg.ExitOnFault, "exit-on-fault", false, "Exit when the kernel halts instead of showing the fault screen.")
	flag.Parse()

	lvl, err := logging.ParseLevel(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.LogLevel = lvl
	kcfg.PriorityInheritance = !noPI
	kcfg.Quantum = kernel.Interval(quantum)
	cfg.Kernel = &kcfg
	newApp := func(h hal.HAL) func() error { return app.NewWithConfig(h, cfg) }

	if headless.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, newApp, headless); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(newApp, window); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
