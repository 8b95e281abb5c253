package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var console bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load extensions and plugins and run the host frame loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(console)
		},
	}
	cmd.Flags().BoolVar(&console, "console", true, "read server commands from stdin")
	return cmd
}

func run(console bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := newHost(ctx, cfg, log)
	if err != nil {
		return err
	}

	printSection("Extensions")
	h.start(cfg.Dirs.Extensions)
	printStat("Extensions loaded", h.exts.Len())
	printSection("Plugins")
	for _, inst := range h.scripts.Scripts() {
		printOK(fmt.Sprintf("%s %s by %s", inst.Info().Name, inst.Info().Version, inst.Info().Author))
	}
	printStat("Plugins loaded", h.scripts.Len())
	printStat("Hooks registered", h.bridge.Registered())
	fmt.Println()

	if console {
		go readConsole(h.console)
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	tickRate := cfg.Host.TickRate
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	printSection("Ready")
	printReady(fmt.Sprintf("Frame loop started (tick: %s)", tickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			h.tick(tickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			h.stop()
			log.Info("host stopped")
			return nil
		}
	}
}

// readConsole forwards stdin lines to the frame loop, which runs them.
func readConsole(out chan<- string) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out <- line
		}
	}
}
