// Command pachka runs the registry server: it loads configuration, performs
// an initial scan, starts listening on the configured endpoints, and then
// hands control to an interactive shell reading commands from stdin.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/deepdreamgames/pachka/internal/app"
	"github.com/deepdreamgames/pachka/internal/config"
	"github.com/deepdreamgames/pachka/internal/logging"
	"github.com/deepdreamgames/pachka/internal/metrics"
	"github.com/deepdreamgames/pachka/internal/shell"
)

func main() {
	configPath := "./config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pachka: loading config:", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Verbosity)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pachka: parsing verbosity:", err)
		os.Exit(1)
	}

	logger, atom, err := logging.New(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pachka: building logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a := app.New(cfg, logger, atom, metrics.New())

	ctx := context.Background()
	if _, err := a.Scan(ctx); err != nil {
		logger.Sugar().Fatalw("initial scan failed", "error", err)
	}
	if err := a.Start(); err != nil {
		logger.Sugar().Fatalw("initial start failed", "error", err)
	}

	sh := &shell.Shell{App: a, In: os.Stdin, Out: os.Stdout}
	if err := sh.Run(ctx); err != nil {
		logger.Sugar().Errorw("shell exited with error", "error", err)
	}

	if a.Running() {
		if err := a.Stop(); err != nil {
			logger.Sugar().Errorw("stop on exit failed", "error", err)
		}
	}
}
