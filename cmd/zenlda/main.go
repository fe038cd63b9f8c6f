package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zenlda/zenlda/internal/config"
	"github.com/zenlda/zenlda/internal/driver"
	"github.com/zenlda/zenlda/internal/logger"
	"github.com/zenlda/zenlda/internal/version"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to load .env: %v", err)
	}

	logger.Init(logger.DefaultConfig())
	fmt.Fprintf(os.Stderr, "zenlda v%s\n", version.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("shutdown signal received, cancelling run")
		cancel()
	}()

	os.Exit(run(ctx))
}

// run executes the sampling run and maps its outcome to an exit code: a
// ConfigError prints usage and exits 1, an OutputExistsError exits 2,
// anything else exits 1.
func run(ctx context.Context) int {
	err := driver.Run(ctx)
	if err == nil {
		logger.Info("run complete")
		return 0
	}

	var configErr *config.ConfigError
	if errors.As(err, &configErr) {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return 1
	}

	var outputErr *driver.OutputExistsError
	if errors.As(err, &outputErr) {
		logger.Error("run failed", "error", err)
		return 2
	}

	logger.Error("run failed", "error", err)
	return 1
}
