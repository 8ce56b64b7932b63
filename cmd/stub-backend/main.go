// Command stub-backend runs the in-memory development backend that the
// gatehouse client talks to.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gatehouse/internal/platform/config"
	"gatehouse/internal/platform/httpserver"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/stubbackend"
)

const resetSweepInterval = time.Minute

// main wires the stub and keeps the server lifecycle small. Behaviour lives
// in internal/stubbackend.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.StubFromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	stub, err := stubbackend.Build(ctx, cfg, log, reg)
	if err != nil {
		return fmt.Errorf("build stub backend: %w", err)
	}
	if cfg.AdminToken == "" {
		log.Warn("STUB_ADMIN_TOKEN is empty; /admin/outbox is disabled")
	}

	go sweepResetTokens(ctx, stub)

	log.Info("starting stub backend", "addr", cfg.Addr, "verify_providers", cfg.VerifyProviders)
	return httpserver.ListenAndServe(ctx, httpserver.New(cfg.Addr, stub.Handler), log)
}

func sweepResetTokens(ctx context.Context, stub *stubbackend.Server) {
	ticker := time.NewTicker(resetSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			_, _ = stub.Resets.DeleteExpired(ctx, now)
		}
	}
}
