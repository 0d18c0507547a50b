package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetd/internal/cli"
	apphttp "budgetd/internal/http"
	"budgetd/internal/log"
	"budgetd/internal/scheduler"
	"budgetd/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.Setup(log.ComponentApp)

	logger.Info("Starting budgetd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := cli.OpenStore(ctx, cfg, logger)
	defer st.Close()

	publisher := cli.SetupPublisher(cfg, logger)
	if publisher != nil {
		defer publisher.Close()
	}

	ledger := services.NewLedger(st)
	engine := services.NewEngine(st, publisher)

	sched := scheduler.New(engine, cfg.ProcessInterval, logger)
	sched.Start(ctx)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, engine, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
	}

	sched.Stop()
	logger.Info("budgetd shutdown complete")
}
