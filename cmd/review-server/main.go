package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/adapter/reviewpresenter"
	appcfg "github.com/park285/cheese-review/internal/config"
	"github.com/park285/cheese-review/internal/obslog"
	"github.com/park285/cheese-review/internal/reviewbuilder"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	if err := run(); err != nil {
		obslog.L().Error("review server stopped", zap.Error(err))
		obslog.Sync()
		os.Exit(1)
	}
	obslog.Sync()
}

func run() error {
	cfg, err := appcfg.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := obslog.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := reviewbuilder.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	srv := newServer(deps.Service, reviewpresenter.NewFormatter(deps.Catalog), logger.Named("http"))
	httpServer := &fasthttp.Server{
		Handler:            srv.handle,
		Name:               "cheese-review",
		ReadTimeout:        30 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("review server listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- httpServer.ListenAndServe(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.ShutdownWithContext(shutdownCtx)
}
