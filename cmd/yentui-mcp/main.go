package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/qyinm/yentui/backend"
	"github.com/qyinm/yentui/config"
	"github.com/qyinm/yentui/mcpsrv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := mcpsrv.LoadConfig()
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	source := backend.New(cfg.BaseURL,
		backend.WithTimeout(cfg.Timeout),
		backend.WithCacheTTL(cfg.CacheTTL),
		backend.WithLogger(logger.With("component", "backend")),
	)
	opts := cfg.ServerOptions()
	opts.Logger = logger
	server := mcpsrv.NewServer(source, "dev", opts)

	go mcpsrv.RunCacheJanitor(ctx, cfg.CacheClearInterval, source, logger)

	httpServer := &http.Server{
		Addr:              ":" + strings.TrimSpace(cfg.Port),
		Handler:           mcpsrv.NewMux(server, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	}()

	logger.Info("yentui-mcp listening", "addr", httpServer.Addr, "backend", cfg.BaseURL)
	err := httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
