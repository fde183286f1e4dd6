package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qyinm/yentui/backend"
	"github.com/qyinm/yentui/config"
	"github.com/qyinm/yentui/mcpsrv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := mcpsrv.LoadConfig()
	// stdout carries the protocol.
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

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.Error("stdio mcp server failed", "err", err)
		os.Exit(1)
	}
}
