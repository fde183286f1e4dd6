package mcpsrv

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func NewHandler(server *mcp.Server, opts *mcp.StreamableHTTPOptions) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, opts)
}

// NewMux serves the guarded MCP endpoint at /mcp and a liveness probe at
// /healthz.
func NewMux(server *mcp.Server, cfg Config, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/mcp", WrapMCPHandler(NewHandler(server, StreamableOptions(cfg)), cfg, logger))
	return mux
}

// RunCacheJanitor clears the backend cache every interval until ctx ends.
// A zero interval or a source without a cache does nothing.
func RunCacheJanitor(ctx context.Context, interval time.Duration, source any, logger *slog.Logger) {
	clearable, ok := source.(cacheClearSource)
	if interval <= 0 || !ok {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			clearable.ClearCache()
			if logger != nil {
				logger.Debug("backend cache cleared")
			}
		case <-ctx.Done():
			return
		}
	}
}
