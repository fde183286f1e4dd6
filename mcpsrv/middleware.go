package mcpsrv

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const allowedHeaders = "Content-Type, Accept, Authorization, X-API-Key, Mcp-Protocol-Version, Mcp-Session-Id"

// WrapMCPHandler guards the MCP endpoint with the origin allowlist, the
// shared rate limit and, when configured, the API key. Requests without an
// Origin header are not browser requests and skip the allowlist.
func WrapMCPHandler(next http.Handler, cfg Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	g := &guard{
		origins: make(map[string]struct{}, len(cfg.AllowedOrigins)),
		limiter: newTokenBucket(cfg.RPS, cfg.Burst, time.Now),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
	for _, origin := range cfg.AllowedOrigins {
		g.origins[origin] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
			if !g.originAllowed(origin) {
				g.reject(w, r, http.StatusForbidden, "origin not allowed")
				return
			}
			setCORSHeaders(w.Header(), origin)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		if !g.limiter.Allow() {
			g.reject(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		if g.apiKey != "" && !validAPIKey(r, g.apiKey) {
			g.reject(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type guard struct {
	origins map[string]struct{}
	limiter *tokenBucket
	apiKey  string
	logger  *slog.Logger
}

func (g *guard) originAllowed(origin string) bool {
	_, ok := g.origins[origin]
	return ok
}

func (g *guard) reject(w http.ResponseWriter, r *http.Request, status int, msg string) {
	g.logger.Warn("mcp request rejected", "status", status, "reason", msg, "remote", r.RemoteAddr)
	http.Error(w, msg, status)
}

func setCORSHeaders(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Vary", "Origin")
	h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", allowedHeaders)
}

// validAPIKey accepts the key in X-API-Key or as a bearer token.
func validAPIKey(r *http.Request, expected string) bool {
	if secureEqual(strings.TrimSpace(r.Header.Get("X-API-Key")), expected) {
		return true
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return false
	}
	return secureEqual(token, expected)
}

func secureEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type tokenBucket struct {
	mu     sync.Mutex
	now    func() time.Time
	rps    float64
	burst  float64
	tokens float64
	last   time.Time
}

func newTokenBucket(rps float64, burst int, now func() time.Time) *tokenBucket {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 5
	}
	b := float64(burst)
	return &tokenBucket{now: now, rps: rps, burst: b, tokens: b, last: now()}
}

func (b *tokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.tokens = min(b.burst, b.tokens+now.Sub(b.last).Seconds()*b.rps)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
