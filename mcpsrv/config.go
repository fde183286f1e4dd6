package mcpsrv

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qyinm/yentui/config"
)

const envPrefix = "YENTUI_MCP_"

// Config is read from YENTUI_MCP_* variables; PORT is honoured for hosted
// deployments.
type Config struct {
	Port               string
	BaseURL            string
	Timeout            time.Duration
	CacheTTL           time.Duration
	APIKey             string
	AllowedOrigins     []string
	Stateless          bool
	EnableChat         bool
	EnableAdmin        bool
	RPS                float64
	Burst              int
	ProfileConcurrency int
	SessionTimeout     time.Duration
	CacheClearInterval time.Duration
	LogLevel           string
}

func LoadConfig() Config {
	defaults := config.Default()

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = strings.TrimSpace(env("PORT"))
	}
	if port == "" {
		port = "8080"
	}
	baseURL := strings.TrimSpace(env("BASE_URL"))
	if baseURL == "" {
		baseURL = defaults.BaseURL
	}

	cfg := Config{
		Port:               port,
		BaseURL:            baseURL,
		Timeout:            parseDuration(env("TIMEOUT"), defaults.Timeout),
		CacheTTL:           parseDuration(env("CACHE_TTL"), defaults.CacheTTL),
		APIKey:             strings.TrimSpace(env("API_KEY")),
		AllowedOrigins:     parseCSV(env("ALLOWED_ORIGINS")),
		Stateless:          parseBool(env("STATELESS"), false),
		EnableChat:         parseBool(env("ENABLE_CHAT"), false),
		EnableAdmin:        parseBool(env("ENABLE_ADMIN"), false),
		RPS:                parseFloat(env("RPS"), 2),
		Burst:              parseInt(env("BURST"), 5),
		ProfileConcurrency: parseInt(env("PROFILE_CONCURRENCY"), 3),
		SessionTimeout:     parseDuration(env("SESSION_TIMEOUT"), 15*time.Minute),
		CacheClearInterval: parseDuration(env("CACHE_CLEAR_INTERVAL"), 30*time.Minute),
		LogLevel:           strings.TrimSpace(env("LOG_LEVEL")),
	}

	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.ProfileConcurrency <= 0 {
		cfg.ProfileConcurrency = 3
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	return cfg
}

// ServerOptions derives the tool gating from the environment. The admin
// tool needs an API key as well as the flag.
func (c Config) ServerOptions() *ServerOptions {
	return &ServerOptions{
		EnableChat:         c.EnableChat,
		EnableAdmin:        c.EnableAdmin && c.APIKey != "",
		APIKey:             c.APIKey,
		ProfileConcurrency: c.ProfileConcurrency,
	}
}

func StreamableOptions(cfg Config) *mcp.StreamableHTTPOptions {
	return &mcp.StreamableHTTPOptions{
		Stateless:      cfg.Stateless,
		SessionTimeout: cfg.SessionTimeout,
	}
}

func env(key string) string {
	return os.Getenv(envPrefix + key)
}

func parseCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseBool(raw string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return b
}

func parseInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(raw string, fallback float64) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return d
}
