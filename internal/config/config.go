package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds server + upstream transport settings.
// Load from env; call LoadEnvFile(".env") before Load() to use a .env file.
type Config struct {
	// HTTP server
	ListenAddr      string        // e.g. :5000
	ShutdownTimeout time.Duration

	// DefaultProxyURL is the base URL clients should use to reach this
	// service (scheme://host:port). When empty the /m3u handler derives it
	// from the incoming request's Host header.
	DefaultProxyURL string

	// FallbackDNSServers are consulted by the shared HTTP transports when
	// resolving upstream hosts. Empty means the system resolver.
	FallbackDNSServers []string

	// Upstream request tuning.
	APITimeout time.Duration // base timeout for small player_api calls
}

// Load reads config from environment.
func Load() *Config {
	c := &Config{
		ListenAddr:         listenAddr(),
		ShutdownTimeout:    getEnvDuration("X2M_SHUTDOWN_TIMEOUT", 10*time.Second),
		DefaultProxyURL:    strings.TrimSuffix(os.Getenv("X2M_PROXY_URL"), "/"),
		FallbackDNSServers: splitList(getEnv("X2M_DNS_FALLBACK", "1.1.1.1,1.0.0.1,8.8.8.8,8.8.4.4,9.9.9.9")),
		APITimeout:         getEnvDuration("X2M_API_TIMEOUT", 30*time.Second),
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

func listenAddr() string {
	if addr := os.Getenv("X2M_LISTEN"); addr != "" {
		return addr
	}
	return ":" + strconv.Itoa(getEnvInt("X2M_PORT", 5000))
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty entries. "none" disables the list entirely.
func splitList(s string) []string {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
