/*
Package configs is responsible for loading and parsing the application's configuration settings.

Settings come from environment variables (optionally seeded from a .env file by the caller) and
cover the running environment, listen port, CORS origins, metrics and websocket tuning.
*/
package configs

import (
	"fmt"
	"os"
	"strings"

	env "github.com/Netflix/go-env"
)

const (
	minPort = 1024
	maxPort = 65535
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int
	LogLevel    string

	// Security Settings
	AllowedOrigins []string

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	// Metrics Settings
	MetricsPath    string
	RuntimeMetrics bool

	// WebSocket Settings
	WSJoinRate    float64
	WSJoinBurst   int
	SendQueueSize int
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// envVars mirrors the raw environment variables.
type envVars struct {
	Environment    string  `env:"ENVIRONMENT,default=development"`
	Port           int     `env:"PORT,default=8080"`
	LogLevel       string  `env:"LOG_LEVEL"`
	AllowedOrigins string  `env:"ALLOWED_ORIGINS"`
	TrustProxy     bool    `env:"TRUST_PROXY_HEADERS,default=false"`
	MetricsPath    string  `env:"METRICS_PATH,default=/metrics"`
	RuntimeMetrics bool    `env:"RUNTIME_METRICS,default=true"`
	WSJoinRate     float64 `env:"WS_JOIN_RATE,default=1"`
	WSJoinBurst    int     `env:"WS_JOIN_BURST,default=10"`
	SendQueueSize  int     `env:"SEND_QUEUE_SIZE,default=256"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (*AppConfig, error) {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return FromEnvSet(es)
}

// FromEnvSet parses and validates the configuration from an explicit variable set.
func FromEnvSet(es env.EnvSet) (*AppConfig, error) {
	var vars envVars
	if err := env.Unmarshal(es, &vars); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}

	if vars.Port < minPort || vars.Port > maxPort {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", vars.Port, minPort, maxPort)
	}

	if !strings.HasPrefix(vars.MetricsPath, "/") {
		return nil, fmt.Errorf("METRICS_PATH must start with '/', got %q", vars.MetricsPath)
	}

	if vars.WSJoinRate <= 0 || vars.WSJoinBurst <= 0 {
		return nil, fmt.Errorf("WS_JOIN_RATE and WS_JOIN_BURST must be positive, got %v and %d", vars.WSJoinRate, vars.WSJoinBurst)
	}

	if vars.SendQueueSize <= 0 {
		return nil, fmt.Errorf("SEND_QUEUE_SIZE must be positive, got %d", vars.SendQueueSize)
	}

	return &AppConfig{
		Environment:       vars.Environment,
		Port:              vars.Port,
		LogLevel:          vars.LogLevel,
		AllowedOrigins:    parseOrigins(vars.AllowedOrigins),
		TrustProxyHeaders: vars.TrustProxy,
		MetricsPath:       vars.MetricsPath,
		RuntimeMetrics:    vars.RuntimeMetrics,
		WSJoinRate:        vars.WSJoinRate,
		WSJoinBurst:       vars.WSJoinBurst,
		SendQueueSize:     vars.SendQueueSize,
	}, nil
}

// parseOrigins splits a comma separated origin list, dropping blanks.
func parseOrigins(raw string) []string {
	origins := []string{}

	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}
