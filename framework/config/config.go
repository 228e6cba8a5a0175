package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App     AppConfig
	Loop    LoopConfig
	Admin   AdminConfig
	Metrics MetricsConfig
}

type AppConfig struct {
	Name       string
	Env        string // local | production | testing
	Debug      bool
	DebugLevel string // production | staging | development
	LogLevel   string // DEBUG | INFO | WARN | ERROR
}

type LoopConfig struct {
	TickInterval time.Duration
}

type AdminConfig struct {
	Enabled bool
	Addr    string
}

type MetricsConfig struct {
	Namespace         string
	ProcessCollectors bool
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:       env("APP_NAME", "UFramework"),
			Env:        env("APP_ENV", "local"),
			Debug:      envBool("APP_DEBUG", false),
			DebugLevel: env("APP_DEBUG_LEVEL", "production"),
			LogLevel:   env("LOG_LEVEL", "WARN"),
		},
		Loop: LoopConfig{
			TickInterval: GetDuration("LOOP_TICK_INTERVAL", time.Second/60),
		},
		Admin: AdminConfig{
			Enabled: envBool("ADMIN_ENABLED", false),
			Addr:    env("ADMIN_ADDR", ":4444"),
		},
		Metrics: MetricsConfig{
			Namespace:         env("METRICS_NAMESPACE", "uframework"),
			ProcessCollectors: envBool("METRICS_PROCESS_COLLECTORS", true),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// GetDuration returns a time.Duration env value ("16ms", "1s").
func GetDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
