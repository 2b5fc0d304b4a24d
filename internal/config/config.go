package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/antoniostano/guardian/internal/patterns"
)

// Config contains all runtime settings for the content safety service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	PatternsPath string
	MatchEngine  string

	ToxicityThreshold float64
	HighRiskThreshold float64
	CriticalThreshold float64

	MaxHistoryTurns    int
	BatchConcurrency   int
	SessionIdleTimeout time.Duration

	AuditDatabaseURL string
	AuditQueueSize   int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("GUARDIAN_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("GUARDIAN_METRICS_NAMESPACE", "guardian"),
		AllowAnyOrigin:     false,
		PatternsPath:       envOrDefault("GUARDIAN_PATTERNS_PATH", "safety_patterns.json"),
		MatchEngine:        envOrDefault("GUARDIAN_MATCH_ENGINE", patterns.EngineAutomaton),
		ToxicityThreshold:  0.1,
		HighRiskThreshold:  0.3,
		CriticalThreshold:  0.7,
		MaxHistoryTurns:    20,
		BatchConcurrency:   4,
		SessionIdleTimeout: 30 * time.Minute,
		AuditDatabaseURL:   stringsTrimSpace("GUARDIAN_AUDIT_DATABASE_URL"),
		AuditQueueSize:     256,
		ShutdownTimeout:    15 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("GUARDIAN_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTimeout, err = durationFromEnv("GUARDIAN_SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("GUARDIAN_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.ToxicityThreshold, err = floatFromEnv("GUARDIAN_TOXICITY_THRESHOLD", cfg.ToxicityThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.HighRiskThreshold, err = floatFromEnv("GUARDIAN_HIGH_RISK_THRESHOLD", cfg.HighRiskThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.CriticalThreshold, err = floatFromEnv("GUARDIAN_CRITICAL_THRESHOLD", cfg.CriticalThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxHistoryTurns, err = intFromEnv("GUARDIAN_MAX_HISTORY", cfg.MaxHistoryTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.BatchConcurrency, err = intFromEnv("GUARDIAN_BATCH_CONCURRENCY", cfg.BatchConcurrency)
	if err != nil {
		return Config{}, err
	}
	cfg.AuditQueueSize, err = intFromEnv("GUARDIAN_AUDIT_QUEUE_SIZE", cfg.AuditQueueSize)
	if err != nil {
		return Config{}, err
	}

	switch cfg.MatchEngine {
	case patterns.EngineAutomaton, patterns.EngineRegex:
	default:
		return Config{}, fmt.Errorf("GUARDIAN_MATCH_ENGINE must be %q or %q", patterns.EngineAutomaton, patterns.EngineRegex)
	}
	if !(cfg.ToxicityThreshold < cfg.HighRiskThreshold && cfg.HighRiskThreshold < cfg.CriticalThreshold) {
		return Config{}, fmt.Errorf("safety thresholds must be strictly ordered toxicity < high risk < critical")
	}
	if cfg.MaxHistoryTurns <= 0 {
		return Config{}, fmt.Errorf("GUARDIAN_MAX_HISTORY must be positive")
	}
	if cfg.BatchConcurrency <= 0 {
		return Config{}, fmt.Errorf("GUARDIAN_BATCH_CONCURRENCY must be positive")
	}
	if cfg.AuditQueueSize <= 0 {
		return Config{}, fmt.Errorf("GUARDIAN_AUDIT_QUEUE_SIZE must be positive")
	}
	if cfg.SessionIdleTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("GUARDIAN_SESSION_IDLE_TIMEOUT must be at least 5s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
