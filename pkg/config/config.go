// Package config assembles the runtime configuration: environment-first for
// credentials and endpoints, an optional YAML profile for the static policy
// bits (keyword overrides, deny rules). Components never read the
// environment themselves; everything is passed in at construction.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the assembled system needs.
type Config struct {
	// Proxmox connection
	ProxmoxHost      string
	ProxmoxPort      int
	ProxmoxTokenID   string
	ProxmoxSecret    string
	ProxmoxVerifySSL bool

	// Ollama / completion service
	OllamaBaseURL string
	OllamaModel   string
	EmbedModel    string
	Temperature   float64
	TopP          float64
	MaxTokens     int

	// Dispatch tunables
	ConfidenceThreshold float64
	ClassifyTimeout     time.Duration
	ExecuteTimeout      time.Duration

	// History store: Postgres DSN wins if set, otherwise SQLite at
	// HistoryPath. Empty HistoryPath disables history.
	HistoryDSN      string
	HistoryPath     string
	EmbedDimensions int

	// Lookup cache (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Ansible
	PlaybookDir string

	// Audit
	AuditPath  string
	S3Bucket   string
	S3Region   string
	S3Endpoint string

	// Profile file with keyword overrides and deny rules
	ProfilePath string
}

// Load reads configuration from environment variables, with defaults that
// suit a single-operator deployment.
func Load() *Config {
	return &Config{
		ProxmoxHost:      os.Getenv("PROXMOX_HOST"),
		ProxmoxPort:      envInt("PROXMOX_PORT", 8006),
		ProxmoxTokenID:   os.Getenv("PROXMOX_TOKEN_ID"),
		ProxmoxSecret:    os.Getenv("PROXMOX_SECRET"),
		ProxmoxVerifySSL: os.Getenv("PROXMOX_VERIFY_SSL") == "true",

		OllamaBaseURL: envStr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		OllamaModel:   envStr("OLLAMA_MODEL", "llama3.2:latest"),
		EmbedModel:    envStr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		Temperature:   envFloat("LLM_TEMPERATURE", 0.7),
		TopP:          envFloat("LLM_TOP_P", 0.9),
		MaxTokens:     envInt("LLM_MAX_TOKENS", 2048),

		ConfidenceThreshold: envFloat("CONFIDENCE_THRESHOLD", 0.4),
		ClassifyTimeout:     envDuration("CLASSIFY_TIMEOUT", 15*time.Second),
		ExecuteTimeout:      envDuration("EXECUTE_TIMEOUT", 60*time.Second),

		HistoryDSN:      os.Getenv("DATABASE_URL"),
		HistoryPath:     envStr("HISTORY_PATH", "proxmox-ai.db"),
		EmbedDimensions: envInt("EMBED_DIMENSIONS", 768),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		PlaybookDir: envStr("PLAYBOOK_DIR", "playbooks"),

		AuditPath:  os.Getenv("AUDIT_PATH"),
		S3Bucket:   os.Getenv("AUDIT_S3_BUCKET"),
		S3Region:   envStr("AUDIT_S3_REGION", "us-east-1"),
		S3Endpoint: os.Getenv("AUDIT_S3_ENDPOINT"),

		ProfilePath: os.Getenv("PROFILE_PATH"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
