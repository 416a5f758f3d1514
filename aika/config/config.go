package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AikaBaseURL  string
	AuthToken    string
	GoogleSub    string
	Provider     string
	Model        string
	SystemPrompt string

	// Optional transcript archive (postgres DSN parts). Empty host disables it.
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Optional transcript export to object storage. Empty endpoint disables it.
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string

	SessionFile string
}

func LoadConfig() Config {
	// no .env is fine, the system environment wins anyway
	_ = godotenv.Load()

	return Config{
		AikaBaseURL:  getEnv("AIKA_BASE_URL", "http://localhost:8000"),
		AuthToken:    getEnv("AIKA_AUTH_TOKEN", ""),
		GoogleSub:    getEnv("AIKA_GOOGLE_SUB", ""),
		Provider:     getEnv("AIKA_PROVIDER", ""),
		Model:        getEnv("AIKA_MODEL", ""),
		SystemPrompt: getEnv("AIKA_SYSTEM_PROMPT", ""),

		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", ""),
		DBName:     getEnv("DB_NAME", ""),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "aika-transcripts"),

		SessionFile: getEnv("AIKA_SESSION_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

// SurfaceConfig parameterizes one chat surface. The web client grew several
// copy-pasted chat widgets; here a surface is data, not a source file.
type SurfaceConfig struct {
	Name               string `yaml:"name"`
	Transport          string `yaml:"transport"` // "sse" or "websocket"
	Provider           string `yaml:"provider"`
	Model              string `yaml:"model"`
	SystemPrompt       string `yaml:"system_prompt"`
	MaxActivityLogs    int    `yaml:"max_activity_logs"`
	SplitLongResponses bool   `yaml:"split_long_responses"`
	HistoryWindow      int    `yaml:"history_window"`
	SendTimeoutSec     int    `yaml:"send_timeout_sec"`

	SendTimeout time.Duration `yaml:"-"`
}

type surfacesFile struct {
	Surfaces []SurfaceConfig `yaml:"surfaces"`
}

const (
	DefaultMaxActivityLogs = 100
	DefaultHistoryWindow   = 10
	DefaultSendTimeout     = 90 * time.Second
)

// DefaultSurface is what you get without a surfaces.yaml.
func DefaultSurface() SurfaceConfig {
	return SurfaceConfig{
		Name:               "default",
		Transport:          "sse",
		MaxActivityLogs:    DefaultMaxActivityLogs,
		SplitLongResponses: true,
		HistoryWindow:      DefaultHistoryWindow,
		SendTimeout:        DefaultSendTimeout,
	}
}

// LoadSurfaces reads surface profiles from a YAML file.
func LoadSurfaces(path string) ([]SurfaceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read surfaces file: %w", err)
	}
	var f surfacesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse surfaces file: %w", err)
	}
	for i := range f.Surfaces {
		applySurfaceDefaults(&f.Surfaces[i])
	}
	return f.Surfaces, nil
}

// FindSurface returns the named surface, or the default when name is empty
// and no profile called "default" exists.
func FindSurface(surfaces []SurfaceConfig, name string) (SurfaceConfig, error) {
	if name == "" {
		name = "default"
	}
	for _, s := range surfaces {
		if s.Name == name {
			return s, nil
		}
	}
	if name == "default" {
		return DefaultSurface(), nil
	}
	return SurfaceConfig{}, fmt.Errorf("unknown chat surface %q", name)
}

func applySurfaceDefaults(s *SurfaceConfig) {
	if s.Transport == "" {
		s.Transport = "sse"
	}
	if s.MaxActivityLogs <= 0 {
		s.MaxActivityLogs = DefaultMaxActivityLogs
	}
	if s.HistoryWindow <= 0 {
		s.HistoryWindow = DefaultHistoryWindow
	}
	if s.SendTimeoutSec > 0 {
		s.SendTimeout = time.Duration(s.SendTimeoutSec) * time.Second
	}
	if s.SendTimeout <= 0 {
		s.SendTimeout = DefaultSendTimeout
	}
}
