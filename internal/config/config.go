package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tool server.
type Config struct {
	// HTTP bind settings
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Browser settings
	DefaultEngine     string
	DefaultHeadless   bool
	NavigateTimeoutMS int
	EvaluateTimeoutMS int

	// Webcam settings
	DefaultDevice    string
	AssetDir         string
	SpawnGraceMS     int
	StopGraceMS      int
	CaptureTimeoutMS int

	// Artifact storage
	ArtifactDir string

	// Caption inference service (empty disables the caption tool)
	InferenceURL       string
	InferenceTimeoutMS int

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:           getEnvOrDefault("AGENT_BIND_ADDR", "127.0.0.1:8199"),
		PortCandidates:     splitList(getEnvOrDefault("AGENT_PORT_CANDIDATES", "127.0.0.1:8200,127.0.0.1:8201,127.0.0.1:8202")),
		PortAutoFallback:   getEnvBoolOrDefault("AGENT_PORT_AUTO_FALLBACK", true),
		DefaultEngine:      getEnvOrDefault("AGENT_DEFAULT_ENGINE", "chromium"),
		DefaultHeadless:    getEnvBoolOrDefault("AGENT_DEFAULT_HEADLESS", true),
		NavigateTimeoutMS:  getEnvIntOrDefault("AGENT_NAVIGATE_TIMEOUT_MS", 30000),
		EvaluateTimeoutMS:  getEnvIntOrDefault("AGENT_EVALUATE_TIMEOUT_MS", 10000),
		DefaultDevice:      getEnvOrDefault("WEBCAM_DEFAULT_DEVICE", "/dev/video20"),
		AssetDir:           getEnvOrDefault("WEBCAM_ASSET_DIR", "./webcam-assets"),
		SpawnGraceMS:       getEnvIntOrDefault("WEBCAM_SPAWN_GRACE_MS", 1000),
		StopGraceMS:        getEnvIntOrDefault("WEBCAM_STOP_GRACE_MS", 500),
		CaptureTimeoutMS:   getEnvIntOrDefault("WEBCAM_CAPTURE_TIMEOUT_MS", 10000),
		ArtifactDir:        getEnvOrDefault("AGENT_ARTIFACT_DIR", "./artifacts"),
		InferenceURL:       getEnvOrDefault("CAPTION_INFERENCE_URL", ""),
		InferenceTimeoutMS: getEnvIntOrDefault("CAPTION_INFERENCE_TIMEOUT_MS", 60000),
		LogLevel:           strings.ToLower(getEnvOrDefault("AGENT_LOG_LEVEL", "info")),
		LogFile:            getEnvOrDefault("AGENT_LOG_FILE", "logs/web_agent.log"),
	}

	if cfg.NavigateTimeoutMS < 1000 {
		cfg.NavigateTimeoutMS = 1000
	}
	if cfg.EvaluateTimeoutMS < 1000 {
		cfg.EvaluateTimeoutMS = 1000
	}
	if cfg.SpawnGraceMS < 100 {
		cfg.SpawnGraceMS = 100
	}
	if cfg.StopGraceMS < 100 {
		cfg.StopGraceMS = 100
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
