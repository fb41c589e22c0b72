// Package config loads voxsay settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting. Flags may override
// some of these per run.
type Config struct {
	// Model
	ModelBin     string        // inference CLI binary
	SynthTimeout time.Duration // per-call inference budget

	// Audio
	SampleRate int // rate reported when the model's WAV header is unreadable

	// Paths
	OutputDir string // where synthesized WAVs land
	VoicesDir string // speaker reference pairs (<name>.wav + <name>.txt)
	CacheDir  string // persistent audio cache

	// Redis
	RedisURL       string
	PromptChannel  string
	ResultChannel  string
	ListenWorkers  int // concurrent prompt handlers in listen mode
	PublishResults bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ModelBin:       getEnv("VOXSAY_MODEL_BIN", "voxcpm"),
		SynthTimeout:   getEnvDuration("VOXSAY_SYNTH_TIMEOUT", 5*time.Minute),
		SampleRate:     getEnvInt("VOXSAY_SAMPLE_RATE", 16000),
		OutputDir:      getEnv("VOXSAY_OUTPUT_DIR", "audio/output"),
		VoicesDir:      getEnv("VOXSAY_VOICES_DIR", "voices"),
		CacheDir:       getEnv("VOXSAY_CACHE_DIR", ".voxsay-cache"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		PromptChannel:  getEnv("VOXSAY_PROMPT_CHANNEL", "voxsay:prompts"),
		ResultChannel:  getEnv("VOXSAY_RESULT_CHANNEL", "voxsay:results"),
		ListenWorkers:  getEnvInt("VOXSAY_LISTEN_WORKERS", 2),
		PublishResults: getEnvBool("VOXSAY_PUBLISH_RESULTS", false),
	}

	if cfg.ModelBin == "" {
		return nil, fmt.Errorf("VOXSAY_MODEL_BIN must not be empty")
	}
	if cfg.ListenWorkers < 1 {
		return nil, fmt.Errorf("VOXSAY_LISTEN_WORKERS must be at least 1")
	}
	if cfg.SampleRate < 1 {
		return nil, fmt.Errorf("VOXSAY_SAMPLE_RATE must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
