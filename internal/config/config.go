package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Rendering settings
	TextColor     string
	TextHighlight string

	// Speech settings
	SpeechEngine     string
	SpeechCommand    string
	DefaultRate      float64
	SpeechWPM        int
	BoundaryTick     time.Duration
	VoiceWaitTimeout time.Duration

	// Audio clip settings
	ClipDir       string
	ClipPlayerCmd string

	// Behavior settings
	MaxTextLength int

	// Logging settings
	LogLevel  string
	LogFormat string
}

// playbackRates are the selectable rate multipliers.
var playbackRates = []float64{0.5, 0.75, 1, 1.25, 1.5, 1.75, 2}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		// Rendering settings
		TextColor:     getEnvString("TEXT_COLOR", "#000000"),
		TextHighlight: getEnvString("TEXT_HIGHLIGHT", "#ffff00"),

		// Speech settings
		SpeechEngine:     getEnvString("SPEECH_ENGINE", "timed"),
		SpeechCommand:    getEnvString("SPEECH_COMMAND", ""),
		DefaultRate:      getEnvFloat("DEFAULT_RATE", 1.0),
		SpeechWPM:        getEnvInt("SPEECH_WPM", 180),
		BoundaryTick:     getEnvDuration("BOUNDARY_TICK", 500*time.Millisecond),
		VoiceWaitTimeout: getEnvDuration("VOICE_WAIT_TIMEOUT", 2*time.Second),

		// Audio clip settings
		ClipDir:       getEnvString("CLIP_DIR", ""),
		ClipPlayerCmd: getEnvString("CLIP_PLAYER_COMMAND", ""),

		// Behavior settings
		MaxTextLength: getEnvInt("MAX_TEXT_LENGTH", 10000),

		// Logging settings
		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if !validRate(c.DefaultRate) {
		return errors.New("DEFAULT_RATE must be one of: 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2")
	}

	if c.SpeechWPM < 1 {
		return errors.New("SPEECH_WPM must be at least 1")
	}

	if c.BoundaryTick <= 0 {
		return errors.New("BOUNDARY_TICK must be positive")
	}

	if c.VoiceWaitTimeout < 0 {
		return errors.New("VOICE_WAIT_TIMEOUT must be non-negative")
	}

	if c.MaxTextLength < 1 {
		return errors.New("MAX_TEXT_LENGTH must be at least 1")
	}

	validEngines := map[string]bool{"timed": true, "command": true}
	if !validEngines[c.SpeechEngine] {
		return errors.New("SPEECH_ENGINE must be one of: timed, command")
	}

	if c.SpeechEngine == "command" && c.SpeechCommand == "" {
		return errors.New("SPEECH_COMMAND is required when SPEECH_ENGINE is command")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}

// PlaybackRates returns the selectable rate multipliers.
func PlaybackRates() []float64 {
	rates := make([]float64, len(playbackRates))
	copy(rates, playbackRates)
	return rates
}

func validRate(rate float64) bool {
	for _, r := range playbackRates {
		if rate == r {
			return true
		}
	}
	return false
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as a float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
