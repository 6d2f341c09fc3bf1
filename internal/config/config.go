package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings. Values come from the environment, optionally
// seeded from a .env file; command-line flags override them.
type Config struct {
	MusicDir     string
	SampleRate   int
	Volume       int // 0..100
	TickInterval time.Duration
	LogLevel     string
	LogFile      string
	Watch        bool
	Repeat       bool
	Shuffle      bool

	// EnvFileLoaded reports whether a .env file was read.
	EnvFileLoaded bool
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// Load reads .env files (existing variables win) and then the environment.
func Load(envFiles ...string) *Config {
	loaded := godotenv.Load(envFiles...) == nil

	cfg := &Config{
		MusicDir:      getEnv("MUSICGURU_DIR", "."),
		SampleRate:    getEnvInt("MUSICGURU_SAMPLE_RATE", 44100),
		Volume:        getEnvInt("MUSICGURU_VOLUME", 80),
		TickInterval:  time.Duration(getEnvInt("MUSICGURU_TICK_MS", 40)) * time.Millisecond,
		LogLevel:      getEnv("MUSICGURU_LOG_LEVEL", "info"),
		LogFile:       getEnv("MUSICGURU_LOG_FILE", ""),
		Watch:         getEnvBool("MUSICGURU_WATCH", true),
		Repeat:        getEnvBool("MUSICGURU_REPEAT", false),
		Shuffle:       getEnvBool("MUSICGURU_SHUFFLE", false),
		EnvFileLoaded: loaded,
	}
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.Volume < 0 {
		c.Volume = 0
	}
	if c.Volume > 100 {
		c.Volume = 100
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 40 * time.Millisecond
	}
}
