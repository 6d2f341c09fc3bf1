package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"MUSICGURU_DIR", "MUSICGURU_SAMPLE_RATE", "MUSICGURU_VOLUME", "MUSICGURU_TICK_MS", "MUSICGURU_WATCH"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
	if cfg.EnvFileLoaded {
		t.Fatal("missing .env should not report loaded")
	}
	if cfg.MusicDir != "." || cfg.SampleRate != 44100 || cfg.Volume != 80 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.TickInterval != 40*time.Millisecond || !cfg.Watch {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	for _, k := range []string{"MUSICGURU_DIR", "MUSICGURU_VOLUME", "MUSICGURU_REPEAT", "MUSICGURU_TICK_MS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	path := filepath.Join(t.TempDir(), "test.env")
	body := "MUSICGURU_DIR=/srv/music\nMUSICGURU_VOLUME=250\nMUSICGURU_REPEAT=true\nMUSICGURU_TICK_MS=20\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Load(path)
	if !cfg.EnvFileLoaded {
		t.Fatal("expected .env to load")
	}
	if cfg.MusicDir != "/srv/music" || !cfg.Repeat || cfg.TickInterval != 20*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Volume != 100 {
		t.Fatalf("volume should clamp to 100, got %d", cfg.Volume)
	}
}

func TestEnvironmentWinsOverEnvFile(t *testing.T) {
	t.Setenv("MUSICGURU_SAMPLE_RATE", "48000")
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("MUSICGURU_SAMPLE_RATE=22050\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if cfg := Load(path); cfg.SampleRate != 48000 {
		t.Fatalf("sample rate = %d, want 48000", cfg.SampleRate)
	}
}
