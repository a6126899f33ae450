package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_DRIVER", "REDIS_URL", "PROFILE_LOCKING", "GAME_WIDTH", "MIGRATE_ON_START", "FRAME_INTERVAL_MS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.DatabaseDriver != "memory" {
		t.Errorf("DatabaseDriver = %q, want memory", cfg.DatabaseDriver)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", cfg.RedisURL)
	}
	if cfg.ProfileLocking != "local" {
		t.Errorf("ProfileLocking = %q, want local", cfg.ProfileLocking)
	}
	if cfg.GameWidth != 800 || cfg.FrameIntervalMs != 16 {
		t.Errorf("GameWidth=%d FrameIntervalMs=%d", cfg.GameWidth, cfg.FrameIntervalMs)
	}
	if cfg.MigrateOnStart {
		t.Error("MigrateOnStart should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("GAME_WIDTH", "1024")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("PROFILE_LOCKING", "none")
	t.Setenv("SESSION_IDLE_MINUTES", "not-a-number")

	cfg := Load()
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("DatabaseDriver = %q, want sqlite", cfg.DatabaseDriver)
	}
	if cfg.GameWidth != 1024 {
		t.Errorf("GameWidth = %d, want 1024", cfg.GameWidth)
	}
	if !cfg.MigrateOnStart {
		t.Error("MigrateOnStart should be true")
	}
	if cfg.ProfileLocking != "none" {
		t.Errorf("ProfileLocking = %q", cfg.ProfileLocking)
	}
	if cfg.SessionIdleMinutes != 15 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.SessionIdleMinutes)
	}
}
