package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddress != ":3000" {
		t.Fatalf("unexpected default address %q", cfg.HTTPAddress)
	}
	if cfg.BackupSchedule != "0 2 * * *" {
		t.Fatalf("unexpected default schedule %q", cfg.BackupSchedule)
	}
	if cfg.BackupRetentionDays != 30 {
		t.Fatalf("unexpected default retention %d", cfg.BackupRetentionDays)
	}
	if cfg.BackupEnabled {
		t.Fatal("backups should be disabled by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":8080")
	t.Setenv("BACKUP_ENABLED", "true")
	t.Setenv("BACKUP_RETENTION_DAYS", "7")

	cfg := Load()

	if cfg.HTTPAddress != ":8080" {
		t.Fatalf("expected :8080 got %q", cfg.HTTPAddress)
	}
	if !cfg.BackupEnabled {
		t.Fatal("expected backups enabled")
	}
	if cfg.BackupRetentionDays != 7 {
		t.Fatalf("expected retention 7 got %d", cfg.BackupRetentionDays)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("BACKUP_RETENTION_DAYS", "not-a-number")
	t.Setenv("BACKUP_ENABLED", "not-a-bool")

	cfg := Load()

	if cfg.BackupRetentionDays != 30 {
		t.Fatalf("malformed int should fall back to default, got %d", cfg.BackupRetentionDays)
	}
	if cfg.BackupEnabled {
		t.Fatal("malformed bool should fall back to default")
	}
}
