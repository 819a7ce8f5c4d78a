package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("FAL_TRAINER_APP", "")
	t.Setenv("JOB_POLL_INTERVAL_SECONDS", "")
	t.Setenv("TRAINING_TIMEOUT_MINUTES", "")
	t.Setenv("S3_BUCKET", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
	if cfg.FalTrainerApp != "fal-ai/flux-lora-portrait-trainer" {
		t.Fatalf("FalTrainerApp mismatch: got %q", cfg.FalTrainerApp)
	}
	if cfg.JobPollInterval != 5*time.Second {
		t.Fatalf("JobPollInterval mismatch: got %s", cfg.JobPollInterval)
	}
	if cfg.TrainingTimeout != time.Hour {
		t.Fatalf("TrainingTimeout mismatch: got %s", cfg.TrainingTimeout)
	}
	if cfg.UsesS3() {
		t.Fatal("expected local storage without S3_BUCKET")
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:1919/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
}

func TestLoadConfigTelegramTokenFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("BOT_TOKEN", "legacy-token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.TelegramToken != "legacy-token" {
		t.Fatalf("TelegramToken = %q, want legacy-token", cfg.TelegramToken)
	}
}

func TestLoadConfigS3(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("S3_BUCKET", " datasets ")
	t.Setenv("S3_PRESIGN_TTL_MINUTES", "30")
	t.Setenv("TELEGRAM_DEBUG", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if !cfg.UsesS3() || cfg.S3Bucket != "datasets" {
		t.Fatalf("S3Bucket = %q, want datasets", cfg.S3Bucket)
	}
	if cfg.S3PresignTTL != 30*time.Minute {
		t.Fatalf("S3PresignTTL = %s, want 30m", cfg.S3PresignTTL)
	}
	if !cfg.TelegramDebug {
		t.Fatal("expected TelegramDebug to be enabled")
	}
}

func TestLoadConfigRejectsZeroPollInterval(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JOB_POLL_INTERVAL_SECONDS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero poll interval")
	}
}
