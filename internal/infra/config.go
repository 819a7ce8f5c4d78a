package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	OpsToken         string
	DatabaseURL      string
	TelegramToken    string
	TelegramDebug    bool
	FalKey           string
	FalQueueURL      string
	FalTrainerApp    string
	FalGeneratorApp  string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	OpenAIOrg        string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3PresignTTL     time.Duration
	StoragePath      string
	StorageBaseURL   string
	StagingDir       string
	JobPollInterval  time.Duration
	TrainingTimeout  time.Duration
	GenerateTimeout  time.Duration
	RewriteTimeout   time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Values from .env and .env.local are loaded first when the files exist.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             port,
		OpsToken:         os.Getenv("OPS_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", os.Getenv("BOT_TOKEN")),
		TelegramDebug:    getEnvBool("TELEGRAM_DEBUG", false),
		FalKey:           os.Getenv("FAL_KEY"),
		FalQueueURL:      getEnv("FAL_QUEUE_URL", "https://queue.fal.run"),
		FalTrainerApp:    getEnv("FAL_TRAINER_APP", "fal-ai/flux-lora-portrait-trainer"),
		FalGeneratorApp:  getEnv("FAL_GENERATOR_APP", "fal-ai/flux-lora"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:        os.Getenv("OPENAI_ORG"),
		S3Bucket:         strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("S3_SECRET_KEY"),
		S3PresignTTL:     time.Minute * time.Duration(getEnvInt("S3_PRESIGN_TTL_MINUTES", 24*60)),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		StagingDir:       getEnv("STAGING_DIR", os.TempDir()),
		JobPollInterval:  time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 5)),
		TrainingTimeout:  time.Minute * time.Duration(getEnvInt("TRAINING_TIMEOUT_MINUTES", 60)),
		GenerateTimeout:  time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 300)),
		RewriteTimeout:   time.Second * time.Duration(getEnvInt("REWRITE_TIMEOUT_SECONDS", 30)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JobPollInterval <= 0 {
		return nil, fmt.Errorf("JOB_POLL_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

// UsesS3 reports whether datasets are uploaded to an S3 compatible bucket
// rather than the local file store.
func (c *Config) UsesS3() bool {
	return c != nil && c.S3Bucket != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
