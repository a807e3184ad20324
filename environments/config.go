package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Generator GeneratorConfig
	Providers ProvidersConfig
	Dispatch  DispatchConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GeneratorConfig points at the content-generation collaborator.
type GeneratorConfig struct {
	URL     string
	AuthKey string
	Timeout time.Duration
}

// ProviderConfig is one channel provider endpoint.
type ProviderConfig struct {
	URL     string
	AuthKey string
}

type ProvidersConfig struct {
	Email       ProviderConfig
	SMS         ProviderConfig
	Voice       ProviderConfig
	SendTimeout time.Duration
}

// DispatchConfig bounds one dispatch pass: how many due runs are selected,
// how many are processed in parallel, and how often the in-process scheduler
// polls.
type DispatchConfig struct {
	BatchSize    int
	Concurrency  int
	PollInterval time.Duration
}

type AuthConfig struct {
	RunsAPIKey     string
	DispatchAPIKey string
	WebhookSecret  string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "outreach"),
			Password: GetEnv("DB_PASSWORD", "outreach123"),
			DBName:   GetEnv("DB_NAME", "outreach_dispatch"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Generator: GeneratorConfig{
			URL:     GetEnv("GENERATOR_URL", "http://localhost:9010/generate"),
			AuthKey: GetEnv("GENERATOR_AUTH_KEY", ""),
			Timeout: time.Duration(GetEnvAsInt("GENERATOR_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Providers: ProvidersConfig{
			Email: ProviderConfig{
				URL:     GetEnv("EMAIL_PROVIDER_URL", "http://localhost:9020/email/send"),
				AuthKey: GetEnv("EMAIL_PROVIDER_AUTH_KEY", ""),
			},
			SMS: ProviderConfig{
				URL:     GetEnv("SMS_PROVIDER_URL", "http://localhost:9020/sms/send"),
				AuthKey: GetEnv("SMS_PROVIDER_AUTH_KEY", ""),
			},
			Voice: ProviderConfig{
				URL:     GetEnv("VOICE_PROVIDER_URL", "http://localhost:9020/voice/send"),
				AuthKey: GetEnv("VOICE_PROVIDER_AUTH_KEY", ""),
			},
			SendTimeout: time.Duration(GetEnvAsInt("PROVIDER_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Dispatch: DispatchConfig{
			BatchSize:    GetEnvAsInt("DISPATCH_BATCH_SIZE", 100),
			Concurrency:  GetEnvAsInt("DISPATCH_CONCURRENCY", 8),
			PollInterval: time.Duration(GetEnvAsInt("DISPATCH_POLL_INTERVAL_MINUTES", 2)) * time.Minute,
		},
		Auth: AuthConfig{
			RunsAPIKey:     GetEnv("RUNS_API_KEY", ""),
			DispatchAPIKey: GetEnv("DISPATCH_API_KEY", ""),
			WebhookSecret:  GetEnv("WEBHOOK_SIGNING_SECRET", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
