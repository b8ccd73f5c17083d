package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Kie       KieConfig
	OpenAI    OpenAIConfig
	R2        R2Config
	Poll      PollConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	SubmitPerMin  int
	UGCPerHour    int
	UploadPerHour int
}

// KieConfig configures the vendor jobs API client. APIKey may be empty at
// boot; the operator can supply it later through the settings endpoint.
type KieConfig struct {
	APIKey     string
	BaseURL    string
	UploadURL  string
	CreditsURL string
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// PollConfig controls the polling engine cadence, in seconds.
type PollConfig struct {
	SimulateInterval  int
	ReconcileInterval int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("KIE_API_KEY")
	readSecret("OPENAI_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("kie.api_key", "KIE_API_KEY")
	_ = viper.BindEnv("kie.base_url", "KIE_BASE_URL")
	_ = viper.BindEnv("kie.upload_url", "KIE_UPLOAD_URL")
	_ = viper.BindEnv("kie.credits_url", "KIE_CREDITS_URL")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.model", "OPENAI_MODEL")
	_ = viper.BindEnv("openai.vision_model", "OPENAI_VISION_MODEL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("poll.simulate_interval", "POLL_SIMULATE_INTERVAL")
	_ = viper.BindEnv("poll.reconcile_interval", "POLL_RECONCILE_INTERVAL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.submit_per_min", 20)
	viper.SetDefault("ratelimit.ugc_per_hour", 5)
	viper.SetDefault("ratelimit.upload_per_hour", 50)

	// Kie defaults
	viper.SetDefault("kie.base_url", "https://api.kie.ai/api/v1/jobs")
	viper.SetDefault("kie.upload_url", "https://kieai.redpandaai.co/api/file-url-upload")
	viper.SetDefault("kie.credits_url", "https://api.kie.ai/api/v1/user/info")

	// OpenAI defaults
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.vision_model", "gpt-4o")

	// Poll cadence defaults
	viper.SetDefault("poll.simulate_interval", 1)
	viper.SetDefault("poll.reconcile_interval", 3)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerMin:  viper.GetInt("ratelimit.submit_per_min"),
			UGCPerHour:    viper.GetInt("ratelimit.ugc_per_hour"),
			UploadPerHour: viper.GetInt("ratelimit.upload_per_hour"),
		},
		Kie: KieConfig{
			APIKey:     viper.GetString("kie.api_key"),
			BaseURL:    viper.GetString("kie.base_url"),
			UploadURL:  viper.GetString("kie.upload_url"),
			CreditsURL: viper.GetString("kie.credits_url"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      viper.GetString("openai.api_key"),
			BaseURL:     viper.GetString("openai.base_url"),
			Model:       viper.GetString("openai.model"),
			VisionModel: viper.GetString("openai.vision_model"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Poll: PollConfig{
			SimulateInterval:  viper.GetInt("poll.simulate_interval"),
			ReconcileInterval: viper.GetInt("poll.reconcile_interval"),
		},
	}

	return cfg, nil
}
