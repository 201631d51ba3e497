package config

import (
	"log"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// IsDevelopment reports whether the server runs outside production
func (c ServerConfig) IsDevelopment() bool {
	return c.Env != "production"
}

type StoreConfig struct {
	Name     string
	SeedFile string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type JWTConfig struct {
	Secret         string
	OperatorExpiry time.Duration
}

type TracingConfig struct {
	Endpoint    string
	SampleRatio float64
}

// Validate reports settings the server cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		return errors.Errorf("rate limit needs at least one request per positive window, got %d per %s",
			c.RateLimit.Requests, c.RateLimit.Window)
	}
	return nil
}

// Load reads configuration from an optional .env file and the environment.
// Environment variables win over the file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env loaded into the environment: %v", err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) *Config {
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("STORE_NAME", "TechStore")
	v.SetDefault("STORE_SEED_FILE", "")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_REQUESTS", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("JWT_OPERATOR_EXPIRY", 60)
	v.SetDefault("TRACING_ENDPOINT", "")
	v.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Store: StoreConfig{
			Name:     v.GetString("STORE_NAME"),
			SeedFile: v.GetString("STORE_SEED_FILE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		JWT: JWTConfig{
			Secret:         v.GetString("JWT_SECRET"),
			OperatorExpiry: time.Duration(v.GetInt("JWT_OPERATOR_EXPIRY")) * time.Minute,
		},
		Tracing: TracingConfig{
			Endpoint:    v.GetString("TRACING_ENDPOINT"),
			SampleRatio: v.GetFloat64("TRACING_SAMPLE_RATIO"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
