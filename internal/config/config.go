package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"student_records/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	App       AppConfig           `mapstructure:"app"`
	Data      DataConfig          `mapstructure:"data"`
	Ranking   RankingConfig       `mapstructure:"ranking"`
	Groups    []model.CourseGroup `mapstructure:"groups" validate:"dive"`
	Server    ServerConfig        `mapstructure:"server"`
	Storage   StorageConfig       `mapstructure:"storage"`
	Redis     RedisConfig         `mapstructure:"redis"`
	Database  DatabaseConfig      `mapstructure:"database"`
	Tracing   TracingConfig       `mapstructure:"tracing"`
	Cipher    CipherConfig        `mapstructure:"cipher"`
	CORS      CORSConfig          `mapstructure:"cors"`
	RateLimit RateLimitConfig     `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Mode    string `mapstructure:"mode" validate:"oneof=debug release test"`
	LogFile string `mapstructure:"log_file"`
}

type DataConfig struct {
	Input   string `mapstructure:"input"`
	Binary  string `mapstructure:"binary"`
	TopFile string `mapstructure:"top_file"`
	// Watch reloads the input file when it changes while serving.
	Watch bool `mapstructure:"watch"`
}

type RankingConfig struct {
	TopOverall   int           `mapstructure:"top_overall" validate:"gte=1"`
	TopPerCourse int           `mapstructure:"top_per_course" validate:"gte=1"`
	SortKey      string        `mapstructure:"sort_key"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests" validate:"gte=1"`
	WindowMinutes int `mapstructure:"window_minutes" validate:"gte=1"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type" validate:"omitempty,oneof=local minio"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint" validate:"required_if=Type minio"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket" validate:"required_if=Type minio"`
	MinioSecure   bool   `mapstructure:"minio_secure"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	DBName    string `mapstructure:"dbname" validate:"required_if=Enabled true"`
	Charset   string `mapstructure:"charset"`
	ParseTime bool   `mapstructure:"parsetime"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint" validate:"required_if=Enabled true"`
}

type CipherConfig struct {
	// Passphrase enables ciphering of archived snapshots when set.
	Passphrase string `mapstructure:"passphrase" validate:"omitempty,min=16"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "student-records")
	v.SetDefault("app.mode", "release")
	v.SetDefault("app.log_file", "logs/app.log")

	v.SetDefault("data.input", "data/data.txt")
	v.SetDefault("data.binary", "data/promotion.bin")
	v.SetDefault("data.top_file", "data/top.bin")

	v.SetDefault("ranking.top_overall", 10)
	v.SetDefault("ranking.top_per_course", 3)
	v.SetDefault("ranking.sort_key", model.SortByID.String())
	v.SetDefault("ranking.cache_ttl", 10*time.Minute)

	v.SetDefault("server.port", "8080")
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "archive")

	v.SetDefault("redis.port", 6379)
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
}

// LoadConfig reads config.yaml from path. A missing file is not an error;
// defaults and environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("STUDENT_RECORDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets and endpoints
	v.BindEnv("database.enabled", "DATABASE_ENABLED")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	v.BindEnv("cipher.passphrase", "STUDENT_RECORDS_PASSPHRASE")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := model.ParseSortKey(c.Ranking.SortKey); err != nil {
		return fmt.Errorf("invalid config: ranking.sort_key: %w", err)
	}
	return nil
}

// Group returns the configured course group called name.
func (c *Config) Group(name string) (model.CourseGroup, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return model.CourseGroup{}, false
}
