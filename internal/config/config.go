package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mind-engage/mindengage-grading/internal/question"
)

type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	DBDriver string `mapstructure:"DB_DRIVER"`
	DBDSN    string `mapstructure:"DB_DSN"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	CORSOrigins []string `mapstructure:"-"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	Grading GradingConfig `mapstructure:",squash"`
}

type GradingConfig struct {
	Workers          int                `mapstructure:"GRADING_WORKERS"`
	Policy           string             `mapstructure:"GRADING_POLICY"`
	MaxEditDistance  int                `mapstructure:"GRADING_MAX_EDIT_DISTANCE"`
	DefaultMatchMode question.MatchMode `mapstructure:"GRADING_DEFAULT_MATCH_MODE"`
}

var defaults = map[string]any{
	"HTTP_ADDR":                  ":8080",
	"DB_DRIVER":                  "sqlite",
	"DB_DSN":                     "",
	"LOG_LEVEL":                  "info",
	"LOG_FILE":                   "",
	"CORS_ORIGINS":               "http://localhost:3000",
	"REDIS_ADDR":                 "",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"GRADING_WORKERS":            4,
	"GRADING_POLICY":             "default",
	"GRADING_MAX_EDIT_DISTANCE":  1,
	"GRADING_DEFAULT_MATCH_MODE": string(question.MatchNormal),
}

// Load reads configuration from the environment. If file is non-empty it is
// read first and environment variables override it.
func Load(file string) (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSOrigins = splitCSV(v.GetString("CORS_ORIGINS"))
	cfg.Grading.DefaultMatchMode = question.MatchMode(strings.ToUpper(string(cfg.Grading.DefaultMatchMode)))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	if c.Grading.Workers < 1 {
		return fmt.Errorf("GRADING_WORKERS must be at least 1, got %d", c.Grading.Workers)
	}
	if c.Grading.MaxEditDistance < 0 {
		return fmt.Errorf("GRADING_MAX_EDIT_DISTANCE must not be negative, got %d", c.Grading.MaxEditDistance)
	}
	switch c.Grading.DefaultMatchMode {
	case question.MatchStrict, question.MatchNormal, question.MatchLenient:
	default:
		return fmt.Errorf("GRADING_DEFAULT_MATCH_MODE: unknown mode %q", c.Grading.DefaultMatchMode)
	}
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
