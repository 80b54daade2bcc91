package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

// DefaultImportTimeout bounds a single spreadsheet upload request.
const DefaultImportTimeout = 5 * time.Minute

type Config struct {
	Addr           string          `yaml:"addr"`
	JWTSecret      string          `yaml:"jwt_secret"`
	APITimeout     time.Duration   `yaml:"timeout"`
	DatabasePath   string          `yaml:"database_path"`
	TokenDuration  time.Duration   `yaml:"token_duration"`
	MigrateOnStart bool            `yaml:"migrate_on_start"`
	LogLevel       string          `yaml:"log_level"`
	Import         ImportConfig    `yaml:"import"`
	Interviews     InterviewConfig `yaml:"interviews"`
}

// ImportConfig controls spreadsheet ingestion.
type ImportConfig struct {
	MinPhoneDigits int    `yaml:"min_phone_digits"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	Sheet          string `yaml:"sheet"`
	// Timeout replaces the server read/write deadlines for upload requests.
	// Every new row costs one bcrypt hash, about 50-100ms at the default
	// cost, so the 5m default covers batches of a few thousand rows.
	Timeout time.Duration `yaml:"timeout"`
}

// InterviewConfig controls scheduling defaults.
type InterviewConfig struct {
	SecondRoundDelay time.Duration `yaml:"second_round_delay"`
}

// LoadConfig builds the configuration from defaults, an optional .env file,
// RECRUIT_* environment variables and finally the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getEnv("RECRUIT_ADDR", ":8080"),
		JWTSecret:      getEnv("RECRUIT_JWT_SECRET", insecureJWTSecret),
		APITimeout:     15 * time.Second,
		DatabasePath:   getEnv("RECRUIT_DATABASE_PATH", "recruit.db"),
		TokenDuration:  1 * time.Hour,
		MigrateOnStart: getEnvBool("RECRUIT_MIGRATE_ON_START", true),
		LogLevel:       getEnv("RECRUIT_LOG_LEVEL", "info"),
		Import: ImportConfig{
			MinPhoneDigits: 7,
			MaxUploadBytes: 10 << 20,
			Timeout:        DefaultImportTimeout,
		},
		Interviews: InterviewConfig{
			SecondRoundDelay: 48 * time.Hour,
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the configuration and fills zero values with defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == insecureJWTSecret && os.Getenv("RECRUIT_ENV") != "development" {
		errs = append(errs, errors.New("jwt_secret uses the insecure default; set RECRUIT_JWT_SECRET or RECRUIT_ENV=development"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.APITimeout))
	}
	if c.TokenDuration <= 0 {
		errs = append(errs, fmt.Errorf("token_duration must be positive, got %v", c.TokenDuration))
	}

	if c.Import.MinPhoneDigits == 0 {
		c.Import.MinPhoneDigits = 7
	}
	if c.Import.MinPhoneDigits < 1 {
		errs = append(errs, fmt.Errorf("import.min_phone_digits must be >= 1, got %d", c.Import.MinPhoneDigits))
	}
	if c.Import.MaxUploadBytes <= 0 {
		c.Import.MaxUploadBytes = 10 << 20
	}
	if c.Import.Timeout <= 0 {
		c.Import.Timeout = DefaultImportTimeout
	}
	if c.Interviews.SecondRoundDelay <= 0 {
		c.Interviews.SecondRoundDelay = 48 * time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	return errors.Join(errs...)
}

// SlogLevel maps LogLevel to a slog level; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
