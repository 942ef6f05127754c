package devops

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"tfshrms.cloud/hrms/infrastructure/logging"
)

// Secret hides its value from fmt and logs.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

func (s Secret) Value() string {
	return string(s)
}

type ServerConfig struct {
	Address         string        `koanf:"address"`
	CorsOrigins     []string      `koanf:"cors_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN            Secret `koanf:"dsn"`
	MaxConnections int    `koanf:"max_connections"`
	LogLevel       string `koanf:"log_level"`
}

type SecurityConfig struct {
	JWTSecret        Secret        `koanf:"jwt_secret"`
	TokenTTL         time.Duration `koanf:"token_ttl"`
	EncryptionKey    Secret        `koanf:"encryption_key"`
	ResetSecret      Secret        `koanf:"reset_secret"`
	ResetTokenTTL    time.Duration `koanf:"reset_token_ttl"`
	ResetFrontendURL string        `koanf:"reset_frontend_url"`
}

type StorageConfig struct {
	Bucket        string `koanf:"bucket"`
	Prefix        string `koanf:"prefix"`
	PublicBaseURL string `koanf:"public_base_url"`
}

type MailConfig struct {
	From    string `koanf:"from"`
	Enabled bool   `koanf:"enabled"`
}

type SlackConfig struct {
	Token          Secret `koanf:"token"`
	InfoChannelID  string `koanf:"info_channel"`
	ErrorChannelID string `koanf:"error_channel"`
}

type SSMConfig struct {
	Parameter string `koanf:"parameter"`
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Storage  StorageConfig  `koanf:"storage"`
	Mail     MailConfig     `koanf:"mail"`
	Slack    SlackConfig    `koanf:"slack"`
	Logging  logging.Config `koanf:"logging"`
	SSM      SSMConfig      `koanf:"ssm"`
}

// ParameterFetcher returns the raw value of a parameter store entry.
type ParameterFetcher func(ctx context.Context, name string) ([]byte, error)

// Load reads configuration with the following precedence (highest first):
//  1. environment variables prefixed with HRMS_ (HRMS_DATABASE_DSN -> database.dsn)
//  2. the YAML document stored in SSM under ssm.parameter, if set
//  3. the YAML file at path, if it exists
//  4. defaults
func Load(ctx context.Context, path string, fetch ParameterFetcher) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}

	if name := k.String("ssm.parameter"); name != "" {
		if fetch == nil {
			fetch = FetchParameter
		}
		content, err := fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load parameter %s: %w", name, err)
		}
		// environment still wins over the parameter document
		if err := loadEnv(k); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadEnv(k *koanf.Koanf) error {
	// HRMS_SECURITY_JWT_SECRET -> security.jwt_secret
	err := k.Load(env.Provider("HRMS_", ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, "HRMS_"))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil)
	if err != nil {
		return fmt.Errorf("load environment variables: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "0.0.0.0:8090"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = 10
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Security.TokenTTL == 0 {
		cfg.Security.TokenTTL = 12 * time.Hour
	}
	if cfg.Security.ResetTokenTTL == 0 {
		cfg.Security.ResetTokenTTL = 300 * time.Second
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "uploads"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate fails on any secret that cannot be used as configured.
// The encryption key is never regenerated: data sealed with it would become unreadable.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if _, err := c.JWTSecret(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.EncryptionKey(); err != nil {
		errs = append(errs, err)
	}
	if c.Security.ResetSecret == "" {
		errs = append(errs, errors.New("security.reset_secret is required"))
	}
	if c.Security.ResetTokenTTL < 0 || c.Security.TokenTTL < 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.Mail.Enabled && c.Mail.From == "" {
		errs = append(errs, errors.New("mail.from is required when mail is enabled"))
	}
	return errors.Join(errs...)
}

// JWTSecret decodes the base64 signing secret.
func (c *Config) JWTSecret() ([]byte, error) {
	if c.Security.JWTSecret == "" {
		return nil, errors.New("security.jwt_secret is required")
	}
	secret, err := base64.StdEncoding.DecodeString(c.Security.JWTSecret.Value())
	if err != nil {
		return nil, fmt.Errorf("security.jwt_secret must be base64: %w", err)
	}
	return secret, nil
}

// EncryptionKey decodes the 32 byte credential key, standard or URL-safe base64.
func (c *Config) EncryptionKey() (*[32]byte, error) {
	raw := c.Security.EncryptionKey.Value()
	if raw == "" {
		return nil, errors.New("security.encryption_key is required")
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("security.encryption_key must be base64: %w", err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("security.encryption_key must decode to 32 bytes, got %d", len(decoded))
	}
	var key [32]byte
	copy(key[:], decoded)
	return &key, nil
}

// FetchParameter reads a SecureString parameter from SSM.
func FetchParameter(ctx context.Context, name string) ([]byte, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(cfg)

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameter: %w", err)
	}
	return []byte(aws.ToString(out.Parameter.Value)), nil
}
