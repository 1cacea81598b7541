// Package config loads attachdrop configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mail sources.
const (
	SourceGmail = "gmail"
	SourceEML   = "eml"
)

// Storage backends.
const (
	BackendDrive = "drive"
	BackendS3    = "s3"
)

// DefaultAccount is used when neither a request nor the configuration
// names an account.
const DefaultAccount = "default"

// Config holds the complete application configuration.
type Config struct {
	Accounts       []Account     `yaml:"accounts"`
	DefaultAccount string        `yaml:"default_account"`
	CredentialsDir string        `yaml:"credentials_dir"`
	Mail           MailConfig    `yaml:"mail"`
	Storage        StorageConfig `yaml:"storage"`
	Logging        LoggingConfig `yaml:"logging"`
}

// Account describes one configured mailbox.
type Account struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Type  string `yaml:"type"`
}

// MailConfig selects where messages are read from.
type MailConfig struct {
	Source   string `yaml:"source"`
	EMLDir   string `yaml:"eml_dir"`
	MaxDepth int    `yaml:"max_depth"`
}

// StorageConfig selects where attachments are written to.
type StorageConfig struct {
	Backend       string   `yaml:"backend"`
	DefaultFolder string   `yaml:"default_folder"`
	S3            S3Config `yaml:"s3"`
}

// S3Config holds S3 bucket and credential settings. Empty credentials fall
// back to the AWS default credential chain.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, cfg.Validate()
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides it with environment variables.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvVars()
	return cfg, cfg.Validate()
}

// Validate rejects unknown sources and backends and missing settings they
// require.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mail.Source {
	case SourceGmail:
	case SourceEML:
		if c.Mail.EMLDir == "" {
			errs = append(errs, errors.New("mail.eml_dir is required for the eml source"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid mail source %q, must be 'gmail' or 'eml'", c.Mail.Source))
	}

	switch c.Storage.Backend {
	case BackendDrive:
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required for the s3 backend"))
		}
		if (c.Storage.S3.AccessKeyID == "") != (c.Storage.S3.SecretAccessKey == "") {
			errs = append(errs, errors.New("storage.s3.access_key_id and storage.s3.secret_access_key must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storage backend %q, must be 'drive' or 's3'", c.Storage.Backend))
	}

	if c.Mail.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("mail.max_depth must not be negative, got %d", c.Mail.MaxDepth))
	}

	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.Name == "" {
			errs = append(errs, errors.New("account name must not be empty"))
			continue
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Errorf("duplicate account %q", a.Name))
		}
		seen[a.Name] = true
	}

	return errors.Join(errs...)
}

// ResolveAccount returns account when set, else the configured default.
func (c *Config) ResolveAccount(account string) string {
	if account = strings.TrimSpace(account); account != "" {
		return account
	}
	if c.DefaultAccount != "" {
		return c.DefaultAccount
	}
	return DefaultAccount
}

// Account looks up a configured account by name or email.
func (c *Config) Account(name string) (Account, bool) {
	for _, a := range c.Accounts {
		if a.Name == name || (a.Email != "" && a.Email == name) {
			return a, true
		}
	}
	return Account{}, false
}

func (c *Config) applyDefaults() {
	c.DefaultAccount = DefaultAccount
	c.CredentialsDir = defaultCredentialsDir()
	c.Mail.Source = SourceGmail
	c.Storage.Backend = BackendDrive
	c.Storage.S3.Region = "us-east-1"
	c.Logging.Level = "info"
	c.Logging.Format = "text"
}

func (c *Config) applyEnvVars() {
	if v := os.Getenv("ATTACHDROP_DEFAULT_ACCOUNT"); v != "" {
		c.DefaultAccount = v
	}
	if v := os.Getenv("ATTACHDROP_CREDENTIALS_DIR"); v != "" {
		c.CredentialsDir = v
	}

	if v := os.Getenv("ATTACHDROP_MAIL_SOURCE"); v != "" {
		c.Mail.Source = strings.ToLower(v)
	}
	if v := os.Getenv("ATTACHDROP_EML_DIR"); v != "" {
		c.Mail.EMLDir = v
	}
	if v := os.Getenv("ATTACHDROP_MAX_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil {
			c.Mail.MaxDepth = depth
		}
	}

	if v := os.Getenv("ATTACHDROP_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ATTACHDROP_DEFAULT_FOLDER"); v != "" {
		c.Storage.DefaultFolder = v
	}
	if v := os.Getenv("ATTACHDROP_S3_BUCKET"); v != "" {
		c.Storage.S3.Bucket = v
	}
	if v := os.Getenv("ATTACHDROP_S3_ENDPOINT"); v != "" {
		c.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("ATTACHDROP_S3_USE_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Storage.S3.UsePathStyle = b
		}
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Storage.S3.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Storage.S3.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Storage.S3.SecretAccessKey = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}

func defaultCredentialsDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "attachdrop")
	}
	return "."
}
