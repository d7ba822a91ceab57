package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/semmidev/indexcurator/internal/domain"
)

const EnvPrefix = "INDEXCURATOR"

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Reports ReportsConfig `mapstructure:"reports"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Schedule string `mapstructure:"schedule"`
}

type CleanupConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	UnitCount   int           `mapstructure:"unit_count"`
	TimeUnit    string        `mapstructure:"time_unit"`
	IndexPrefix string        `mapstructure:"index_prefix"`
	Strict      bool          `mapstructure:"strict"`
	DryRun      bool          `mapstructure:"dry_run"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CACert      string        `mapstructure:"ca_cert"`

	// LegacyCluster accepts clusters that do not announce themselves with
	// the X-Elastic-Product header (Amazon OpenSearch Service,
	// Elasticsearch before 7.14).
	LegacyCluster bool `mapstructure:"legacy_cluster"`
}

type AuthConfig struct {
	Mode string `mapstructure:"mode"`

	// sigv4
	Region       string `mapstructure:"region"`
	Service      string `mapstructure:"service"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	SessionToken string `mapstructure:"session_token"`
	Profile      string `mapstructure:"profile"`

	// basic
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ReportsConfig struct {
	Local    LocalReportConfig    `mapstructure:"local"`
	S3       S3ReportConfig       `mapstructure:"s3"`
	Telegram TelegramReportConfig `mapstructure:"telegram"`
}

type LocalReportConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type S3ReportConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type TelegramReportConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	NotifyIdle bool   `mapstructure:"notify_idle"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

const (
	AuthSigV4 = "sigv4"
	AuthBasic = "basic"
	AuthNone  = "none"
)

func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "indexcurator")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("cleanup.port", domain.DefaultPort)
	v.SetDefault("cleanup.unit_count", domain.DefaultAgeThreshold)
	v.SetDefault("cleanup.time_unit", string(domain.DefaultAgeUnit))
	v.SetDefault("cleanup.timeout", 30*time.Second)
	v.SetDefault("auth.mode", AuthSigV4)
	v.SetDefault("auth.service", "es")
	v.SetDefault("reports.local.retention_days", 30)
	v.SetDefault("reports.s3.prefix", "indexcurator/")
	v.SetDefault("metrics.job", "indexcurator")
}

// Keys without a default are invisible to Unmarshal unless bound.
var envOnlyKeys = []string{
	"app.log_file",
	"app.schedule",
	"cleanup.host",
	"cleanup.index_prefix",
	"cleanup.strict",
	"cleanup.dry_run",
	"cleanup.ca_cert",
	"cleanup.legacy_cluster",
	"auth.region",
	"auth.access_key",
	"auth.secret_key",
	"auth.session_token",
	"auth.profile",
	"auth.username",
	"auth.password",
	"reports.local.enabled",
	"reports.local.path",
	"reports.s3.enabled",
	"reports.s3.region",
	"reports.s3.bucket",
	"reports.s3.access_key",
	"reports.s3.secret_key",
	"reports.telegram.enabled",
	"reports.telegram.bot_token",
	"reports.telegram.chat_id",
	"reports.telegram.notify_idle",
	"metrics.pushgateway_url",
}

var integerKeys = []string{"cleanup.port", "cleanup.unit_count"}

// New returns a viper instance with defaults and environment overrides
// (INDEXCURATOR_CLEANUP_HOST and so on) applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the optional config file at path into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	for _, key := range integerKeys {
		if !isInteger(v.Get(key)) {
			field := strings.TrimPrefix(key, "cleanup.")
			return nil, domain.InvalidField(field, fmt.Sprintf("must be an integer, got %v", v.Get(key)))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// isInteger rejects values that cast would silently truncate, such as 4.5
// from YAML or "443.9" from the environment.
func isInteger(raw interface{}) bool {
	switch val := raw.(type) {
	case float32:
		return float64(val) == math.Trunc(float64(val))
	case float64:
		return val == math.Trunc(val) && !math.IsInf(val, 0)
	case string:
		_, err := strconv.Atoi(strings.TrimSpace(val))
		return err == nil
	}
	_, err := cast.ToIntE(raw)
	return err == nil
}

// Validate checks the wiring settings. Cleanup parameters are checked by
// CleanupRequest so that the failure names the offending field.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case AuthSigV4:
		if (c.Auth.AccessKey == "") != (c.Auth.SecretKey == "") {
			return domain.InvalidField("auth.access_key", "access_key and secret_key must be set together")
		}
	case AuthBasic:
		if c.Auth.Username == "" {
			return domain.InvalidField("auth.username", "is required for basic auth")
		}
	case AuthNone:
	default:
		return domain.InvalidField("auth.mode",
			fmt.Sprintf("must be one of %s, %s, %s, got %q", AuthSigV4, AuthBasic, AuthNone, c.Auth.Mode))
	}

	if c.Cleanup.Timeout < 0 {
		return domain.InvalidField("timeout", "must not be negative")
	}

	if c.Reports.Local.Enabled && c.Reports.Local.Path == "" {
		return domain.InvalidField("reports.local.path", "is required when enabled")
	}
	if c.Reports.S3.Enabled {
		if c.Reports.S3.Bucket == "" {
			return domain.InvalidField("reports.s3.bucket", "is required when enabled")
		}
		if c.Reports.S3.Region == "" {
			c.Reports.S3.Region = c.Auth.Region
		}
	}
	if c.Reports.Telegram.Enabled {
		if c.Reports.Telegram.BotToken == "" {
			return domain.InvalidField("reports.telegram.bot_token", "is required when enabled")
		}
		if _, err := cast.ToInt64E(c.Reports.Telegram.ChatID); err != nil {
			return domain.InvalidField("reports.telegram.chat_id", "must be a numeric chat id")
		}
	}

	return nil
}

// RequestParams maps the cleanup section onto the raw request parameters.
func (c *Config) RequestParams() domain.RequestParams {
	port := c.Cleanup.Port
	count := c.Cleanup.UnitCount
	return domain.RequestParams{
		Host:         c.Cleanup.Host,
		Port:         &port,
		AgeThreshold: &count,
		AgeUnit:      c.Cleanup.TimeUnit,
		IndexPrefix:  c.Cleanup.IndexPrefix,
		Strict:       c.Cleanup.Strict,
		DryRun:       c.Cleanup.DryRun,
	}
}

func (c *Config) EnabledReporters() []string {
	var enabled []string
	if c.Reports.Local.Enabled {
		enabled = append(enabled, "local")
	}
	if c.Reports.S3.Enabled {
		enabled = append(enabled, "s3")
	}
	if c.Reports.Telegram.Enabled {
		enabled = append(enabled, "telegram")
	}
	return enabled
}
