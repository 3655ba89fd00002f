package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	PAS       PASConfig       `yaml:"pas" mapstructure:"pas"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// PASConfig holds catalog service credentials and endpoints.
type PASConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string  `yaml:"client_secret" mapstructure:"client_secret"`
	AuthURL      string  `yaml:"auth_url" mapstructure:"auth_url"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Timeout returns the request timeout as a duration.
func (c PASConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// BatchConfig configures batch resolution.
type BatchConfig struct {
	Concurrency    int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxMatches     int `yaml:"max_matches" mapstructure:"max_matches"`
	RetryAttempts  int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelaySecs int `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
}

// RetryDelay returns the pause between attempts as a duration.
func (c BatchConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings for AI-assisted
// normalization.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// IngestConfig configures source loading.
type IngestConfig struct {
	// Encoding overrides CSV charset detection (any WHATWG label).
	Encoding         string `yaml:"encoding" mapstructure:"encoding"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	FetchRetries     int    `yaml:"fetch_retries" mapstructure:"fetch_retries"`
}

// FetchTimeout returns the remote fetch timeout as a duration.
func (c IngestConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// ExportConfig names the DDP project and catalog for EDM XML exports.
type ExportConfig struct {
	Project string `yaml:"project" mapstructure:"project"`
	Catalog string `yaml:"catalog" mapstructure:"catalog"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PARTMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credentials default to empty so the keys are visible to
	// Unmarshal when they arrive via environment only.
	v.SetDefault("pas.client_id", "")
	v.SetDefault("pas.client_secret", "")
	v.SetDefault("pas.auth_url", "https://samauth.us-east-1.sws.siemens.com/token")
	v.SetDefault("pas.base_url", "https://api.pas.partquest.com")
	v.SetDefault("pas.timeout_secs", 30)
	v.SetDefault("pas.rate_limit", 10)
	v.SetDefault("batch.concurrency", 30)
	v.SetDefault("batch.max_matches", 10)
	v.SetDefault("batch.retry_attempts", 3)
	v.SetDefault("batch.retry_delay_secs", 3)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("ingest.encoding", "")
	v.SetDefault("ingest.fetch_timeout_secs", 30)
	v.SetDefault("ingest.fetch_retries", 3)
	v.SetDefault("export.project", "VarTrainingLab")
	v.SetDefault("export.catalog", "VV")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields the named command depends on. Catalog
// credentials are only demanded by commands that call the service.
func (c *Config) Validate(mode string) error {
	var problems []string
	switch mode {
	case "resolve", "batch":
		if c.PAS.ClientID == "" {
			problems = append(problems, "pas.client_id is required (set PARTMATCH_PAS_CLIENT_ID)")
		}
		if c.PAS.ClientSecret == "" {
			problems = append(problems, "pas.client_secret is required (set PARTMATCH_PAS_CLIENT_SECRET)")
		}
		if mode == "batch" {
			if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 100 {
				problems = append(problems, "batch.concurrency must be between 1 and 100")
			}
			if c.Batch.RetryAttempts < 1 {
				problems = append(problems, "batch.retry_attempts must be >= 1")
			}
		}
	case "normalize", "combine", "export":
		// File-only commands; flag handling covers their inputs.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
