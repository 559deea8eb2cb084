// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"
	// gate.timezone must resolve on images without zoneinfo.
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. NOTICE_SERVER_PORT.
const EnvPrefix = "NOTICE"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Skill    SkillConfig    `mapstructure:"skill"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Image    ImageConfig    `mapstructure:"image"`
	Gate     GateConfig     `mapstructure:"gate"`
	Job      JobConfig      `mapstructure:"job"`
	Callback CallbackConfig `mapstructure:"callback"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// SkillConfig sets where the platform posts skill requests.
type SkillConfig struct {
	Path string `mapstructure:"path"`
}

// UpstreamConfig configures the vision model API.
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ImageConfig bounds photo downloads.
type ImageConfig struct {
	MaxBytes     int           `mapstructure:"max_bytes"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// GateConfig tunes the upstream admission gate.
type GateConfig struct {
	MinInterval       time.Duration `mapstructure:"min_interval"`
	CooldownThreshold time.Duration `mapstructure:"cooldown_threshold"`
	DefaultWait       time.Duration `mapstructure:"default_wait"`
	Timezone          string        `mapstructure:"timezone"`
}

// JobConfig bounds a background job.
type JobConfig struct {
	Deadline time.Duration `mapstructure:"deadline"`
}

// CallbackConfig controls follow-up delivery.
type CallbackConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	TokenHeader string        `mapstructure:"token_header"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := v.BindEnv("upstream.api_key", EnvPrefix+"_UPSTREAM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind api key env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Upstream.APIKey = strings.TrimSpace(cfg.Upstream.APIKey)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("skill.path", "/kakao-skill")
	v.SetDefault("upstream.base_url", "https://api.openai.com/v1")
	v.SetDefault("upstream.model", "gpt-4o-mini")
	v.SetDefault("upstream.max_tokens", 700)
	v.SetDefault("upstream.timeout", "50s")
	v.SetDefault("image.max_bytes", 2621440)
	v.SetDefault("image.fetch_timeout", "10s")
	v.SetDefault("image.user_agent", "notice-summarizer/0.1")
	v.SetDefault("gate.min_interval", "30s")
	v.SetDefault("gate.cooldown_threshold", "1h")
	v.SetDefault("gate.default_wait", "30s")
	v.SetDefault("gate.timezone", "Asia/Seoul")
	v.SetDefault("job.deadline", "55s")
	v.SetDefault("callback.timeout", "10s")
	v.SetDefault("callback.token_header", "X-Callback-Token")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits. A missing API key
// is not an error: the webhook answers with a configuration message instead.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if !strings.HasPrefix(c.Skill.Path, "/") {
		return fmt.Errorf("skill.path must start with /")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url must be set")
	}
	if c.Image.MaxBytes <= 0 {
		return fmt.Errorf("image.max_bytes must be > 0")
	}
	if c.Job.Deadline <= 0 {
		return fmt.Errorf("job.deadline must be > 0")
	}
	if c.Image.FetchTimeout <= 0 || c.Image.FetchTimeout >= c.Job.Deadline {
		return fmt.Errorf("image.fetch_timeout must be > 0 and below job.deadline")
	}
	if c.Gate.MinInterval <= 0 {
		return fmt.Errorf("gate.min_interval must be > 0")
	}
	if c.Gate.CooldownThreshold <= 0 {
		return fmt.Errorf("gate.cooldown_threshold must be > 0")
	}
	if _, err := time.LoadLocation(c.Gate.Timezone); err != nil {
		return fmt.Errorf("gate.timezone: %w", err)
	}
	if c.Callback.Timeout <= 0 {
		return fmt.Errorf("callback.timeout must be > 0")
	}
	if strings.TrimSpace(c.Callback.TokenHeader) == "" {
		return fmt.Errorf("callback.token_header must be set")
	}
	return nil
}

// HasCredential reports whether an upstream API key was configured.
func (c Config) HasCredential() bool {
	return c.Upstream.APIKey != ""
}
