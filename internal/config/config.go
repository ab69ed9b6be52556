package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log_level"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	Secret         string        `mapstructure:"secret"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	Retention      time.Duration `mapstructure:"retention"`

	Report ReportConfig `mapstructure:"report"`
	Notify NotifyConfig `mapstructure:"notify"`
	Whapi  WhapiConfig  `mapstructure:"whapi"`
	Twilio TwilioConfig `mapstructure:"twilio"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

type ReportConfig struct {
	Recipient string `mapstructure:"recipient"`
	Timezone  string `mapstructure:"timezone"`
}

type NotifyConfig struct {
	// Provider is one of whapi, twilio or log.
	Provider string `mapstructure:"provider"`
}

type WhapiConfig struct {
	Token string `mapstructure:"token"`
	URL   string `mapstructure:"url"`
}

type TwilioConfig struct {
	AccountSID   string        `mapstructure:"account_sid"`
	AuthToken    string        `mapstructure:"auth_token"`
	APIKeySID    string        `mapstructure:"api_key_sid"`
	APIKeySecret string        `mapstructure:"api_key_secret"`
	WhatsAppFrom string        `mapstructure:"whatsapp_from"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	ReportKey string `mapstructure:"report_key"`
	KeepLast  int64  `mapstructure:"keep_last"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("sweep_interval", "1h")
	v.SetDefault("retention", "24h")

	v.SetDefault("report.recipient", "")
	v.SetDefault("report.timezone", "America/Bogota")
	v.SetDefault("notify.provider", "whapi")
	v.SetDefault("whapi.token", "")
	v.SetDefault("whapi.url", "https://gate.whapi.cloud/messages/text")
	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.api_key_sid", "")
	v.SetDefault("twilio.api_key_secret", "")
	v.SetDefault("twilio.whatsapp_from", "")
	v.SetDefault("twilio.token_ttl", "4h")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.report_key", "televisit:reports")
	v.SetDefault("redis.keep_last", 500)
}

// Load reads config/config.<CONFIG_ENV>.yaml and lets environment variables
// override any key, e.g. TWILIO_AUTH_TOKEN for twilio.auth_token.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("notify", cfg.Notify.Provider).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Notify.Provider {
	case "whapi", "twilio", "log":
	default:
		return fmt.Errorf("invalid notify.provider %q", c.Notify.Provider)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PingPeriod <= 0 {
		return fmt.Errorf("invalid ping_period %s", c.PingPeriod)
	}
	return nil
}

// Location resolves the report time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("module", "config").Str("timezone", c.Report.Timezone).Msg("unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}
