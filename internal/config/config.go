package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/wms-platform/audit-service/pkg/kafka"
	"github.com/wms-platform/audit-service/pkg/mongodb"
	"github.com/wms-platform/audit-service/pkg/tracing"
)

// ServiceName identifies the service in logs, metrics, traces and event sources
const ServiceName = "audit-service"

// ErrJWTSecretRequired is returned when no signing secret is configured
var ErrJWTSecretRequired = errors.New("JWT_SECRET is required")

// Config holds application configuration
type Config struct {
	ServerAddr  string
	Environment string
	Version     string
	LogLevel    string

	MongoDB *mongodb.Config
	Kafka   *kafka.Config
	Tracing *tracing.Config
	Redis   RedisConfig
	JWT     JWTConfig
	SMTP    SMTPConfig
	Twilio  TwilioConfig

	BcryptCost         int
	PhoneDefaultRegion string
	LoginRateLimit     string
	CORSAllowedOrigins []string
}

// RedisConfig configures the lookup cache, upload lock and rate limit store. Empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether Redis is configured
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// JWTConfig configures token signing
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// SMTPConfig configures email notifications
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether email can be sent
func (c SMTPConfig) Enabled() bool { return c.Host != "" && c.From != "" }

// TwilioConfig configures WhatsApp notifications
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
}

// Enabled reports whether WhatsApp messages can be sent
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.WhatsAppFrom != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("environment", "development")
	v.SetDefault("version", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("mongodb_uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb_database", "odin_audit")
	v.SetDefault("jwt_ttl", "12h")
	v.SetDefault("bcrypt_cost", 10)
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_cache_ttl", "10m")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("phone_default_region", "IN")
	v.SetDefault("login_rate_limit", "10-M")
	v.SetDefault("otel_sample_rate", 1.0)
}

// Load reads .env files when present, then the environment, then the optional file named by AUDIT_CONFIG_FILE.
// Environment variables win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path := v.GetString("audit_config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		ServerAddr:  v.GetString("server_addr"),
		Environment: v.GetString("environment"),
		Version:     v.GetString("version"),
		LogLevel:    v.GetString("log_level"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
			CacheTTL: v.GetDuration("redis_cache_ttl"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt_secret"),
			TTL:    v.GetDuration("jwt_ttl"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp_host"),
			Port:     v.GetInt("smtp_port"),
			User:     v.GetString("smtp_user"),
			Password: v.GetString("smtp_pass"),
			From:     v.GetString("mail_from"),
		},
		Twilio: TwilioConfig{
			AccountSID:   v.GetString("twilio_account_sid"),
			AuthToken:    v.GetString("twilio_auth_token"),
			WhatsAppFrom: v.GetString("twilio_whatsapp_from"),
		},
		BcryptCost:         v.GetInt("bcrypt_cost"),
		PhoneDefaultRegion: strings.ToUpper(v.GetString("phone_default_region")),
		LoginRateLimit:     v.GetString("login_rate_limit"),
		CORSAllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
	}

	mongoCfg := mongodb.DefaultConfig()
	mongoCfg.URI = v.GetString("mongodb_uri")
	mongoCfg.Database = v.GetString("mongodb_database")
	mongoCfg.Username = v.GetString("mongodb_username")
	mongoCfg.Password = v.GetString("mongodb_password")
	mongoCfg.AuthDB = v.GetString("mongodb_auth_db")
	cfg.MongoDB = mongoCfg

	if brokers := kafka.ParseBrokers(v.GetString("kafka_brokers")); len(brokers) > 0 {
		cfg.Kafka = kafka.DefaultConfig(brokers)
		cfg.Kafka.ClientID = ServiceName
	}

	cfg.Tracing = &tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   v.GetString("otel_exporter_otlp_endpoint"),
		SampleRate:     v.GetFloat64("otel_sample_rate"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return ErrJWTSecretRequired
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWT.TTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
