// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Blob drivers accepted by BLOB_DRIVER.
const (
	BlobDriverMemory = "memory"
	BlobDriverS3     = "s3"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr serves the form gateway, /healthz and /metrics. Empty disables the HTTP listener.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// OIDCIssuerURL enables ID-token login against this issuer when set.
	OIDCIssuerURL string `mapstructure:"OIDC_ISSUER_URL"`
	// OIDCClientID is the expected audience of ID tokens.
	OIDCClientID string `mapstructure:"OIDC_CLIENT_ID"`

	// KafkaBrokers is a comma-separated broker list. Empty disables event publishing.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ActivityKafkaTopic receives one message per audit entry.
	ActivityKafkaTopic string `mapstructure:"ACTIVITY_KAFKA_TOPIC"`
	// RevalidateKafkaTopic receives cache invalidation signals for the rendering tier.
	RevalidateKafkaTopic string `mapstructure:"REVALIDATE_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the activity worker (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the activity worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty installs no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// OTelSampleRatio is the share of root traces kept (OTEL_TRACES_SAMPLER_ARG); 1 keeps all.
	OTelSampleRatio float64 `mapstructure:"OTEL_TRACES_SAMPLER_ARG"`

	// BlobDriver selects the attachment store: "memory" or "s3".
	BlobDriver  string `mapstructure:"BLOB_DRIVER"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3PathStyle bool   `mapstructure:"S3_PATH_STYLE"`
	// S3AccessKeyID and S3SecretAccessKey are optional; empty uses the default AWS credential chain.
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	// MaxAttachmentBytes caps a single document attachment.
	MaxAttachmentBytes int64 `mapstructure:"MAX_ATTACHMENT_BYTES"`

	// RateLimitRPS and RateLimitBurst configure the per-client token bucket of the HTTP gateway.
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
	// CORSAllowedOrigins is a comma-separated origin list for the HTTP gateway.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// TrustedProxies is a comma-separated list of CIDRs or addresses whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty trusts only the connecting peer.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "prodmatic-auth")
	v.SetDefault("JWT_AUDIENCE", "prodmatic-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("OIDC_ISSUER_URL", "")
	v.SetDefault("OIDC_CLIENT_ID", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ACTIVITY_KAFKA_TOPIC", "prodmatic-activity")
	v.SetDefault("REVALIDATE_KAFKA_TOPIC", "prodmatic-revalidate")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "prodmatic-activity-worker")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_TRACES_SAMPLER_ARG", 1.0)
	v.SetDefault("BLOB_DRIVER", BlobDriverMemory)
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PATH_STYLE", false)
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("MAX_ATTACHMENT_BYTES", 10<<20)
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("TRUSTED_PROXIES", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	switch c.BlobDriver {
	case BlobDriverMemory:
	case BlobDriverS3:
		if c.S3Bucket == "" {
			return errors.New("config: S3_BUCKET must be set when BLOB_DRIVER=s3")
		}
	default:
		return errors.New("config: BLOB_DRIVER must be memory or s3")
	}
	if c.OIDCIssuerURL != "" && c.OIDCClientID == "" {
		return errors.New("config: OIDC_CLIENT_ID must be set when OIDC_ISSUER_URL is set")
	}
	if c.MaxAttachmentBytes <= 0 {
		return errors.New("config: MAX_ATTACHMENT_BYTES must be positive")
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return errors.New("config: OTEL_TRACES_SAMPLER_ARG must be between 0 and 1")
	}
	if _, err := parsePrefixes(c.TrustedProxies); err != nil {
		return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}
	return nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables activity and revalidation publishing.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// CORSOrigins returns the allowed CORS origins.
func (c *Config) CORSOrigins() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

// TrustedProxyPrefixes returns the networks of TrustedProxies. Load has already rejected
// malformed entries.
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	if c == nil {
		return nil
	}
	prefixes, _ := parsePrefixes(c.TrustedProxies)
	return prefixes
}

// parsePrefixes accepts CIDRs and bare addresses, the latter as single-host prefixes.
func parsePrefixes(s string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range splitList(s) {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// OIDCEnabled reports whether ID-token login is configured.
func (c *Config) OIDCEnabled() bool {
	return c != nil && c.OIDCIssuerURL != "" && c.OIDCClientID != ""
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
