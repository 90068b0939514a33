package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/contactsapi/internal/flagx"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CONTACTS_DATABASE_DSN.
const EnvPrefix = "CONTACTS"

// loadDotenv copies variables from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func loadDotenv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

// parseFile overlays config with the file named by -c/-config (JSON, YAML or
// TOML, chosen by extension) and with CONTACTS_* environment variables.
// Environment variables win over the file.
func parseFile(config *Config) {
	if err := overlay(config, flagx.ConfigFileFlag()); err != nil {
		panic(err)
	}
}

func overlay(config *Config, path string) error {
	v := viper.New()

	// Current values act as defaults so that viper knows every key and
	// AutomaticEnv can resolve them.
	for key, value := range config.settings() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(config)
}

func (c *Config) settings() map[string]any {
	return map[string]any{
		"http_addr":           c.HTTPAddr,
		"grpc_addr":           c.GRPCAddr,
		"database_dsn":        c.DatabaseDSN,
		"secret_key":          c.SecretKey,
		"access_token_ttl":    c.AccessTokenValidityDuration,
		"user_cache_ttl":      c.UserCacheTTL,
		"redis_addr":          c.RedisAddr,
		"redis_password":      c.RedisPassword,
		"redis_db":            c.RedisDB,
		"rate_limit_requests": c.RateLimitRequests,
		"rate_limit_window":   c.RateLimitWindow,
		"rate_limit_backend":  c.RateLimitBackend,
		"smtp_host":           c.SMTPHost,
		"smtp_port":           c.SMTPPort,
		"smtp_username":       c.SMTPUsername,
		"smtp_password":       c.SMTPPassword,
		"smtp_from":           c.SMTPFrom,
		"smtp_from_name":      c.SMTPFromName,
		"smtp_ssl":            c.SMTPSSL,
		"public_base_url":     c.PublicBaseURL,
		"s3_root_user":        c.S3RootUser,
		"s3_root_password":    c.S3RootPassword,
		"s3_bucket":           c.S3Bucket,
		"s3_region":           c.S3Region,
		"s3_base_endpoint":    c.S3BaseEndpoint,
		"s3_public_url":       c.S3PublicURL,
		"cors_origins":        c.CORSOrigins,
		"log_backend":         c.LogBackend,
		"log_level":           c.LogLevel,
	}
}
