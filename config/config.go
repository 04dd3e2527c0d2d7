// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath         = pflag.String("config", ".", "Directory containing config.toml")
	validLogLevels     = []string{"debug", "info", "warn", "error", "fatal"}
	validDatabases     = []string{"sqlite", "postgres"}
	defaultUploadTypes = []string{"image/png", "image/jpeg", "image/webp"}

	// Validate runs before the logger exists, warnings go straight here
	warnOut io.Writer = os.Stdout
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	// A missing .env is fine, everything can come from the real environment
	_ = godotenv.Load()

	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	bindEnvs()
	SetDefaults()

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if err := Validate(); err != nil {
		return err
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}

func bindEnvs() {
	v.AutomaticEnv()

	v.BindEnv("app.log_level", "app_log_level")
	v.BindEnv("app.public_url", "app_public_url")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.cors", "host_cors")
	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")
	v.BindEnv("host.ssl.certificate_path", "host_ssl_certificate_path")
	v.BindEnv("host.ssl.certificate_key_path", "host_ssl_certificate_key_path")

	v.BindEnv("db.type", "db_type")
	v.BindEnv("db.dsn", "db_dsn", "database_url")

	v.BindEnv("jwt.secret", "jwt_secret")
	v.BindEnv("jwt.ttl", "jwt_ttl")

	v.BindEnv("coins.initial", "coins_initial")

	v.BindEnv("reset.ttl", "reset_ttl")
	v.BindEnv("reset.cooldown", "reset_cooldown")
	v.BindEnv("reset.hide_unknown_email", "reset_hide_unknown_email")
	v.BindEnv("reset.cleanup_interval", "reset_cleanup_interval")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.username", "mail_username")
	v.BindEnv("mail.api_key", "mail_api_key", "resend_api_key")
	v.BindEnv("mail.sender_address", "mail_sender_address")
	v.BindEnv("mail.timeout", "mail_timeout")

	v.BindEnv("gateway.base_url", "gateway_base_url")
	v.BindEnv("gateway.timeout", "gateway_timeout")
	v.BindEnv("gateway.workers", "gateway_workers")
	v.BindEnv("gateway.max_jobs", "gateway_max_jobs")

	v.BindEnv("upload.max_size", "upload_max_size")
	v.BindEnv("upload.allowed_types", "upload_allowed_types")

	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("cloudflare.turnstile.enabled", "cloudflare_turnstile_enabled")
	v.BindEnv("cloudflare.turnstile.secret_token", "cloudflare_turnstile_secret_token")

	v.BindEnv("storage.enabled", "storage_enabled")
	v.BindEnv("storage.endpoint", "storage_endpoint")
	v.BindEnv("storage.region", "storage_region")
	v.BindEnv("storage.bucket", "storage_bucket")
	v.BindEnv("storage.access_key_id", "storage_access_key_id")
	v.BindEnv("storage.secret_access_key", "storage_secret_access_key")
}

func SetDefaults() {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.public_url", "http://localhost:3000")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", []string{"http://localhost:3000"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.type", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("jwt.ttl", "720h")

	v.SetDefault("coins.initial", 5)

	v.SetDefault("reset.ttl", "1h")
	v.SetDefault("reset.cooldown", "1m")
	v.SetDefault("reset.hide_unknown_email", false)
	v.SetDefault("reset.cleanup_interval", "24h")

	v.SetDefault("mail.host", "smtp.resend.com")
	v.SetDefault("mail.port", 465)
	v.SetDefault("mail.username", "resend")
	v.SetDefault("mail.timeout", "10s")

	v.SetDefault("gateway.timeout", "60s")
	v.SetDefault("gateway.workers", 4)
	v.SetDefault("gateway.max_jobs", 16)

	v.SetDefault("upload.max_size", 10)
	v.SetDefault("upload.allowed_types", defaultUploadTypes)

	v.SetDefault("security.rate_limit", 10)

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.region", "auto")
}

// Validate checks the values currently loaded into viper
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if _, err := url.ParseRequestURI(v.GetString("app.public_url")); err != nil {
		return errors.New("app.public_url must be an absolute URL")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	// cors refuses a config that allows no origin at all
	if len(v.GetStringSlice("host.cors")) == 0 {
		return errors.New("host.cors needs at least one origin")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if !slices.Contains(validDatabases, v.GetString("db.type")) {
		return errors.New("invalid database type provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("db.dsn can't be empty")
	}

	if v.GetString("jwt.secret") == "" {
		return errors.New("jwt.secret can't be empty")
	}

	if v.GetDuration("jwt.ttl") <= 0 {
		return errors.New("jwt.ttl must be bigger than 0")
	}

	if v.GetInt("coins.initial") < 0 {
		return errors.New("coins.initial can't be negative")
	}

	if v.GetDuration("reset.ttl") <= 0 {
		return errors.New("reset.ttl must be bigger than 0")
	}

	if v.GetDuration("reset.cleanup_interval") <= 0 {
		return errors.New("reset.cleanup_interval must be bigger than 0")
	}

	if v.GetString("mail.sender_address") == "" {
		return errors.New("mail.sender_address can't be empty")
	}

	if v.GetString("mail.api_key") == "" {
		fmt.Fprintln(warnOut, "[WARNING]: No mail.api_key specified, password reset emails will fail to send")
	}

	if _, err := url.ParseRequestURI(v.GetString("gateway.base_url")); err != nil {
		return errors.New("gateway.base_url must be an absolute URL")
	}

	if v.GetDuration("gateway.timeout") <= 0 {
		return errors.New("gateway.timeout must be bigger than 0")
	}

	if v.GetInt("gateway.workers") <= 0 {
		return errors.New("gateway.workers must be bigger than 0")
	}

	if v.GetInt("gateway.max_jobs") <= 0 {
		return errors.New("gateway.max_jobs must be bigger than 0")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if len(v.GetStringSlice("upload.allowed_types")) == 0 {
		return errors.New("upload.allowed_types can't be empty")
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Fprintln(warnOut, "[WARNING]: Cloudflare's turnstile is disabled. Sign up and password reset won't be guarded against bots")
	} else if v.GetString("cloudflare.turnstile.secret_token") == "" {
		return errors.New("turnstile secret token is missing")
	}

	if v.GetBool("storage.enabled") {
		if v.GetString("storage.bucket") == "" {
			return errors.New("bucket can't be empty")
		}
		if v.GetString("storage.access_key_id") == "" {
			return errors.New("access key id can't be empty")
		}
		if v.GetString("storage.secret_access_key") == "" {
			return errors.New("secret access key can't be empty")
		}
	}

	return nil
}
