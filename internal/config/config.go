// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8080"
	DefaultJWTExpiresIn  = "24h"
	DefaultPGHost        = "127.0.0.1"
	DefaultPGPort        = 5432
	DefaultPGUser        = "postgres"
	DefaultPGDatabase    = "exchange"
	DefaultPGSSLMode     = "disable"
	DefaultIMAPPort      = 993
	DefaultIMAPFolder    = "INBOX"
	DefaultPollPattern   = "@hourly"
	DefaultSenderAddress = "support@theexchange-tod.com"
	DefaultVerifyURL     = "https://www.google.com/recaptcha/api/siteverify"
	DefaultMinScore      = 0.5
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Admin    AdminConfig    `toml:"admin"`
	Postgres PostgresConfig `toml:"postgres"`
	Mailbox  MailboxConfig  `toml:"mailbox"`
	Mailer   MailerConfig   `toml:"mailer"`
	BotCheck BotCheckConfig `toml:"botcheck"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AuthConfig holds JWT secret and token expiry (e.g. 24h).
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// AdminConfig holds the single operator account for the review UI.
type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// MailboxConfig holds the IMAP account polled by the importer.
// Auth selects "login" (default) or "plain" (SASL PLAIN).
type MailboxConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	TLS         bool   `toml:"tls"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	Auth        string `toml:"auth"`
	Folder      string `toml:"folder"`
	PollPattern string `toml:"poll_pattern"`
}

// MailerConfig selects the outbound email provider and its settings.
// Provider is "mailgun" or "smtp".
type MailerConfig struct {
	Provider string        `toml:"provider"`
	From     string        `toml:"from"`
	Mailgun  MailgunConfig `toml:"mailgun"`
	SMTP     SMTPConfig    `toml:"smtp"`
}

// MailgunConfig holds the Mailgun API credentials and sending domain.
type MailgunConfig struct {
	Domain string `toml:"domain"`
	APIKey string `toml:"api_key"`
	EU     bool   `toml:"eu"`
}

// SMTPConfig holds SMTP relay settings for the go-mail sender.
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	StartTLS bool   `toml:"starttls"`
}

// BotCheckConfig holds the token verification service settings for the
// public contact form. When Enabled is false every submission passes.
type BotCheckConfig struct {
	Enabled   bool    `toml:"enabled"`
	Secret    string  `toml:"secret"`
	VerifyURL string  `toml:"verify_url"`
	MinScore  float64 `toml:"min_score"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "change-your-password-here",
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Mailbox: MailboxConfig{
			Port:        DefaultIMAPPort,
			TLS:         true,
			Auth:        "login",
			Folder:      DefaultIMAPFolder,
			PollPattern: DefaultPollPattern,
		},
		Mailer: MailerConfig{
			Provider: "smtp",
			From:     DefaultSenderAddress,
			SMTP: SMTPConfig{
				Port: 587,
			},
		},
		BotCheck: BotCheckConfig{
			VerifyURL: DefaultVerifyURL,
			MinScore:  DefaultMinScore,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
