// Package config loads service configuration from config.yaml, .env, and
// environment variables, with env taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Mailbox    MailboxConfig    `mapstructure:"mailbox"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// MailboxConfig holds mailbox access configuration. IMAP is the default
// backend; the Gmail API backend is selected with use_gmail_api.
type MailboxConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Folder       string `mapstructure:"folder"`
	UseGmailAPI  bool   `mapstructure:"use_gmail_api"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
}

// MonitorConfig holds poll-cycle configuration
type MonitorConfig struct {
	DomainFilter         string        `mapstructure:"domain_filter"`
	PollIntervalSeconds  int           `mapstructure:"poll_interval_seconds"`
	ConfidentialityCheck bool          `mapstructure:"confidentiality_check"`
	ConfidentialKeywords string        `mapstructure:"confidential_keywords"`
	Autostart            bool          `mapstructure:"autostart"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	MaxBackoff           time.Duration `mapstructure:"max_backoff"`
}

// SummarizerConfig holds Gemini configuration. An empty api_key disables the
// external summarizer entirely; every summary then uses the local fallback.
type SummarizerConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// NotifierConfig holds Twilio WhatsApp configuration
type NotifierConfig struct {
	AccountSID      string        `mapstructure:"account_sid"`
	AuthToken       string        `mapstructure:"auth_token"`
	WhatsAppFrom    string        `mapstructure:"whatsapp_from"`
	RecipientNumber string        `mapstructure:"recipient_number"`
	ContentSid      string        `mapstructure:"content_sid"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from .env, config file, and environment
// variables
func LoadConfig() (*Config, error) {
	// .env is optional; values there become visible to the env bindings below.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "mail_digest.db")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("mailbox.host", "imap.gmail.com")
	viper.SetDefault("mailbox.port", 993)
	viper.SetDefault("mailbox.folder", "INBOX")
	viper.SetDefault("mailbox.use_gmail_api", false)

	viper.SetDefault("monitor.domain_filter", "@example.com")
	viper.SetDefault("monitor.poll_interval_seconds", 30)
	viper.SetDefault("monitor.confidentiality_check", true)
	viper.SetDefault("monitor.confidential_keywords",
		"confidential,internal,proprietary,classified,secret,password,api key,token,private,restricted")
	viper.SetDefault("monitor.autostart", true)
	viper.SetDefault("monitor.fetch_timeout", "60s")
	viper.SetDefault("monitor.max_backoff", "10m")

	viper.SetDefault("summarizer.model", "gemini-2.0-flash-exp")
	viper.SetDefault("summarizer.max_tokens", 300)
	viper.SetDefault("summarizer.timeout", "30s")

	viper.SetDefault("notifier.whatsapp_from", "whatsapp:+14155238886")
	viper.SetDefault("notifier.timeout", "30s")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.driver", "DB_DRIVER")
	viper.BindEnv("database.path", "DB_PATH")
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Mailbox
	viper.BindEnv("mailbox.host", "IMAP_HOST")
	viper.BindEnv("mailbox.port", "IMAP_PORT")
	viper.BindEnv("mailbox.username", "IMAP_USER")
	viper.BindEnv("mailbox.password", "IMAP_PASS")
	viper.BindEnv("mailbox.folder", "IMAP_FOLDER")
	viper.BindEnv("mailbox.use_gmail_api", "USE_GMAIL_API")
	viper.BindEnv("mailbox.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("mailbox.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("mailbox.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("mailbox.user_email", "GMAIL_USER_EMAIL")

	// Monitor
	viper.BindEnv("monitor.domain_filter", "DOMAIN_FILTER")
	viper.BindEnv("monitor.poll_interval_seconds", "POLL_SECONDS")
	viper.BindEnv("monitor.confidentiality_check", "ENABLE_CONFIDENTIALITY_CHECK")
	viper.BindEnv("monitor.confidential_keywords", "CONFIDENTIAL_KEYWORDS")
	viper.BindEnv("monitor.autostart", "MONITOR_AUTOSTART")
	viper.BindEnv("monitor.fetch_timeout", "MONITOR_FETCH_TIMEOUT")
	viper.BindEnv("monitor.max_backoff", "MONITOR_MAX_BACKOFF")

	// Summarizer
	viper.BindEnv("summarizer.api_key", "GEMINI_API_KEY")
	viper.BindEnv("summarizer.model", "GEMINI_MODEL")
	viper.BindEnv("summarizer.max_tokens", "GEMINI_MAX_TOKENS")
	viper.BindEnv("summarizer.timeout", "SUMMARIZER_TIMEOUT")

	// Notifier
	viper.BindEnv("notifier.account_sid", "TWILIO_ACCOUNT_SID")
	viper.BindEnv("notifier.auth_token", "TWILIO_AUTH_TOKEN")
	viper.BindEnv("notifier.whatsapp_from", "TWILIO_WHATSAPP_FROM")
	viper.BindEnv("notifier.recipient_number", "RECIPIENT_NUMBER")
	viper.BindEnv("notifier.content_sid", "CONTENT_SID")
	viper.BindEnv("notifier.timeout", "NOTIFIER_TIMEOUT")
}

// GetDSN returns the MySQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// PollInterval returns the poll interval as a duration
func (c *MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// KeywordList splits the comma-separated confidential keyword setting
func (c *MonitorConfig) KeywordList() []string {
	if c.ConfidentialKeywords == "" {
		return nil
	}
	return strings.Split(c.ConfidentialKeywords, ",")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "mysql":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required for mysql")
		}
	case "sqlite", "":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Mailbox.UseGmailAPI {
		if c.Mailbox.ClientID == "" || c.Mailbox.ClientSecret == "" || c.Mailbox.RefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required when using the Gmail API")
		}
	} else {
		if c.Mailbox.Username == "" || c.Mailbox.Password == "" {
			return fmt.Errorf("IMAP username and password are required")
		}
	}

	if c.Monitor.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}

	if c.Notifier.AccountSID == "" || c.Notifier.AuthToken == "" || c.Notifier.RecipientNumber == "" {
		return fmt.Errorf("Twilio account SID, auth token, and recipient number are required")
	}

	return nil
}
