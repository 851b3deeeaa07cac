package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Security  SecurityConfig
	Azure     AzureConfig
	SMTP      SMTPConfig
	SendGrid  SendGridConfig
	Reminders RemindersConfig
	Clinic    ClinicConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// AuthConfig holds bearer-token verification settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// SecurityConfig holds at-rest protection settings
type SecurityConfig struct {
	EncryptionKey string // base64, 32 bytes; empty disables detail encryption
	BcryptCost    int
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	Storage StorageConfig
}

// StorageConfig holds Azure Blob Storage configuration
type StorageConfig struct {
	AccountName    string
	AccountKey     string
	PhotoContainer string
}

// Enabled reports whether blob storage credentials are present
func (s StorageConfig) Enabled() bool {
	return s.AccountName != "" && s.AccountKey != ""
}

// SMTPConfig holds outgoing mail settings. An empty host logs mail instead.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	StartTLS   bool
	AdminEmail string
}

// SendGridConfig selects the SendGrid API as mail transport. Sender and
// admin addresses are shared with SMTPConfig.
type SendGridConfig struct {
	APIKey string
}

// Mail transports in order of preference
const (
	MailTransportSendGrid = "sendgrid"
	MailTransportSMTP     = "smtp"
	MailTransportLog      = "log"
)

// MailTransport picks SendGrid when an API key is set, then SMTP when a
// host is set, and otherwise logs mail
func (c *Config) MailTransport() string {
	switch {
	case c.SendGrid.APIKey != "":
		return MailTransportSendGrid
	case c.SMTP.Host != "":
		return MailTransportSMTP
	}
	return MailTransportLog
}

// RemindersConfig tunes the reminder dispatcher
type RemindersConfig struct {
	Enabled    bool
	Interval   time.Duration
	Lead       time.Duration
	MaxRetries int
	BatchSize  int
	ClaimLease time.Duration
}

// ClinicConfig holds clinic-local settings
type ClinicConfig struct {
	Timezone string
}

// Location resolves the clinic time zone
func (c ClinicConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.allowedorigins", []string{"http://localhost:3000"})

	// Database defaults
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)
	v.SetDefault("database.automigrate", false)

	v.SetDefault("security.bcryptcost", 10)

	v.SetDefault("azure.storage.photocontainer", "therapist-photos")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.starttls", true)
	v.SetDefault("smtp.from", "MindCare <no-reply@mindcare.example>")

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.interval", time.Minute)
	v.SetDefault("reminders.lead", 24*time.Hour)
	v.SetDefault("reminders.maxretries", 3)
	v.SetDefault("reminders.batchsize", 50)
	v.SetDefault("reminders.claimlease", 5*time.Minute)

	v.SetDefault("clinic.timezone", "Asia/Taipei")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")
	v.BindEnv("server.allowedorigins", "CORS_ALLOWED_ORIGINS")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.automigrate", "DATABASE_AUTO_MIGRATE")

	// Auth
	v.BindEnv("auth.jwtsecret", "JWT_SECRET")
	v.BindEnv("auth.issuer", "JWT_ISSUER")

	// Security
	v.BindEnv("security.encryptionkey", "ENCRYPTION_KEY")
	v.BindEnv("security.bcryptcost", "BCRYPT_COST")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.photocontainer", "AZURE_STORAGE_PHOTO_CONTAINER")

	// SMTP
	v.BindEnv("smtp.host", "SMTP_HOST")
	v.BindEnv("smtp.port", "SMTP_PORT")
	v.BindEnv("smtp.username", "SMTP_USERNAME")
	v.BindEnv("smtp.password", "SMTP_PASSWORD")
	v.BindEnv("smtp.from", "SMTP_FROM")
	v.BindEnv("smtp.starttls", "SMTP_STARTTLS")
	v.BindEnv("smtp.adminemail", "ADMIN_EMAIL")

	// SendGrid
	v.BindEnv("sendgrid.apikey", "SENDGRID_API_KEY")

	// Reminders
	v.BindEnv("reminders.enabled", "REMINDERS_ENABLED")
	v.BindEnv("reminders.interval", "REMINDERS_INTERVAL")
	v.BindEnv("reminders.maxretries", "REMINDERS_MAX_RETRIES")

	v.BindEnv("clinic.timezone", "CLINIC_TIMEZONE")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtsecret is required")
	}

	if c.Environment() == "production" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwtsecret must be at least 32 characters in production")
	}

	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("security.bcryptcost must be between 4 and 31")
	}

	if (c.Azure.Storage.AccountName == "") != (c.Azure.Storage.AccountKey == "") {
		return fmt.Errorf("azure storage needs both account name and account key")
	}

	if c.MailTransport() != MailTransportLog && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required when a mail transport is configured")
	}

	if c.Reminders.Interval <= 0 {
		return fmt.Errorf("reminders.interval must be positive")
	}

	if _, err := c.Clinic.Location(); err != nil {
		return fmt.Errorf("clinic.timezone is invalid: %w", err)
	}

	return nil
}

// Environment returns the lower-cased deployment environment
func (c *Config) Environment() string {
	return strings.ToLower(c.Server.Environment)
}
