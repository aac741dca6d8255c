package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"perfect-slate/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Redis draft store configuration
	Redis RedisConfig `json:"redis"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Authentication configuration
	Auth AuthConfig `json:"auth"`

	// The Odds API configuration
	OddsAPI OddsAPIConfig `json:"odds_api"`

	// Application configuration
	App AppConfig `json:"app"`

	// Scheduled ingestion
	Scheduler SchedulerConfig `json:"scheduler"`

	// Database backups
	Backup BackupConfig `json:"backup"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `json:"port"`
	Host            string        `json:"host"`
	UseTLS          bool          `json:"use_tls"`
	BehindProxy     bool          `json:"behind_proxy"`
	CertFile        string        `json:"cert_file"`
	KeyFile         string        `json:"key_file"`
	Environment     string        `json:"environment"`
	AllowedOrigins  []string      `json:"allowed_origins"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string        `json:"host"`
	Port          string        `json:"port"`
	Username      string        `json:"username"`
	Password      string        `json:"password"`
	Database      string        `json:"database"`
	Timeout       time.Duration `json:"timeout"`
	ChangeStreams bool          `json:"change_streams"`
}

// RedisConfig holds the draft store connection. Drafts fall back to memory when disabled.
type RedisConfig struct {
	Enabled  bool          `json:"enabled"`
	Addr     string        `json:"addr"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	DraftTTL time.Duration `json:"draft_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Prefix      string `json:"prefix"`
	EnableColor bool   `json:"enable_color"`
	JSON        bool   `json:"json"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret   string        `json:"jwt_secret"`
	TokenExpiry time.Duration `json:"token_expiry"`
	AdminEmails []string      `json:"admin_emails"`
}

// OddsAPIConfig holds The Odds API client configuration
type OddsAPIConfig struct {
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"api_key"`
	Regions     string        `json:"regions"`
	Timeout     time.Duration `json:"timeout"`
	MaxAttempts int           `json:"max_attempts"`
	Backoff     time.Duration `json:"backoff"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	IsDevelopment bool     `json:"is_development"`
	Sports        []string `json:"sports"`
}

// SchedulerConfig holds cron specs for ingestion jobs (seconds field included)
type SchedulerConfig struct {
	Enabled    bool   `json:"enabled"`
	OddsSpec   string `json:"odds_spec"`
	ScoresSpec string `json:"scores_spec"`
}

// BackupConfig holds the backup directory, schedule and retention
type BackupConfig struct {
	Dir           string `json:"dir"`
	Spec          string `json:"spec"`
	RetentionDays int    `json:"retention_days"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("USE_TLS", false)
	v.SetDefault("BEHIND_PROXY", false)
	v.SetDefault("TLS_CERT_FILE", "server.crt")
	v.SetDefault("TLS_KEY_FILE", "server.key")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "27017")
	v.SetDefault("DB_USERNAME", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "perfect_slate")
	v.SetDefault("DB_TIMEOUT", "10s")
	v.SetDefault("DB_CHANGE_STREAMS", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DRAFT_TTL", "48h")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PREFIX", "perfect-slate")
	v.SetDefault("LOG_COLOR", true)
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRY", "24h")
	v.SetDefault("ADMIN_EMAILS", "")

	v.SetDefault("ODDS_API_BASE_URL", "https://api.the-odds-api.com")
	v.SetDefault("ODDS_API_KEY", "")
	v.SetDefault("ODDS_API_REGIONS", "us")
	v.SetDefault("ODDS_API_TIMEOUT", "10s")
	v.SetDefault("ODDS_API_MAX_ATTEMPTS", 3)
	v.SetDefault("ODDS_API_BACKOFF", "500ms")

	v.SetDefault("SPORTS", "MLB")

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("ODDS_CRON", "0 0 */1 * * *")
	v.SetDefault("SCORES_CRON", "0 */5 * * * *")

	v.SetDefault("BACKUP_DIR", "backups")
	v.SetDefault("BACKUP_CRON", "")
	v.SetDefault("BACKUP_RETENTION_DAYS", 14)
	return v
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logging.Debugf("Could not load .env file: %v", err)
	}

	config := fromViper(newViper())
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func fromViper(v *viper.Viper) *Config {
	environment := v.GetString("ENVIRONMENT")
	isDevelopment := strings.ToLower(environment) == "development"

	return &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			Host:            v.GetString("SERVER_HOST"),
			UseTLS:          v.GetBool("USE_TLS"),
			BehindProxy:     v.GetBool("BEHIND_PROXY"),
			CertFile:        v.GetString("TLS_CERT_FILE"),
			KeyFile:         v.GetString("TLS_KEY_FILE"),
			Environment:     environment,
			AllowedOrigins:  splitList(v.GetString("ALLOWED_ORIGINS")),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:          v.GetString("DB_HOST"),
			Port:          v.GetString("DB_PORT"),
			Username:      v.GetString("DB_USERNAME"),
			Password:      v.GetString("DB_PASSWORD"),
			Database:      v.GetString("DB_NAME"),
			Timeout:       v.GetDuration("DB_TIMEOUT"),
			ChangeStreams: v.GetBool("DB_CHANGE_STREAMS"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			DraftTTL: v.GetDuration("DRAFT_TTL"),
		},
		Logging: LoggingConfig{
			Level:       v.GetString("LOG_LEVEL"),
			Prefix:      v.GetString("LOG_PREFIX"),
			EnableColor: v.GetBool("LOG_COLOR"),
			JSON:        strings.EqualFold(v.GetString("LOG_FORMAT"), "json"),
		},
		Auth: AuthConfig{
			JWTSecret:   v.GetString("JWT_SECRET"),
			TokenExpiry: v.GetDuration("JWT_EXPIRY"),
			AdminEmails: lowerAll(splitList(v.GetString("ADMIN_EMAILS"))),
		},
		OddsAPI: OddsAPIConfig{
			BaseURL:     strings.TrimRight(v.GetString("ODDS_API_BASE_URL"), "/"),
			APIKey:      v.GetString("ODDS_API_KEY"),
			Regions:     v.GetString("ODDS_API_REGIONS"),
			Timeout:     v.GetDuration("ODDS_API_TIMEOUT"),
			MaxAttempts: v.GetInt("ODDS_API_MAX_ATTEMPTS"),
			Backoff:     v.GetDuration("ODDS_API_BACKOFF"),
		},
		App: AppConfig{
			IsDevelopment: isDevelopment,
			Sports:        upperAll(splitList(v.GetString("SPORTS"))),
		},
		Scheduler: SchedulerConfig{
			Enabled:    v.GetBool("SCHEDULER_ENABLED"),
			OddsSpec:   v.GetString("ODDS_CRON"),
			ScoresSpec: v.GetString("SCORES_CRON"),
		},
		Backup: BackupConfig{
			Dir:           v.GetString("BACKUP_DIR"),
			Spec:          v.GetString("BACKUP_CRON"),
			RetentionDays: v.GetInt("BACKUP_RETENTION_DAYS"),
		},
	}
}

// Validate validates the configuration for required fields and sensible values
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.UseTLS && !c.Server.BehindProxy {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required when USE_TLS=true")
		}
		if _, err := os.Stat(c.Server.CertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", c.Server.CertFile)
		}
		if _, err := os.Stat(c.Server.KeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", c.Server.KeyFile)
		}
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("database port is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when REDIS_ENABLED=true")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.JWTSecret == defaultJWTSecret && !c.App.IsDevelopment {
		return fmt.Errorf("JWT secret must be changed in production")
	}
	if c.Auth.TokenExpiry <= 0 {
		return fmt.Errorf("JWT expiry must be positive, got: %s", c.Auth.TokenExpiry)
	}

	if c.OddsAPI.MaxAttempts < 1 {
		return fmt.Errorf("odds API max attempts must be at least 1, got: %d", c.OddsAPI.MaxAttempts)
	}

	if c.Backup.Spec != "" && c.Backup.Dir == "" {
		return fmt.Errorf("backup directory is required when BACKUP_CRON is set")
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup retention must not be negative, got: %d", c.Backup.RetentionDays)
	}

	if len(c.App.Sports) == 0 {
		return fmt.Errorf("at least one sport must be enabled")
	}
	for _, sport := range c.App.Sports {
		switch sport {
		case "NFL", "NCAAF", "MLB":
		default:
			return fmt.Errorf("unsupported sport: %s", sport)
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsAdmin reports whether the email belongs to an operator account.
func (c *Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.Auth.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

// LogConfiguration logs the current configuration (without sensitive data)
func (c *Config) LogConfiguration() {
	logging.Info("=== Application Configuration ===")
	logging.Infof("Server: %s (TLS: %t, Behind Proxy: %t, Environment: %s, Origins: %v)",
		c.GetServerAddress(), c.Server.UseTLS, c.Server.BehindProxy, c.Server.Environment, c.Server.AllowedOrigins)
	logging.Infof("Database: %s:%s/%s (Username: %s, Auth: %t, ChangeStreams: %t)",
		c.Database.Host, c.Database.Port, c.Database.Database,
		c.Database.Username, c.Database.Password != "", c.Database.ChangeStreams)
	logging.Infof("Redis: Enabled=%t, Addr=%s, DraftTTL=%s", c.Redis.Enabled, c.Redis.Addr, c.Redis.DraftTTL)
	logging.Infof("Logging: Level=%s, Prefix=%s, Color=%t, JSON=%t",
		c.Logging.Level, c.Logging.Prefix, c.Logging.EnableColor, c.Logging.JSON)
	logging.Infof("Auth: Expiry=%s, Admins=%d", c.Auth.TokenExpiry, len(c.Auth.AdminEmails))
	logging.Infof("Odds API: %s (Key set: %t, Regions: %s, Attempts: %d)",
		c.OddsAPI.BaseURL, c.OddsAPI.APIKey != "", c.OddsAPI.Regions, c.OddsAPI.MaxAttempts)
	logging.Infof("App: Development=%t, Sports=%v", c.App.IsDevelopment, c.App.Sports)
	logging.Infof("Scheduler: Enabled=%t, Odds=%q, Scores=%q",
		c.Scheduler.Enabled, c.Scheduler.OddsSpec, c.Scheduler.ScoresSpec)
	logging.Infof("Backup: Dir=%s, Schedule=%q, Retention=%dd", c.Backup.Dir, c.Backup.Spec, c.Backup.RetentionDays)
	logging.Info("================================")
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lowerAll(values []string) []string {
	for i := range values {
		values[i] = strings.ToLower(values[i])
	}
	return values
}

func upperAll(values []string) []string {
	for i := range values {
		values[i] = strings.ToUpper(values[i])
	}
	return values
}
