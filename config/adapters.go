package config

import (
	"os"

	"perfect-slate/database"
	"perfect-slate/logging"
	"perfect-slate/models"
	"perfect-slate/services"

	"github.com/redis/go-redis/v9"
)

// ToDatabaseConfig converts Config to database.Config
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Username: c.Database.Username,
		Password: c.Database.Password,
		Database: c.Database.Database,
		Timeout:  c.Database.Timeout,
	}
}

// ToLoggingConfig converts Config to logging.Config
func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:       c.Logging.Level,
		Output:      os.Stdout,
		Prefix:      c.Logging.Prefix,
		EnableColor: c.Logging.EnableColor && !c.Logging.JSON,
		JSON:        c.Logging.JSON,
	}
}

// ToRedisOptions converts Config to go-redis client options
func (c *Config) ToRedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// ToOddsAPIConfig converts Config to services.OddsAPIConfig
func (c *Config) ToOddsAPIConfig() services.OddsAPIConfig {
	return services.OddsAPIConfig{
		BaseURL:     c.OddsAPI.BaseURL,
		APIKey:      c.OddsAPI.APIKey,
		Regions:     c.OddsAPI.Regions,
		Timeout:     c.OddsAPI.Timeout,
		MaxAttempts: c.OddsAPI.MaxAttempts,
		Backoff:     c.OddsAPI.Backoff,
	}
}

// ToBackupConfig converts Config to services.BackupConfig
func (c *Config) ToBackupConfig() services.BackupConfig {
	return services.BackupConfig{
		Dir:           c.Backup.Dir,
		RetentionDays: c.Backup.RetentionDays,
	}
}

// EnabledSports returns the configured sports. Validate has already rejected unknown ones.
func (c *Config) EnabledSports() []models.Sport {
	sports := make([]models.Sport, 0, len(c.App.Sports))
	for _, s := range c.App.Sports {
		sports = append(sports, models.Sport(s))
	}
	return sports
}
