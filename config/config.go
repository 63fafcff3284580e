package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env                  string  `mapstructure:"APP_ENV"`
	LogLevel             string  `mapstructure:"LOG_LEVEL"`
	MongoURI             string  `mapstructure:"MONGO_URI"`
	MongoDatabase        string  `mapstructure:"MONGO_DATABASE"`
	RedisAddr            string  `mapstructure:"REDIS_ADDR"`
	RedisPassword        string  `mapstructure:"REDIS_PASSWORD"`
	RedisDB              int     `mapstructure:"REDIS_DB"`
	SyncStream           string  `mapstructure:"SYNC_STREAM"`
	SyncGroup            string  `mapstructure:"SYNC_GROUP"`
	SyncMaxAttempts      int     `mapstructure:"SYNC_MAX_ATTEMPTS"`
	DedupWindowMinutes   int     `mapstructure:"DEDUP_WINDOW_MINUTES"`
	MaintenanceCron      string  `mapstructure:"MAINTENANCE_CRON"`
	EncryptionKey        string  `mapstructure:"ENCRYPTION_KEY"`
	EncryptionKeyID      string  `mapstructure:"ENCRYPTION_KEY_ID"`
	DefaultInvoiceAmount float64 `mapstructure:"DEFAULT_INVOICE_AMOUNT"`
}

var keys = []string{
	"APP_ENV", "LOG_LEVEL", "MONGO_URI", "MONGO_DATABASE", "REDIS_ADDR", "REDIS_PASSWORD",
	"REDIS_DB", "SYNC_STREAM", "SYNC_GROUP", "SYNC_MAX_ATTEMPTS", "DEDUP_WINDOW_MINUTES",
	"MAINTENANCE_CRON", "ENCRYPTION_KEY", "ENCRYPTION_KEY_ID", "DEFAULT_INVOICE_AMOUNT",
}

/*
* Load the .env file when present (missing file is not an error)
* Apply defaults and bind every key to the environment
* Validate the encryption key when one is configured
 */
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "practicehub")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SYNC_STREAM", "practicehub:initial-consultation-sync")
	v.SetDefault("SYNC_GROUP", "practicehub-sync")
	v.SetDefault("SYNC_MAX_ATTEMPTS", 5)
	v.SetDefault("DEDUP_WINDOW_MINUTES", 45)
	v.SetDefault("MAINTENANCE_CRON", "15 1 * * *")
	v.SetDefault("DEFAULT_INVOICE_AMOUNT", 60)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.EncryptionKey != "" {
		raw, err := hex.DecodeString(cfg.EncryptionKey)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters")
		}
		if cfg.EncryptionKeyID == "" {
			return nil, fmt.Errorf("ENCRYPTION_KEY_ID is required when ENCRYPTION_KEY is set")
		}
	}
	if cfg.DedupWindowMinutes <= 0 {
		return nil, fmt.Errorf("DEDUP_WINDOW_MINUTES must be positive")
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowMinutes) * time.Minute
}

// EncryptionKeyBytes returns nil when field encryption is disabled.
func (c *Config) EncryptionKeyBytes() []byte {
	if c.EncryptionKey == "" {
		return nil
	}
	raw, _ := hex.DecodeString(c.EncryptionKey)
	return raw
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
