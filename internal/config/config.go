// Package config handles application configuration management using Viper
package config

import (
	"errors"

	"github.com/spf13/viper"
)

// Constants for configuration
const (
	DefaultStoragePath = "./factorlab.db"
	DefaultLogLevel    = "info"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Binance     BinanceConfig
	Telegram    TelegramConfig
	StoragePath string
	LogLevel    string
	LogJSON     bool
}

// BinanceConfig holds Binance exchange configuration
type BinanceConfig struct {
	APIKey    string
	SecretKey string
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled bool
	Token   string
	UserID  int
}

// LoadAppConfig loads application configuration using Viper. Values come
// from the environment, with an optional factorlab.yml in the working
// directory filling in anything not set there.
func LoadAppConfig() (*AppConfig, error) {
	viper.SetConfigName("factorlab")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	viper.AutomaticEnv()

	viper.SetDefault("STORAGE_PATH", DefaultStoragePath)
	viper.SetDefault("LOG_LEVEL", DefaultLogLevel)
	viper.SetDefault("LOG_JSON", false)
	viper.SetDefault("TELEGRAM_ENABLED", false)

	config := &AppConfig{
		Binance: BinanceConfig{
			APIKey:    viper.GetString("BINANCE_API_KEY"),
			SecretKey: viper.GetString("BINANCE_SECRET_KEY"),
		},
		Telegram: TelegramConfig{
			Enabled: viper.GetBool("TELEGRAM_ENABLED"),
			Token:   viper.GetString("TELEGRAM_TOKEN"),
			UserID:  viper.GetInt("TELEGRAM_USER"),
		},
		StoragePath: viper.GetString("STORAGE_PATH"),
		LogLevel:    viper.GetString("LOG_LEVEL"),
		LogJSON:     viper.GetBool("LOG_JSON"),
	}

	return config, nil
}
