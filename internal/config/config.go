package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Engine     Engine     `mapstructure:"engine"`
	MarketData MarketData `mapstructure:"market_data"`
	Logger     Logger     `mapstructure:"logger"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
}

// Engine holds the configuration for the live trading engine.
type Engine struct {
	TickIntervalSeconds int     `mapstructure:"tick_interval_seconds"`
	TotalCapital        float64 `mapstructure:"total_capital"`
	ActivePreset        string  `mapstructure:"active_preset"`
	DataDir             string  `mapstructure:"data_dir"`
}

// MarketData holds the configuration for the quote and history client.
type MarketData struct {
	ChartBaseURL    string  `mapstructure:"chart_base_url"`
	ScreenerBaseURL string  `mapstructure:"screener_base_url"`
	ScreenerCount   int     `mapstructure:"screener_count"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the HTTP API server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the trade archive database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("engine.tick_interval_seconds", 60)
	viper.SetDefault("engine.total_capital", 10000)
	viper.SetDefault("engine.active_preset", "S1")
	viper.SetDefault("engine.data_dir", "./data")
	viper.SetDefault("market_data.rate_limit", 5) // requests per second
	viper.SetDefault("market_data.rate_limit_burst", 5)
	viper.SetDefault("market_data.screener_count", 250)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("database.dsn", "trades.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
