package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Simulation Simulation `mapstructure:"simulation"`
	PriceFeed  PriceFeed  `mapstructure:"pricefeed"`
	Logger     Logger     `mapstructure:"logger"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
}

// Simulation holds the settlement simulation parameters.
type Simulation struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	ReferencePrice float64 `mapstructure:"reference_price"`
	TickInterval   int     `mapstructure:"tick_interval"` // seconds between dequeues
	ResolveDelay   int     `mapstructure:"resolve_delay"` // seconds from executed to final
	RevertChance   float64 `mapstructure:"revert_chance"` // soft finality revert probability
}

// PriceFeed holds the configuration for the reference price source.
type PriceFeed struct {
	Mode            string  `mapstructure:"mode"` // "simulated" or "rest"
	URL             string  `mapstructure:"url"`
	Symbol          string  `mapstructure:"symbol"`
	RefreshInterval int     `mapstructure:"refresh_interval"` // seconds, rest mode only
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
	CandleCount     int     `mapstructure:"candle_count"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the order journal.
type Database struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Defaults match the reference demo scenario.
	viper.SetDefault("simulation.initial_balance", 50000.0)
	viper.SetDefault("simulation.reference_price", 85.42)
	viper.SetDefault("simulation.tick_interval", 3)
	viper.SetDefault("simulation.resolve_delay", 2)
	viper.SetDefault("simulation.revert_chance", 0.5)
	viper.SetDefault("pricefeed.mode", "simulated")
	viper.SetDefault("pricefeed.refresh_interval", 30)
	viper.SetDefault("pricefeed.rate_limit", 20)      // requests per second
	viper.SetDefault("pricefeed.rate_limit_burst", 5) // burst size
	viper.SetDefault("pricefeed.candle_count", 30)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
