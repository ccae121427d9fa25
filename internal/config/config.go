package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DBURL              string `mapstructure:"DB_URL"`
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	MQTTBroker         string `mapstructure:"MQTT_BROKER"`
	MQTTClientID       string `mapstructure:"MQTT_CLIENT_ID"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	LogFormat          string `mapstructure:"LOG_FORMAT"`
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	HTTPAddr           string `mapstructure:"HTTP_ADDR"`
	EmulatorIntervalMs int    `mapstructure:"EMULATOR_INTERVAL_MS"`
	EmulatorTimezone   string `mapstructure:"EMULATOR_TIMEZONE"`
	EmulatorAutostart  bool   `mapstructure:"EMULATOR_AUTOSTART"`
}

// LoadConfig reads configuration from .env or env vars
func LoadConfig() (*Config, error) {
	// .env is optional; env vars win either way
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("EMULATOR_INTERVAL_MS", 3600000)
	viper.SetDefault("EMULATOR_TIMEZONE", "Europe/Kiev")
	viper.SetDefault("EMULATOR_AUTOSTART", true)

	cfg := &Config{
		DBURL:              viper.GetString("DB_URL"),
		RedisAddr:          viper.GetString("REDIS_ADDR"),
		MQTTBroker:         viper.GetString("MQTT_BROKER"),
		MQTTClientID:       viper.GetString("MQTT_CLIENT_ID"),
		LogLevel:           viper.GetString("LOG_LEVEL"),
		LogFormat:          viper.GetString("LOG_FORMAT"),
		JWTSecret:          viper.GetString("JWT_SECRET"),
		HTTPAddr:           viper.GetString("HTTP_ADDR"),
		EmulatorIntervalMs: viper.GetInt("EMULATOR_INTERVAL_MS"),
		EmulatorTimezone:   viper.GetString("EMULATOR_TIMEZONE"),
		EmulatorAutostart:  viper.GetBool("EMULATOR_AUTOSTART"),
	}
	return cfg, nil
}
