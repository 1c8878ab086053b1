// Package config assembles the explicit configuration passed into the
// command processor. Defaults, an optional configs/config.yml, a .env file,
// and environment variables are merged; nothing is read from ambient
// globals after Load returns.
package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPort is the environment variable naming the default device port.
const EnvPort = "FNIRSI_PS"

// Config carries everything the CLI needs for one invocation.
type Config struct {
	Port         string
	Model        string
	LogLevel     string
	Delay        time.Duration
	ReadTimeout  time.Duration
	CheckRetries int
}

// Load merges defaults, configs/config.yml (when present), .env, and
// environment variables into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.SetDefault("port", "/dev/fnirsi-ps0")
	viper.SetDefault("model", "DC6006L")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("delay_ms", 500)
	viper.SetDefault("read_timeout_ms", 1500)
	viper.SetDefault("check_retries", 3)

	_ = viper.BindEnv("port", EnvPort)

	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		Port:         viper.GetString("port"),
		Model:        viper.GetString("model"),
		LogLevel:     viper.GetString("log_level"),
		Delay:        time.Duration(viper.GetInt("delay_ms")) * time.Millisecond,
		ReadTimeout:  time.Duration(viper.GetInt("read_timeout_ms")) * time.Millisecond,
		CheckRetries: viper.GetInt("check_retries"),
	}, nil
}
