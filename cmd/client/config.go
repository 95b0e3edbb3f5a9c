package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr string `envconfig:"SERVER_ADDR" default:"http://localhost:8080"`
	Email      string `envconfig:"CLIENT_EMAIL"`
	Password   string `envconfig:"CLIENT_PASSWORD"`
	// CLIENT_COLOURS enables colorized output for better readability
	Colours      bool          `envconfig:"CLIENT_COLOURS" default:"true"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"WARN"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
