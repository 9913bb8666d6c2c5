package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds the environment layer: every field falls back to its default
// tag when the variable is unset. Command-line flags override it later.
type Config struct {
	InputFile   string `envconfig:"INPUT_FILE" default:"usernames.txt"`
	OutputFile  string `envconfig:"OUTPUT_FILE" default:"hits.txt"`
	Concurrency int    `envconfig:"CONCURRENCY" default:"50"`
	Retries     int    `envconfig:"RETRIES" default:"3"`
	// Timeout is the per-request timeout in seconds.
	Timeout int `envconfig:"TIMEOUT" default:"30"`

	OxylabsUsername string `envconfig:"OXYLABS_USERNAME"`
	OxylabsPassword string `envconfig:"OXYLABS_PASSWORD"`
	OxylabsEndpoint string `envconfig:"OXYLABS_ENDPOINT" default:"https://realtime.oxylabs.io/v1/queries"`

	URLTemplate string  `envconfig:"URL_TEMPLATE" default:"https://www.instagram.com/{}/"`
	ProxyURL    string  `envconfig:"PROXY_URL"`
	RateLimit   float64 `envconfig:"RATE_LIMIT" default:"0"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
	LogFile  string `envconfig:"LOG_FILE"`
}

// Load seeds the environment from envFile when it exists (variables already
// set win) and decodes it into a Config.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	return cfg, nil
}
