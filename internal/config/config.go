package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all service configuration. It is constructed once at startup
// and injected into the components that need it; nothing reads the
// environment after Load returns.
type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	PostgresDSN    string        `env:"POSTGRES_DSN,required"`
	MongoURI       string        `env:"MONGO_URI,required"`
	MongoDB        string        `env:"MONGO_DB" envDefault:"taskboard"`
	JWTSecret      string        `env:"JWT_SECRET,required"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:5173,http://localhost:3000" envSeparator:","`
}

// Load reads an optional .env file, then parses configuration from the
// environment. Missing required values fail startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
