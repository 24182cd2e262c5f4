// Package config loads server settings from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the server reads.
type Config struct {
	Port           string `env:"PORT" envDefault:"5175"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	DBPath         string `env:"DB_PATH" envDefault:"./data/app.db"`
	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"minesweeper_token"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	DailySalt      string `env:"DAILY_SALT" envDefault:"local_dev_salt"`
	Environment    string `env:"NODE_ENV" envDefault:"development"`
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c Config) Production() bool { return c.Environment == "production" }

// Load reads .env files (if any) and parses the environment into a Config.
func Load(files ...string) (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load(files...)
	return Parse()
}

// Parse reads the process environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
