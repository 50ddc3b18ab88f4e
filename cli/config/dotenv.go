package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env files from the working directory and the home
// directory, in that order. Variables already present in the environment
// are never overridden, so the precedence is: process env, ./.env, ~/.env.
//
// Missing files are not an error.
func LoadDotEnv() {
	_ = godotenv.Load()

	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".env"))
	}
}
