package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenv loads variables from ENV_FILE, or .env in the working
// directory, without overriding variables already set. NO_DOTENV=1 skips it.
func LoadDotenv() {
	dotenvOnce.Do(func() {
		if os.Getenv("NO_DOTENV") == "1" {
			return
		}
		path := ".env"
		if envFile := os.Getenv("ENV_FILE"); envFile != "" {
			path = envFile
		}
		_ = godotenv.Load(path)
	})
}
