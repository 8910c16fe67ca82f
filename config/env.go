package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads .env from the working directory into the process
// environment. A missing file is not an error and variables that are
// already set are never overridden.
func LoadEnvFile() error {
	return loadEnvFile()
}

func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}
