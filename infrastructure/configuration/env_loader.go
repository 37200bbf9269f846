package configuration

import (
	"errors"
	"io/fs"

	"course-service/infrastructure/logger"

	"github.com/joho/godotenv"
)

// LoadEnvFromFile loads KEY=VALUE pairs from one or more files (e.g., config.env, .env).
// Missing files are skipped. Existing env vars are not overridden.
func LoadEnvFromFile(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.GetLogger().WithField("file", p).Warnf("Failed to load env file: %v", err)
			}
		}
	}
}
