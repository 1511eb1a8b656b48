package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is the .env file read from the working directory.
const DefaultEnvFile = ".env"

// EnvFiles returns the .env files LoadConfig reads for envPath. An explicit
// path is the only file read. Otherwise the working directory file comes
// first and the one in the default data directory second, so a project
// file wins over the per-user one.
func EnvFiles(envPath string) []string {
	if envPath != "" {
		return []string{envPath}
	}
	return []string{DefaultEnvFile, filepath.Join(DefaultDataDir(), DefaultEnvFile)}
}

// LoadDotEnv loads path, or .env when path is empty. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	return loadFiles(godotenv.Load, path)
}

// MustLoadDotEnv is LoadDotEnv failing on a missing file.
func MustLoadDotEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadDotEnvFromFiles loads paths in order without overriding variables
// already set, so the first file setting a variable wins. Missing files
// are skipped.
func LoadDotEnvFromFiles(paths ...string) error {
	return loadFiles(godotenv.Load, paths...)
}

// OverloadDotEnvFromFiles loads paths in order, each overriding what came
// before. Missing files are skipped.
func OverloadDotEnvFromFiles(paths ...string) error {
	return loadFiles(godotenv.Overload, paths...)
}

func loadFiles(load func(...string) error, paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig reads the .env files named by EnvFiles, then the process
// environment, which always takes precedence.
func LoadConfig(envPath string) (AppConfig, error) {
	if err := LoadDotEnvFromFiles(EnvFiles(envPath)...); err != nil {
		return AppConfig{}, err
	}

	envCfg, err := LoadFromEnv()
	if err != nil {
		return AppConfig{}, fmt.Errorf("read environment: %w", err)
	}
	return envCfg.ToAppConfig()
}
