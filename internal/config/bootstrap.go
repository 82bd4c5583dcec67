package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// EnsureUserConfig returns the path of config.yml in dataDir, writing the
// defaults there on first run.
func EnsureUserConfig(dataDir string) (path string, created bool, err error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", false, err
	}
	userPath := filepath.Join(dataDir, FileName)

	_, err = os.Stat(userPath)
	if err == nil {
		return userPath, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", false, err
	}
	if err := SaveAtomic(userPath, Default()); err != nil {
		return "", false, err
	}
	return userPath, true, nil
}

// Resolve bootstraps, loads, overlays the environment and validates.
// Warnings are returned for the caller to log.
func Resolve(dataDir string) (Config, Validation, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	path, _, err := EnsureUserConfig(dataDir)
	if err != nil {
		return Config{}, Validation{}, fmt.Errorf("bootstrap config: %w", err)
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, Validation{}, fmt.Errorf("load %s: %w", path, err)
	}
	cfg.DataDir = dataDir
	OverlayEnv(&cfg, os.Getenv)

	cfg, v := NormalizeAndValidate(cfg)
	if !v.OK() {
		return cfg, v, errors.New("config validation failed:\n- " + joinLines(v.Errors))
	}
	return cfg, v, nil
}

// LockDataDir takes an exclusive lock on the data dir so two relays never share
// one sqlite file. The returned func releases it.
func LockDataDir(dataDir string) (func() error, error) {
	fl := flock.New(filepath.Join(dataDir, ".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dataDir, err)
	}
	if !ok {
		return nil, fmt.Errorf("data dir %s is in use by another process", dataDir)
	}
	return fl.Unlock, nil
}
