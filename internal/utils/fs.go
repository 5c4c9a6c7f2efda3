package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// DirCheckResult reports whether a directory exists and accepts new files.
type DirCheckResult struct {
	Exists   bool
	Writable bool
	Error    error
}

// FileExists reports whether path can be stat'ed.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates dirPath and its parents if missing.
func EnsureDir(dirPath string) error {
	return os.MkdirAll(dirPath, 0755)
}

// SaveTOMLFile encodes data to filePath through a temp file in the same directory, so
// an encoding failure never leaves a truncated config behind.
func SaveTOMLFile(data any, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", filePath, err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode %s: %w", filePath, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	return nil
}

// GetAbsolutePath resolves configPath for display. An empty path is reported as "unknown".
func GetAbsolutePath(configPath string) string {
	if configPath == "" {
		return "unknown"
	}
	if absPath, err := filepath.Abs(configPath); err == nil {
		return absPath
	}
	return configPath
}

// GetExecutableDir returns the directory of the running binary with symlinks resolved.
// Config lookup falls back to it when no user config dir is usable.
func GetExecutableDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	return filepath.Dir(execPath), nil
}

// CheckDirStatus creates dirPath if needed and probes it with a temp file.
func CheckDirStatus(dirPath string) DirCheckResult {
	var result DirCheckResult
	if err := EnsureDir(dirPath); err != nil {
		log.Debugf("Cannot create directory %s: %v", dirPath, err)
		result.Error = err
		return result
	}
	result.Exists = true

	probe, err := os.CreateTemp(dirPath, ".codegram-write-*")
	if err != nil {
		log.Debugf("Cannot write to directory %s: %v", dirPath, err)
		result.Error = err
		return result
	}
	probe.Close()
	os.Remove(probe.Name())
	result.Writable = true
	return result
}
