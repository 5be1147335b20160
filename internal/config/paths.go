package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ExecutableDir returns the directory holding the running binary, with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// EnsureDirectories creates the exports and logs directories if missing
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.GetExportsDir(), c.GetLogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// ExportPath returns the path for an export file
func (c *Config) ExportPath(filename string) string {
	return filepath.Join(c.GetExportsDir(), filepath.Base(filename))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
