package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.edmindex/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".edmindex", "logs")
	}
	return filepath.Join(home, ".edmindex", "logs")
}

// DefaultLogPath returns the default client log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "client.log")
}

// ResolvePath returns explicit when set, else the default path.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return DefaultLogPath()
}
