package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
)

// MaxBackups is how many config backups are kept.
const MaxBackups = 3

// backupStamp names backups so lexical order is chronological.
const backupStamp = "20060102T150405.000"

// BackupUserConfig copies the user config to config.yaml.<stamp>.bak next to
// it and prunes older backups beyond MaxBackups. It returns "" when there is
// no user config.
func BackupUserConfig() (string, error) {
	return backupFile(GetUserConfigPath(), time.Now(), MaxBackups)
}

func backupFile(path string, now time.Time, keep int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", edmerrors.IOError("failed to read config for backup", err).WithDetail("path", path)
	}

	backup := path + "." + now.UTC().Format(backupStamp) + ".bak"
	if err := os.WriteFile(backup, data, 0o600); err != nil {
		return "", edmerrors.IOError("failed to write config backup", err).WithDetail("path", backup)
	}

	backups, err := listBackups(path)
	if err != nil {
		return backup, nil
	}
	for _, old := range backups[min(keep, len(backups)):] {
		_ = os.Remove(old)
	}
	return backup, nil
}

// listBackups returns the backups of path, newest first.
func listBackups(path string) ([]string, error) {
	dir, base := filepath.Split(path)
	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, edmerrors.IOError("failed to list config directory", err)
	}

	var backups []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, base+".") && strings.HasSuffix(name, ".bak") {
			backups = append(backups, filepath.Join(dir, name))
		}
	}
	slices.Sort(backups)
	slices.Reverse(backups)
	return backups, nil
}
