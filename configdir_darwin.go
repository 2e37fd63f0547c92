//go:build darwin

package mirror

import (
	"os"
	"path/filepath"
)

// getDefaultConfigDir returns ~/Library/Application Support/<appName>/
func getDefaultConfigDir(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Application Support", appName), nil
}
