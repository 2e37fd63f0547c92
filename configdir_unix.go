//go:build !darwin && !windows

package mirror

import (
	"os"
	"path/filepath"
)

// getDefaultConfigDir returns $XDG_CONFIG_HOME/<appName>/ if set,
// otherwise ~/.config/<appName>/
func getDefaultConfigDir(appName string) (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
