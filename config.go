package mirror

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// configFileName is the file looked up in the default config directory.
const configFileName = "config.yaml"

// yamlConfig is the on-disk form of Config.
type yamlConfig struct {
	Source         string   `yaml:"source"`
	Language       string   `yaml:"language"`
	Destination    string   `yaml:"destination"`
	Models         []string `yaml:"models"`
	Timeout        string   `yaml:"timeout"`
	ExportEncoding string   `yaml:"export_encoding"`
}

// envVarName constructs an environment variable name from the app name.
// Example: envVarName("dell-catalog-mirror", "DEST") returns "DELL_CATALOG_MIRROR_DEST".
func envVarName(appName, key string) string {
	return strings.ToUpper(strings.ReplaceAll(appName, "-", "_")) + "_" + key
}

// DefaultConfigPath returns the platform config file location for appName.
func DefaultConfigPath(appName string) (string, error) {
	dir, err := getDefaultConfigDir(appName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadConfig layers a YAML config file and environment variables over cfg.
//
// The file is path if set, else <APP>_CONFIG, else DefaultConfigPath. A
// missing default file is not an error; a missing explicit file is. After the
// file, <APP>_SOURCE, <APP>_DEST, <APP>_MODELS (comma separated), <APP>_LANG
// and <APP>_EXPORT_ENCODING override individual values.
func LoadConfig(cfg Config, path string) (Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(envVarName(cfg.AppName, "CONFIG"))
	}
	if path == "" {
		explicit = false
		p, err := DefaultConfigPath(cfg.AppName)
		if err != nil {
			return cfg, applyEnv(&cfg)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := mergeYAML(&cfg, data); err != nil {
			return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, applyEnv(&cfg)
}

// mergeYAML overlays the non-empty values of a YAML document onto cfg.
func mergeYAML(cfg *Config, data []byte) error {
	var dto yamlConfig
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return err
	}

	if dto.Source != "" {
		cfg.Source = dto.Source
	}
	if dto.Language != "" {
		cfg.Language = dto.Language
	}
	if dto.Destination != "" {
		cfg.Destination = dto.Destination
	}
	if len(dto.Models) > 0 {
		cfg.Models = dto.Models
	}
	if dto.ExportEncoding != "" {
		cfg.ExportEncoding = dto.ExportEncoding
	}
	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %v", err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(envVarName(cfg.AppName, "SOURCE")); v != "" {
		cfg.Source = v
	}
	if v := os.Getenv(envVarName(cfg.AppName, "DEST")); v != "" {
		cfg.Destination = v
	}
	if v := os.Getenv(envVarName(cfg.AppName, "LANG")); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv(envVarName(cfg.AppName, "MODELS")); v != "" {
		cfg.Models = splitList(v)
	}
	if v := os.Getenv(envVarName(cfg.AppName, "EXPORT_ENCODING")); v != "" {
		cfg.ExportEncoding = v
	}
	if _, err := normalizeEncoding(cfg.ExportEncoding); err != nil {
		return err
	}
	return nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
