package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// mergeFile overlays values from a YAML config file onto cfg.
// A missing file is only an error when the path was given explicitly.
func mergeFile(cfg *ClientConfig, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg ClientConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fileCfg.APIURL != "" {
		cfg.APIURL = fileCfg.APIURL
	}
	if fileCfg.CredentialsFile != "" {
		cfg.CredentialsFile = fileCfg.CredentialsFile
	}
	if fileCfg.TimeoutSeconds != 0 {
		cfg.TimeoutSeconds = fileCfg.TimeoutSeconds
	}
	if fileCfg.DefaultSort != "" {
		cfg.DefaultSort = fileCfg.DefaultSort
	}
	if fileCfg.Debug {
		cfg.Debug = true
	}
	return nil
}
