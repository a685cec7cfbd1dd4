package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := os.ReadFile(filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}

	out, err := parse(configContents)
	if err != nil {
		return nil, err
	}
	out.configurationDir = path
	out.configFs = afero.NewBasePathFs(afero.NewOsFs(), path)
	return out, nil
}

func parse(contents []byte) (*Configuration, error) {
	var out Configuration
	if err := yaml.UnmarshalStrict(contents, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigurationName, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigurationName, err)
	}
	return &out, nil
}

// Initialize creates the configuration directory and writes the default
// configuration into it. An existing configuration is left untouched.
func Initialize(dir string, logger *log.Logger) error {
	logger.Printf("Initializing configuration in %q\n", dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(dir, ConfigurationName)
	switch _, err := os.Stat(configPath); {
	case err == nil:
		logger.Printf("- %s exists, skipping\n", configPath)
		return nil
	case !os.IsNotExist(err):
		return err
	}

	logger.Printf("- Writing %s\n", configPath)
	return os.WriteFile(configPath, defaultConfigData, 0600)
}
