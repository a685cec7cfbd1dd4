package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	AppName           = "pipesh"
)

// Color settings.
const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs         afero.Fs
	configurationDir string

	Prompt       string  `json:"prompt" validate:"required"`
	Color        string  `json:"color" validate:"oneof=always auto never"`
	StderrPolicy string  `json:"stderr_policy" validate:"oneof=strict status"`
	History      History `json:"history"`
	Logging      Logging `json:"logging"`
	EventLog     string  `json:"event_log"`
}

type History struct {
	File       string `json:"file"`
	MaxEntries int    `json:"max_entries" validate:"gte=0"`
}

type Logging struct {
	Type  string `json:"type" validate:"oneof=json text tint"`
	Level string `json:"level" validate:"oneof=debug info warn error"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// Dir is the directory the configuration was loaded from.
func (c *Configuration) Dir() string {
	return c.configurationDir
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewBasePathFs(afero.NewOsFs(), c.configurationDir)
	}
	return c.configFs
}

// OpenEventLog opens the event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

// HistoryFs returns the filesystem and path the history log lives at.
// Absolute history paths are used as-is, relative ones are resolved in the
// configuration directory.
func (c *Configuration) HistoryFs() (afero.Fs, string) {
	if filepath.IsAbs(c.History.File) {
		return afero.NewOsFs(), c.History.File
	}
	return c.fs(), c.History.File
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// Default returns the built-in configuration, it isn't tied to a directory.
func Default() *Configuration {
	cfg := defaultConfig()
	cfg.configFs = afero.NewMemMapFs()
	return cfg
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
