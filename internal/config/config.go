// Package config loads appraise settings from a config file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. APPRAISE_SECRET_KEY.
const EnvPrefix = "APPRAISE"

// Settings is the resolved configuration.
type Settings struct {
	DB        DBSettings        `mapstructure:"db"`
	SecretKey string            `mapstructure:"secret_key"` // signs confirmation tokens
	Log       LogSettings       `mapstructure:"log"`
	HTTP      HTTPSettings      `mapstructure:"http"`
	Normalize NormalizeSettings `mapstructure:"normalize"`
	Agenda    AgendaSettings    `mapstructure:"agenda"`
}

// DBSettings locates the sqlite ledger.
type DBSettings struct {
	Path string `mapstructure:"path"`
}

// LogSettings controls zap output.
type LogSettings struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// HTTPSettings controls the task endpoints.
type HTTPSettings struct {
	Addr string `mapstructure:"addr"`
}

// NormalizeSettings controls item normalization.
type NormalizeSettings struct {
	MaxSegmentLength int `mapstructure:"max_segment_length"`
}

// AgendaSettings controls agenda building.
type AgendaSettings struct {
	Workers int `mapstructure:"workers"`
}

// DefaultDir returns ~/.appraise
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".appraise"), nil
}

func setDefaults(v *viper.Viper) error {
	dir, err := DefaultDir()
	if err != nil {
		return err
	}
	v.SetDefault("db.path", filepath.Join(dir, "appraise.db"))
	v.SetDefault("secret_key", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("http.addr", "127.0.0.1:8080")
	v.SetDefault("normalize.max_segment_length", 2000)
	v.SetDefault("agenda.workers", 4)
	return nil
}

// Load reads appraise.yaml from configFile, or from "." and ~/.appraise
// when configFile is empty. A missing default file is not an error.
// Environment variables override file values.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	if err := setDefaults(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("appraise")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate rejects settings no command can run with.
func (s *Settings) Validate() error {
	var problems []string
	if s.DB.Path == "" {
		problems = append(problems, "db.path must not be empty")
	}
	if s.Normalize.MaxSegmentLength < 1 {
		problems = append(problems, "normalize.max_segment_length must be positive")
	}
	if s.Agenda.Workers < 1 {
		problems = append(problems, "agenda.workers must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
