package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/citefix/internal/engine"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "CITEFIX"

	// Config keys.
	cfgKeyLocaleDir     = "locale_dir"
	cfgKeyDataDir       = "data_dir"
	cfgKeyEngine        = "engine"
	cfgKeyEngineCommand = "engine_command"
	cfgKeyStrict        = "strict"
	cfgKeySkip          = "skip"
	cfgKeyRecord        = "record"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	LocaleDir     string   `yaml:"locale_dir,omitempty"`
	DataDir       string   `yaml:"data_dir,omitempty"`
	Engine        string   `yaml:"engine"`
	EngineCommand []string `yaml:"engine_command,omitempty"`
	Strict        bool     `yaml:"strict"`
	Skip          []string `yaml:"skip,omitempty"`
	Record        bool     `yaml:"record"`
}

func defaultConfig() configFile {
	return configFile{Engine: engine.OutlineName, Strict: true}
}

const configHeader = "# citefix configuration\n" +
	"# Flags override these values; CITEFIX_ENGINE, CITEFIX_STRICT and\n" +
	"# CITEFIX_RECORD override them from the environment.\n"

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Directory keys are read from the file only;
// their environment overrides are resolved by the paths package so that
// config.yaml takes precedence over them. engine and strict are bound to
// the root flags so an explicit flag wins.
func loadConfig(configDir string, flags *pflag.FlagSet) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), defaultConfig()); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	def := defaultConfig()
	v.SetDefault(cfgKeyEngine, def.Engine)
	v.SetDefault(cfgKeyStrict, def.Strict)
	v.SetDefault(cfgKeyRecord, def.Record)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyEngine, cfgKeyEngineCommand, cfgKeyStrict, cfgKeyRecord} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if flags != nil {
		for key, name := range map[string]string{cfgKeyEngine: "engine", cfgKeyStrict: "strict"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with cfg if the file does not
// exist. An existing file is left alone.
func writeConfigIfMissing(path string, cfg configFile) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}
