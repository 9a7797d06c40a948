package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

// EnvPrefix is the prefix of environment overrides, e.g. SCALEVIEWER_SERVER_PORT.
const EnvPrefix = "SCALEVIEWER"

// FileName is the configuration file looked up in the working directory.
const FileName = "scaleviewer.toml"

// New returns a viper instance with defaults, env binding and, when path
// (or ./scaleviewer.toml) exists, the file merged in.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	explicit := path != ""
	if !explicit {
		path = FileName
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		return v, nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return v, nil
}

// Load reads configuration from path (optional) and validates it.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
