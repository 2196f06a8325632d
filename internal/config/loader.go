package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. XRPLCONFORM_NODE_URL.
const EnvPrefix = "XRPLCONFORM"

// LoadConfig loads the configuration. An empty path uses defaults and the
// environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if err := loadMainConfig(v, path); err != nil {
			return nil, fmt.Errorf("failed to load main config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyLegacyEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.configPath = path

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// loadMainConfig reads the TOML file at path into v.
func loadMainConfig(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", path)
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// applyLegacyEnv builds node.url from HOST and PORT when the prefixed
// variable is not set.
func applyLegacyEnv(v *viper.Viper) {
	if _, ok := os.LookupEnv(EnvPrefix + "_NODE_URL"); ok {
		return
	}
	host, hasHost := os.LookupEnv("HOST")
	port, hasPort := os.LookupEnv("PORT")
	if !hasHost && !hasPort {
		return
	}
	if host == "" {
		host = "0.0.0.0"
	}
	if port == "" {
		port = "6006"
	}
	v.Set("node.url", fmt.Sprintf("ws://%s:%s", host, port))
}
