// File: internal/device/config.go
package device

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/tfsdf/go-wiidisc/internal/crypto"
)

// Config holds the tunables for opening disc images.
type Config struct {
	// CommonKeyPath and KoreanKeyPath optionally override the built-in
	// common keys with 16-byte key files, for consoles whose keys were
	// dumped locally.
	CommonKeyPath string `mapstructure:"common_key_path"`
	KoreanKeyPath string `mapstructure:"korean_key_path"`

	// VerifyOnOpen runs an integrity check over the game partition right
	// after the partition scan.
	VerifyOnOpen bool `mapstructure:"verify_on_open"`
}

// LoadConfig loads the device configuration using Viper. Missing config
// files are fine; defaults and WII_* environment variables apply.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("wiidisc-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.wiidisc")
	viper.AddConfigPath("/etc/wiidisc")

	viper.SetDefault("common_key_path", "")
	viper.SetDefault("korean_key_path", "")
	viper.SetDefault("verify_on_open", false)

	viper.SetEnvPrefix("WII")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// CommonKeys builds the common key table, applying any key file
// overrides from the configuration.
func (c *Config) CommonKeys(fs afero.Fs) (crypto.CommonKeyTable, error) {
	keys := crypto.DefaultCommonKeys()

	for i, path := range []string{c.CommonKeyPath, c.KoreanKeyPath} {
		if path == "" {
			continue
		}
		raw, err := afero.ReadFile(fs, path)
		if err != nil {
			return keys, fmt.Errorf("failed to read key file %s: %w", path, err)
		}
		if len(raw) != 16 {
			return keys, fmt.Errorf("key file %s must hold exactly 16 bytes, got %d", path, len(raw))
		}
		copy(keys[i][:], raw)
	}

	return keys, nil
}
