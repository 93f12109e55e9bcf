package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// VaultConfig defines where the credential vault lives.
type VaultConfig struct {
	Path string `toml:"path"`
}

// OATHConfig defines defaults applied to new credentials.
type OATHConfig struct {
	Digits    int    `toml:"digits"`
	Period    int    `toml:"period"`
	Algorithm string `toml:"algorithm"`
}

// BackupConfig defines Git backup options for the profile.
type BackupConfig struct {
	Enabled bool   `toml:"enabled"`
	Branch  string `toml:"branch"`
	Remote  string `toml:"remote"`
}

// LoggingConfig defines basic logging knobs. Logs never go to stdout; that
// stream carries protocol frames.
type LoggingConfig struct {
	Level       string `toml:"level"`
	FilePath    string `toml:"filePath"`
	FileMaxSize int    `toml:"fileMaxSizeMB"`
}

// ProfileConfig aggregates configuration for a profile.
type ProfileConfig struct {
	ProfileName string        `toml:"profileName"`
	Vault       VaultConfig   `toml:"vault"`
	OATH        OATHConfig    `toml:"oath"`
	Backup      BackupConfig  `toml:"backup"`
	Logging     LoggingConfig `toml:"logging"`
}

// Default returns a usable configuration for a fresh profile.
func Default(name string) ProfileConfig {
	cfg := ProfileConfig{ProfileName: name}
	cfg.applyDefaults()
	return cfg
}

// Load reads config.toml from the provided path.
func Load(path string) (*ProfileConfig, error) {
	var cfg ProfileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadProfile reads config.toml from a profile directory.
func LoadProfile(dir string) (*ProfileConfig, error) {
	return Load(filepath.Join(dir, "config.toml"))
}

// Save writes cfg as TOML to path.
func Save(path string, cfg ProfileConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// ResolvePath resolves p against the profile directory unless p is already
// absolute.
func ResolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// DefaultProfileDir returns the per-user profile directory. The bridge is
// launched by the browser with no arguments of its own, so this is the only
// place it looks.
func DefaultProfileDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "otpbridge"), nil
}

func (cfg *ProfileConfig) validate() error {
	if cfg.ProfileName == "" {
		return fmt.Errorf("profileName required")
	}
	switch cfg.OATH.Algorithm {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return fmt.Errorf("oath.algorithm must be SHA1, SHA256 or SHA512")
	}
	if cfg.OATH.Digits != 0 && (cfg.OATH.Digits < 6 || cfg.OATH.Digits > 8) {
		return fmt.Errorf("oath.digits must be 6-8")
	}
	cfg.applyDefaults()
	return nil
}

func (cfg *ProfileConfig) applyDefaults() {
	if cfg.Vault.Path == "" {
		cfg.Vault.Path = "vault.db"
	}
	if cfg.OATH.Digits == 0 {
		cfg.OATH.Digits = 6
	}
	if cfg.OATH.Period == 0 {
		cfg.OATH.Period = 30
	}
	if cfg.OATH.Algorithm == "" {
		cfg.OATH.Algorithm = "SHA1"
	}
	if cfg.Backup.Branch == "" {
		cfg.Backup.Branch = "main"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
