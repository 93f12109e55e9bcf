package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default("dev")
	if cfg.ProfileName != "dev" {
		t.Fatalf("name = %q", cfg.ProfileName)
	}
	if cfg.Vault.Path != "vault.db" {
		t.Fatalf("vault path = %q", cfg.Vault.Path)
	}
	if cfg.OATH.Digits != 6 || cfg.OATH.Period != 30 || cfg.OATH.Algorithm != "SHA1" {
		t.Fatalf("oath defaults = %+v", cfg.OATH)
	}
	if cfg.Backup.Branch != "main" {
		t.Fatalf("branch = %q", cfg.Backup.Branch)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default("roundtrip")
	cfg.Backup.Remote = "git@example.com:me/otp-backup.git"
	cfg.Logging.Level = "debug"
	path := filepath.Join(dir, "config.toml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadProfile(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *loaded, cfg)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("profileName = \"sparse\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Vault.Path != "vault.db" || cfg.OATH.Digits != 6 || cfg.Logging.Level != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []string{
		"",
		"profileName = \"x\"\n[oath]\ndigits = 4\n",
		"profileName = \"x\"\n[oath]\nalgorithm = \"MD5\"\n",
	}
	for _, body := range cases {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("expected rejection for config %q", body)
		}
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/profile", "vault.db"); got != "/profile/vault.db" {
		t.Fatalf("got %q", got)
	}
	if got := ResolvePath("/profile", "/abs/vault.db"); got != "/abs/vault.db" {
		t.Fatalf("got %q", got)
	}
}
