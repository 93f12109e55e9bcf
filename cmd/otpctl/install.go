package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// hostName is the native-messaging host identifier registered with the
// browser; the extension addresses the bridge by this name.
const hostName = "com.rexliu.otpbridge"

type manifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
}

func installCommand(args []string) error {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	browser := fs.String("browser", "chrome", "Target browser: chrome, chromium or firefox")
	extension := fs.String("extension", "", "Extension ID (chrome) or add-on ID (firefox)")
	binPath := fs.String("bin", "", "Path to the otp-bridge binary (default: next to otpctl)")
	dir := fs.String("dir", "", "Override the manifest directory")
	_ = fs.Parse(args)

	if *extension == "" {
		return fmt.Errorf("--extension is required")
	}
	bridge := *binPath
	if bridge == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate otp-bridge: %w", err)
		}
		bridge = filepath.Join(filepath.Dir(self), "otp-bridge")
	}
	if !filepath.IsAbs(bridge) {
		abs, err := filepath.Abs(bridge)
		if err != nil {
			return err
		}
		bridge = abs
	}

	m := manifest{
		Name:        hostName,
		Description: "OTP credential bridge",
		Path:        bridge,
		Type:        "stdio",
	}
	switch *browser {
	case "chrome", "chromium":
		m.AllowedOrigins = []string{fmt.Sprintf("chrome-extension://%s/", *extension)}
	case "firefox":
		m.AllowedExtensions = []string{*extension}
	default:
		return fmt.Errorf("unknown browser %q", *browser)
	}

	target := *dir
	if target == "" {
		var err error
		target, err = manifestDir(*browser)
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	manifestPath := filepath.Join(target, hostName+".json")
	if err := os.WriteFile(manifestPath, append(out, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s manifest to %s\n", *browser, manifestPath)
	return nil
}

func manifestDir(browser string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch browser {
	case "chrome":
		return filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts"), nil
	case "chromium":
		return filepath.Join(home, ".config", "chromium", "NativeMessagingHosts"), nil
	case "firefox":
		return filepath.Join(home, ".mozilla", "native-messaging-hosts"), nil
	default:
		return "", fmt.Errorf("unknown browser %q", browser)
	}
}
