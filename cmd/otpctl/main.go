package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rexliu/otpbridge/pkg/config"
	"github.com/rexliu/otpbridge/pkg/oath"
	"github.com/rexliu/otpbridge/pkg/vault/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "init":
		initProfile()
	case "version":
		fmt.Println("otpctl 0.1.0")
	case "add":
		if err := addCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "add error: %v\n", err)
			os.Exit(1)
		}
	case "list":
		if err := listCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "list error: %v\n", err)
			os.Exit(1)
		}
	case "code":
		if err := codeCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "code error: %v\n", err)
			os.Exit(1)
		}
	case "rm":
		if err := rmCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "rm error: %v\n", err)
			os.Exit(1)
		}
	case "install":
		if err := installCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "install error: %v\n", err)
			os.Exit(1)
		}
	case "backup":
		if err := backupCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "backup error: %v\n", err)
			os.Exit(1)
		}
	case "diag":
		if err := diagCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "diag error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: otpctl <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init      Initialize a profile (writes config.toml, creates the vault)")
	fmt.Println("  add       Add an OATH credential to the vault")
	fmt.Println("  list      List credential account names")
	fmt.Println("  code      Compute the code for a credential (fuzzy match)")
	fmt.Println("  rm        Remove a credential by exact name")
	fmt.Println("  install   Write the browser native-messaging host manifest")
	fmt.Println("  backup init|save|push|pull   Version the profile with Git")
	fmt.Println("  diag      Print profile configuration paths")
	fmt.Println("  version   Print CLI version")
}

func initProfile() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	profile := fs.String("profile", "", "Profile directory (default: user config dir)")
	name := fs.String("name", "default", "Profile name")
	force := fs.Bool("force", false, "Overwrite existing config if present")
	_ = fs.Parse(os.Args[2:])

	dir, err := resolveProfileDir(*profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "config already exists at %s (use --force to overwrite)\n", configPath)
		os.Exit(1)
	}
	cfg := config.Default(*name)
	if err := config.Save(configPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	store, err := openVault(ctx, dir, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	store.Close()
	fmt.Printf("initialized profile %s at %s\n", cfg.ProfileName, dir)
}

func addCommand(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	profile := fs.String("profile", "", "Profile directory (default: user config dir)")
	name := fs.String("name", "", "Account name (e.g. example.com:alice)")
	secret := fs.String("secret", "", "Base32 secret")
	kind := fs.String("type", "totp", "Credential type: totp or hotp")
	algorithm := fs.String("algorithm", "", "HMAC algorithm: SHA1, SHA256 or SHA512")
	digits := fs.Int("digits", 0, "Code width (6-8)")
	period := fs.Int("period", 0, "TOTP period in seconds")
	counter := fs.Uint64("counter", 0, "HOTP starting counter")
	_ = fs.Parse(args)

	if *name == "" || *secret == "" {
		return fmt.Errorf("--name and --secret are required")
	}
	ctx := context.Background()
	dir, cfg, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	store, err := openVault(ctx, dir, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	cred := oath.Credential{
		Name:      *name,
		Secret:    *secret,
		Type:      oath.Type(strings.ToLower(*kind)),
		Algorithm: oath.Algorithm(strings.ToUpper(*algorithm)),
		Digits:    *digits,
		Period:    *period,
		Counter:   *counter,
	}
	if cred.Algorithm == "" {
		cred.Algorithm = oath.Algorithm(cfg.OATH.Algorithm)
	}
	if cred.Digits == 0 {
		cred.Digits = cfg.OATH.Digits
	}
	if cred.Period == 0 && cred.Type == oath.TypeTOTP {
		cred.Period = cfg.OATH.Period
	}
	if err := store.Add(ctx, cred); err != nil {
		return err
	}
	fmt.Printf("added %s credential %s\n", cred.Type, cred.Name)
	return nil
}

func listCommand(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	profile := fs.String("profile", "", "Profile directory (default: user config dir)")
	verbose := fs.Bool("v", false, "Show type, algorithm and digits")
	_ = fs.Parse(args)

	ctx := context.Background()
	dir, cfg, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	store, err := openVault(ctx, dir, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	creds, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, cred := range creds {
		if *verbose {
			fmt.Printf("%s\t%s\t%s\t%d\n", cred.Name, cred.Type, cred.Algorithm, cred.Digits)
		} else {
			fmt.Println(cred.Name)
		}
	}
	return nil
}

func codeCommand(args []string) error {
	fs := flag.NewFlagSet("code", flag.ExitOnError)
	profile := fs.String("profile", "", "Profile directory (default: user config dir)")
	account := fs.String("account", "", "Search term (fuzzy match against account names)")
	_ = fs.Parse(args)

	term := *account
	if term == "" && fs.NArg() > 0 {
		term = fs.Arg(0)
	}
	if term == "" {
		return fmt.Errorf("--account is required")
	}
	ctx := context.Background()
	dir, cfg, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	store, err := openVault(ctx, dir, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	creds, err := store.List(ctx)
	if err != nil {
		return err
	}
	cred, err := oath.Match(creds, term)
	if err != nil {
		return err
	}
	code, err := cred.CodeAt(time.Now().Unix())
	if err != nil {
		return err
	}
	if cred.Type == oath.TypeHOTP {
		if err := store.SetCounter(ctx, cred.ID, cred.Counter+1); err != nil {
			return fmt.Errorf("advance counter: %w", err)
		}
	}
	fmt.Printf("%s: %s\n", cred.Name, oath.FormatCode(code, cred.Digits))
	return nil
}

func rmCommand(args []string) error {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	profile := fs.String("profile", "", "Profile directory (default: user config dir)")
	name := fs.String("name", "", "Exact account name to remove")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	ctx := context.Background()
	dir, cfg, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	store, err := openVault(ctx, dir, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Remove(ctx, *name); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", *name)
	return nil
}

func diagCommand(args []string) error {
	fs := flag.NewFlagSet("diag", flag.ExitOnError)
	profile := fs.String("profile", "", "Profile directory (default: user config dir)")
	_ = fs.Parse(args)

	dir, cfg, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	fmt.Printf("Profile: %s\n", cfg.ProfileName)
	fmt.Printf("Config: %s\n", filepath.Join(dir, "config.toml"))
	fmt.Printf("Vault: %s\n", config.ResolvePath(dir, cfg.Vault.Path))
	if cfg.Logging.FilePath != "" {
		fmt.Printf("Log File: %s\n", cfg.Logging.FilePath)
	}
	fmt.Printf("Backup Branch: %s (enabled=%t)\n", cfg.Backup.Branch, cfg.Backup.Enabled)
	if cfg.Backup.Remote != "" {
		fmt.Printf("Backup Remote: %s\n", cfg.Backup.Remote)
	}
	return nil
}

func resolveProfileDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return config.DefaultProfileDir()
}

func loadProfile(override string) (string, *config.ProfileConfig, error) {
	dir, err := resolveProfileDir(override)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.LoadProfile(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("config not found in %s (run 'otpctl init')", dir)
		}
		return "", nil, fmt.Errorf("load config: %w", err)
	}
	return dir, cfg, nil
}

func openVault(ctx context.Context, dir string, cfg *config.ProfileConfig) (*sqlite.Store, error) {
	store, err := sqlite.Open(config.ResolvePath(dir, cfg.Vault.Path))
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init vault: %w", err)
	}
	return store, nil
}
