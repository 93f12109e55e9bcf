package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	gitvcs "github.com/rexliu/otpbridge/pkg/vcs/git"
)

func backupCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: otpctl backup <init|save|push|pull> [options]")
	}
	sub := args[0]
	fs := flag.NewFlagSet("backup "+sub, flag.ExitOnError)
	profile := fs.String("profile", "", "Profile directory (default: user config dir)")
	message := fs.String("message", "backup", "Commit message for save")
	_ = fs.Parse(args[1:])

	ctx := context.Background()
	dir, cfg, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	repo := &gitvcs.ProfileRepo{Path: dir, Remote: cfg.Backup.Remote}

	switch sub {
	case "init":
		if err := repo.Init(ctx); err != nil {
			return err
		}
		fmt.Printf("backup repo ready at %s\n", dir)
		return nil
	case "save":
		paths := []string{"config.toml"}
		if !filepath.IsAbs(cfg.Vault.Path) {
			paths = append(paths, cfg.Vault.Path)
		} else {
			fmt.Printf("warning: vault at %s is outside the profile and will not be committed\n", cfg.Vault.Path)
		}
		status, err := repo.Commit(ctx, *message, paths)
		if err != nil {
			return err
		}
		if !status.Committed {
			fmt.Println("nothing to commit")
			return nil
		}
		fmt.Printf("committed %s\n", status.Hash)
		return nil
	case "push":
		if cfg.Backup.Remote == "" {
			return fmt.Errorf("backup.remote not configured")
		}
		if err := repo.Push(ctx); err != nil {
			return err
		}
		fmt.Println("pushed to origin")
		return nil
	case "pull":
		if cfg.Backup.Remote == "" {
			return fmt.Errorf("backup.remote not configured")
		}
		if err := repo.Pull(ctx); err != nil {
			return err
		}
		fmt.Println("pulled from origin")
		return nil
	default:
		return fmt.Errorf("unknown backup subcommand %q", sub)
	}
}
