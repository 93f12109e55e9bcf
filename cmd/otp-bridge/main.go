package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rexliu/otpbridge/pkg/config"
	"github.com/rexliu/otpbridge/pkg/ipc"
	"github.com/rexliu/otpbridge/pkg/logging"
	"github.com/rexliu/otpbridge/pkg/oath"
	"github.com/rexliu/otpbridge/pkg/vault/sqlite"
)

// otp-bridge is the native-messaging host. The browser launches one process
// per request, writes a single framed JSON request to its stdin, and expects
// a single framed JSON response on stdout before the process exits. Browsers
// pass their own arguments (the extension origin), so no flags are parsed.
func main() {
	if err := run(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	profileDir, err := config.DefaultProfileDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "otp-bridge: %v\n", err)
		return err
	}
	cfg, err := config.LoadProfile(profileDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "otp-bridge: load config: %v\n", err)
			return err
		}
		def := config.Default("default")
		cfg = &def
	}

	logger, err := logging.New("otp-bridge", cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "otp-bridge: %v\n", err)
		return err
	}
	logger = logger.With().Str("invocation", oath.NewID()).Logger()

	handler := &ipc.Handler{
		Opener: &sqlite.Opener{Path: config.ResolvePath(profileDir, cfg.Vault.Path)},
		Engine: oath.Engine{},
		Clock:  ipc.SystemClock{},
		Logger: logger,
	}
	if err := handler.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("invocation failed")
		return err
	}
	logger.Debug().Msg("invocation complete")
	return nil
}
