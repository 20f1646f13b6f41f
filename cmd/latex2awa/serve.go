// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/latex2awa/internal/api"
	"github.com/pdiddy/latex2awa/internal/secrets"
	"github.com/pdiddy/latex2awa/pkg/types"
)

const (
	defaultAddr            = ":8090"
	defaultShutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve LaTeX-to-plaintext conversion over HTTP",
	Long: `Serve starts an HTTP server. POST a LaTeX document to /api/convert
and receive its plain-text rendering. The X-Title-Count header carries the
number of section titles unless titles are suppressed.

When .secrets/api-key exists (or --api-key is given), requests must carry
"Authorization: Bearer <key>".`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", defaultAddr, "listen address")
	f.Int64("max-body-bytes", 4<<20, "maximum size of a submitted document")
	f.String("api-key", "", "bearer token required on /api routes (default: .secrets/api-key)")
	f.String("secrets-dir", ".secrets", "directory holding secret files")
	f.Duration("shutdown-timeout", defaultShutdownTimeout, "grace period for in-flight requests on shutdown")

	bindFlag("serve.addr", f.Lookup("addr"))
	bindFlag("serve.max_body_bytes", f.Lookup("max-body-bytes"))
	bindFlag("serve.api_key", f.Lookup("api-key"))
	bindFlag("serve.shutdown_timeout", f.Lookup("shutdown-timeout"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	secretsDir, _ := cmd.Flags().GetString("secrets-dir")
	loaded, err := secrets.Load(secretsDir, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg := types.ServeConfig{
		Addr:            viper.GetString("serve.addr"),
		MaxBodyBytes:    viper.GetInt64("serve.max_body_bytes"),
		APIKey:          secrets.Resolve(loaded, secrets.KeyAPI, viper.GetString("serve.api_key")),
		ShutdownTimeout: viper.GetDuration("serve.shutdown_timeout"),
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(cfg, conversionConfig(), log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "auth", cfg.APIKey != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-cmd.Context().Done():
	}

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
