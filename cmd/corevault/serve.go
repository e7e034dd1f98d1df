// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veilmark/corevault/api"
	"github.com/veilmark/corevault/config"
	"github.com/veilmark/corevault/crypto/keys"
	"github.com/veilmark/corevault/envelope"
	"github.com/veilmark/corevault/internal/logger"
	"github.com/veilmark/corevault/magiclink"
	"github.com/veilmark/corevault/pkg/health"
	"github.com/veilmark/corevault/pkg/storage"
	"github.com/veilmark/corevault/pkg/storage/memory"
	"github.com/veilmark/corevault/pkg/storage/postgres"
	"github.com/veilmark/corevault/sharedsecret"
	"github.com/veilmark/corevault/token"
)

var (
	serveConfigDir string
	serveAddr      string
	serveUIHost    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the auth/secret-sharing HTTP API",
	Long: `serve loads CoreConfig from config/{environment}.yaml (env-substituted,
.env-aware, per config.Load), wires the memory or postgres backend
selected by the storage.driver setting, and starts the HTTP surface
defined in api.NewServer: login, refresh, shared-secret, health, and
metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfigDir, "config-dir", "config", "directory holding {development,production}.yaml")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&serveUIHost, "ui-host", "", "override the UI host refresh cookies are scoped to (defaults to CVAULT_UI_HOST or localhost)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: serveConfigDir, DotEnvPath: ".env"})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewDefaultLogger()
	if lvl, ok := parseLevel(cfg.Logging.Level); ok {
		log.SetLevel(lvl)
	}
	logger.SetDefaultLogger(log)

	store, err := buildStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("build storage: %w", err)
	}
	defer store.Close()

	serverEd, serverX, err := loadServerKeys(cfg.Core)
	if err != nil {
		return fmt.Errorf("load server keys: %w", err)
	}

	kUser, kRow, kJWT, kRefresh, kMagic, err := decodeCoreSecrets(cfg.Core)
	if err != nil {
		return fmt.Errorf("decode core secrets: %w", err)
	}

	tokenCfg := token.Config{
		KJWT:       kJWT,
		KRefresh:   kRefresh,
		AccessTTL:  cfg.Core.AccessTTL,
		RefreshTTL: cfg.Core.RefreshTTL,
	}

	var magicMailer magiclink.Mailer
	var secretMailer sharedsecret.Mailer
	if cfg.Core.DryRunEmail {
		magicMailer = &magiclink.DryRunMailer{Logger: log}
		secretMailer = &sharedsecret.DryRunMailer{Logger: log}
	} else {
		magicMailer = &magiclink.StubMailer{}
		secretMailer = &sharedsecret.StubMailer{}
	}

	mlSvc := magiclink.NewService(magiclink.Config{
		KUser:       kUser,
		KMagic:      kMagic,
		MagicTTL:    cfg.Core.MagicTTL,
		TokenConfig: tokenCfg,
	}, store.MagicLinks(), magicMailer, serverEd, serverX)

	ssSvc := sharedsecret.NewService(sharedsecret.Config{KUser: kUser, KRow: kRow}, store.SharedSecrets(), store.Tracking(), secretMailer,
		func(payload any) (*envelope.SignedResponse, error) {
			return envelope.BuildResponse(payload, serverEd)
		})

	uiHost := serveUIHost
	if uiHost == "" {
		uiHost = os.Getenv("CVAULT_UI_HOST")
	}
	if uiHost == "" {
		uiHost = "localhost"
	}

	checker := health.NewChecker(store, cfg.Storage.Driver)

	handler := api.NewServer(&api.Deps{
		MagicLink:    mlSvc,
		SharedSecret: ssSvc,
		TokenConfig:  tokenCfg,
		ServerEd:     serverEd,
		ServerX:      serverX,
		UIHost:       uiHost,
		Secure:       config.IsProduction(),
		Health:       checker,
		Log:          log,
	})

	sweeper := storage.NewSweeper(store, time.Minute, log)
	sweeper.Start()
	defer sweeper.Stop()

	srv := &http.Server{Addr: serveAddr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving", logger.String("addr", serveAddr), logger.String("storage", cfg.Storage.Driver))
		errCh <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func buildStore(cfg *config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.NewStore(context.Background(), cfg.DSN)
	case "memory", "":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// loadServerKeys rebuilds the server's long-term Ed25519 and X25519
// keypairs from the hex seeds in CoreConfig, generating fresh ones (and
// warning) if absent -- a generated-on-the-fly identity is fine for a
// throwaway dev run but loses client trust pinning on every restart.
func loadServerKeys(cfg *config.CoreConfig) (ed25519.PrivateKey, *keys.X25519KeyPair, error) {
	var serverEd ed25519.PrivateKey
	if cfg.ServerEd25519Seed != "" {
		seed, err := hex.DecodeString(cfg.ServerEd25519Seed)
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, nil, fmt.Errorf("server_ed25519_seed must be a %d-byte hex seed", ed25519.SeedSize)
		}
		serverEd = ed25519.NewKeyFromSeed(seed)
	} else {
		_, sk, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("core.server_ed25519_seed not set; generated an ephemeral server Ed25519 key")
		serverEd = sk
	}

	var serverX *keys.X25519KeyPair
	if cfg.ServerX25519Seed != "" {
		seed, err := hex.DecodeString(cfg.ServerX25519Seed)
		if err != nil {
			return nil, nil, fmt.Errorf("server_x25519_seed must be hex: %w", err)
		}
		serverX, err = keys.NewX25519KeyPairFromSeed(seed)
		if err != nil {
			return nil, nil, err
		}
	} else {
		kp, err := keys.GenerateX25519KeyPair()
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("core.server_x25519_seed not set; generated an ephemeral server X25519 key")
		serverX = kp.(*keys.X25519KeyPair)
	}
	return serverEd, serverX, nil
}

func decodeCoreSecrets(cfg *config.CoreConfig) (kUser, kRow, kJWT, kRefresh, kMagic []byte, err error) {
	decode := func(name, value string) ([]byte, error) {
		if value == "" {
			return nil, fmt.Errorf("core.%s is required", name)
		}
		if b, derr := hex.DecodeString(value); derr == nil {
			return b, nil
		}
		return []byte(value), nil
	}
	if kUser, err = decode("k_user", cfg.KUser); err != nil {
		return
	}
	if kRow, err = decode("k_row", cfg.KRow); err != nil {
		return
	}
	if kJWT, err = decode("k_jwt", cfg.KJWT); err != nil {
		return
	}
	if kRefresh, err = decode("k_refresh", cfg.KRefresh); err != nil {
		return
	}
	if kMagic, err = decode("k_magic", cfg.KMagic); err != nil {
		return
	}
	return
}

func parseLevel(s string) (logger.Level, bool) {
	switch s {
	case "debug":
		return logger.DebugLevel, true
	case "info":
		return logger.InfoLevel, true
	case "warn", "warning":
		return logger.WarnLevel, true
	case "error":
		return logger.ErrorLevel, true
	default:
		return 0, false
	}
}
