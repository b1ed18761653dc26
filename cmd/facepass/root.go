package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/facepass/facepass/internal/config"
	"github.com/facepass/facepass/internal/infra"
	"github.com/facepass/facepass/internal/logging"
	"github.com/facepass/facepass/internal/routes"
)

var (
	storeFile string
	logLevel  string
	fast      bool
)

var rootCmd = &cobra.Command{
	Use:   "facepass",
	Short: "Operate the FacePass credential store from a terminal",
	Long: `facepass drives the same scan simulation and mock credential store as
the HTTP service. Storage follows DATABASE_URL, REDIS_URL and STORE_FILE,
so the CLI and the server can share one registered face.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&storeFile, "store", "", "YAML file holding the credential when no database or Redis is configured (overrides STORE_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level for diagnostics written to stderr")
	rootCmd.PersistentFlags().BoolVar(&fast, "fast", false, "Skip the simulated processing delays")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// session holds everything a command needs and releases it on close.
type session struct {
	cfg   config.Config
	svcs  routes.Services
	close func()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if storeFile != "" {
		cfg.StoreFile = storeFile
	}
	if fast {
		cfg.RegisterDelay = -1
		cfg.AuthenticateDelay = -1
		cfg.ScanSettleDelay = -1
	}

	logger := logging.NewWithWriter(os.Stderr, logLevel, "text")

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := infra.NewPostgresPool(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	cache, err := infra.NewRedisClient(connectCtx, cfg.RedisURL)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	if db == nil && cache == nil && cfg.StoreFile == "" {
		fmt.Fprintln(os.Stderr, "warning: no DATABASE_URL, REDIS_URL or --store given; the credential is kept in memory for this run only")
	}

	svcs := routes.NewServices(routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger})
	return &session{
		cfg:  cfg,
		svcs: svcs,
		close: func() {
			svcs.Flows.CloseAll()
			if cache != nil {
				cache.Close()
			}
			if db != nil {
				db.Close()
			}
		},
	}, nil
}
