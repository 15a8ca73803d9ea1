package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/layer-3/wellness"
	"github.com/layer-3/wellness/config"
	"github.com/layer-3/wellness/logger"
)

var (
	configPath string
	envFile    string
	debug      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "wellness",
	Short: "Wellness is a client for the wellness journal API",
	Long: `A command line client for the wellness API: sign in, keep a mental box
journal, track moods, reframe stressful thoughts and run a guided 4-7-8
breathing exercise.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, envFile)
		if err != nil {
			return err
		}
		if err := logger.Init(loaded.Log); err != nil {
			return err
		}
		logger.SetDebug(debug)
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "wellness.yml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// openApp builds the client and resolves the stored session.
func openApp(ctx context.Context) (*wellness.App, error) {
	app, err := wellness.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := app.Session.Initialize(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// requireSession opens the app and fails when nobody is signed in.
func requireSession(ctx context.Context) (*wellness.App, error) {
	app, err := openApp(ctx)
	if err != nil {
		return nil, err
	}
	if !app.Session.IsAuthenticated() {
		app.Close()
		return nil, fmt.Errorf("not signed in, run 'wellness login' first")
	}
	return app, nil
}
