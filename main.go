// main.go
//
// Entry point for the wordleai binary.
// Responsibilities:
//   - Load .env (development) and the YAML config.
//   - Configure zerolog (level, optional console output).
//   - Dispatch to the cobra commands defined in commands.go.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/wordleai/internal/config"
)

var (
	configPath string
	cfg        config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig runs before every command.
func loadConfig(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	var err error
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Driver = storeDriver
	}
	if cmd.Flags().Changed("db") {
		cfg.Store.Path = storePath
	}
	if cmd.Flags().Changed("mode") {
		cfg.Engine.Mode = engineMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return nil
}
