package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/config"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/repo"
)

var (
	configPath string
	verbose    bool
	jsonOutput bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Session-scoped conversation memory",
	Long: `Recall stores conversation messages and their embeddings across a fast
in-memory tier and a durable on-disk tier, scoped to the active session.`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ~/.recall/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON log output, non-interactive")
}

func newObserver() *observe.Observer {
	if jsonOutput {
		return observe.NewJSON(os.Stderr, verbose)
	}
	return observe.New(os.Stderr, verbose)
}

func newFactory(obs *observe.Observer) *repo.Factory {
	path := configPath
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".recall", "config.yaml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to load config")
	}
	return repo.NewFactory(cfg, obs)
}
