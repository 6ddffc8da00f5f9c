package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/config"
	logpkg "github.com/kailas-cloud/nearby/internal/logger"
	"github.com/kailas-cloud/nearby/internal/version"
)

// env holds the process-wide configuration shared by every command.
type env struct {
	name   string
	cfg    config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "nearby",
		Short: "Conversational local search over providers, services, shops and products",
		Long: `nearby runs the conversational search assistant.

Commands:
  nearby serve           Run the websocket and HTTP API server
  nearby migrate         Create the SQLite schema and vector indexes
  nearby reindex         Embed every entity into the vector indexes
  nearby share <slug>    Print a stored search as JSON`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newServeCmd(e),
		newMigrateCmd(e),
		newReindexCmd(e),
		newShareCmd(e),
	)
	return root
}

// load reads the config for $ENV and builds the logger.
func (e *env) load() error {
	e.name = config.GetEnv()

	cfg, err := config.Load(e.name)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg

	logger, err := logpkg.NewLogger(e.name, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	e.logger = logger
	return nil
}
