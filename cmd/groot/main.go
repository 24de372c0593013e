// cmd/groot/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"groot/internal/config"
	"groot/internal/errors"
	"groot/internal/logging"
	"groot/internal/repo"
	"groot/internal/workspace"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	logger  = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "groot",
	Short: "groot is a minimal content-addressable version control system",
	Long: `groot stores immutable snapshots of file contents, keeps a linear
commit history and shows line-level differences between versions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(loadConfigNear("."))
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose development logging")

	rootCmd.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newCommitCmd(),
		newLogCmd(),
		newDiffCmd(),
		newStatusCmd(),
		newVerifyCmd(),
		newConfigCmd(),
		newWatchCmd(),
	)
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if verbose {
		return logging.NewDevelopment()
	}
	return logging.NewLogger(cfg.Log.Level)
}

// loadConfigNear returns the config of the repository containing dir, or
// the defaults when there is none or it cannot be read.
func loadConfigNear(dir string) *config.Config {
	root, err := workspace.FindRoot(dir)
	if err != nil {
		cfg := config.Default()
		if level := os.Getenv("GROOT_LOG_LEVEL"); level != "" {
			cfg.Log.Level = level
		}
		if cfg.Validate() != nil {
			return config.Default()
		}
		return cfg
	}
	cfg, err := config.Load(configPath(root))
	if err != nil {
		return config.Default()
	}
	return cfg
}

func configPath(root string) string {
	return filepath.Join(root, workspace.DirName, config.FileName)
}

// openRepo opens the repository containing the current directory.
func openRepo() (*repo.Repository, error) {
	root, err := workspace.FindRoot(".")
	if err != nil {
		return nil, err
	}
	return repo.Open(root, nil, logger.Logger)
}

// exitCode maps an error to the process exit status. Validation failures
// are usage errors.
func exitCode(err error) int {
	switch errors.KindOf(err) {
	case errors.KindAlreadyInitialized:
		return 0
	case errors.KindValidation:
		return 2
	default:
		return 1
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := exitCode(err)
		if code != 0 {
			logger.Debug("command failed",
				zap.String("kind", string(errors.KindOf(err))),
				zap.Error(err))
			fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		}
		os.Exit(code)
	}
}
