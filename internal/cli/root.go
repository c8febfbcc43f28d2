// Package cli implements the fieldsync command line.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/f3xlab/fieldsync/internal/config"
	"github.com/f3xlab/fieldsync/internal/console"
)

type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "fieldsync",
		Short: "fieldsync - sync client for the base manager web UI",
		Long: `fieldsync keeps named UI controls in sync with a base manager device.

It sets and fetches field values, polls while the speed task runs, listens
for pushed updates, journals what it sees and runs a device simulator.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: search fieldsync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(newSetCmd(opts))
	rootCmd.AddCommand(newGetCmd(opts))
	rootCmd.AddCommand(newPollCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newSimCmd(opts))
	rootCmd.AddCommand(newReadOnlyCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newVersionCmd(version))

	return rootCmd
}

// Execute runs the root command
func Execute(version string) error {
	cmd := newRootCmd(version)
	cmd.SetErr(os.Stderr)
	return execute(cmd)
}

// execute runs cmd and shows a failed command as a warning line
func execute(cmd *cobra.Command) error {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), console.Warning("Error: "+err.Error()))
		return err
	}
	return nil
}

// loadConfig reads --config, or the first file in the search paths, falling
// back to the defaults when there is none.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNotFound) {
		cfg = config.Default()
		cfg.ConfigPath = "fieldsync.yaml"
		return cfg, nil
	}
	return cfg, err
}
