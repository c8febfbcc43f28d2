package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/f3xlab/fieldsync/internal/console"
)

// ErrJournalDisabled is returned by history when journaling is off
var ErrJournalDisabled = errors.New("journal is disabled (set journal.enabled in the config)")

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show journaled values of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			if s.journal == nil {
				return ErrJournalDisabled
			}

			entries, err := s.journal.Recent(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), console.History(entries))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of values to show")
	return cmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fieldsync %s\n", version)
		},
	}
}
