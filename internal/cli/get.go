package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/f3xlab/fieldsync/internal/console"
)

func newGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>...",
		Short: "Fetch field values from the device",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			s.ensure(args...)

			if err := s.client.Fetch(cmd.Context(), args...); err != nil {
				return err
			}
			s.render(cmd.OutOrStdout())
			return nil
		},
	}
}

// render prints the registry and the task state
func (s *session) render(w io.Writer) {
	state, known := s.machine.State()
	fmt.Fprintln(w, console.Controls(s.registry.Snapshot(), state, known))
}
