package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReadOnlyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "readonly <class> <true|false>",
		Short: "Lock or unlock every configured control of a class",
		Long: `Make every configured control of a class read-only and disabled.
A value of "false" makes them editable again; any other value locks them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if n := s.registry.SetClassReadOnly(args[0], args[1]); n == 0 {
				return fmt.Errorf("no controls with class %q", args[0])
			}
			s.render(cmd.OutOrStdout())
			return nil
		},
	}
}
