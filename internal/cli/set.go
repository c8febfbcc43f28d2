package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/f3xlab/fieldsync/internal/ui"
	"github.com/f3xlab/fieldsync/internal/wire"
)

func newSetCmd(opts *globalOptions) *cobra.Command {
	var ascii, text bool

	cmd := &cobra.Command{
		Use:   "set <id> <value>",
		Short: "Send a field value to the device",
		Long: `Send a field value to the device and merge the device's answer.

A value of NA sends the control's current value instead. With --text the
value only replaces the control's displayed text and nothing is sent.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if text {
				return runSetText(cmd, opts, args[0], args[1])
			}
			return runSet(cmd, opts, args[0], args[1], ascii)
		},
	}

	cmd.Flags().BoolVar(&ascii, "ascii", false, "Reject values with characters above 127")
	cmd.Flags().BoolVar(&text, "text", false, "Set the displayed text locally without sending")
	cmd.MarkFlagsMutuallyExclusive("ascii", "text")
	return cmd
}

func runSet(cmd *cobra.Command, opts *globalOptions, id, value string, ascii bool) error {
	s, err := opts.newSession()
	if err != nil {
		return err
	}
	defer s.Close()
	s.ensure(id)

	if ascii {
		err = s.client.SendASCII(cmd.Context(), id, value)
	} else {
		err = s.client.SendValue(cmd.Context(), id, value)
	}

	var asciiErr *wire.ASCIIError
	if errors.As(err, &asciiErr) {
		return fmt.Errorf("%s not sent: %w", id, asciiErr)
	}
	if err != nil {
		return err
	}

	s.render(cmd.OutOrStdout())
	return nil
}

func runSetText(cmd *cobra.Command, opts *globalOptions, id, text string) error {
	s, err := opts.newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if _, ok := s.registry.Lookup(id); !ok {
		s.registry.Register(ui.Control{ID: id, Kind: ui.KindSpan})
	}
	s.registry.SetText(id, text)

	s.render(cmd.OutOrStdout())
	return nil
}
