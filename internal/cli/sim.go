package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/f3xlab/fieldsync/internal/devsim"
	"github.com/f3xlab/fieldsync/internal/logging"
	"github.com/f3xlab/fieldsync/internal/ui"
	"github.com/f3xlab/fieldsync/internal/wire"
)

func newSimCmd(opts *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run the device simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			simCfg := s.cfg.Simulator
			if cmd.Flags().Changed("port") {
				simCfg.Port = port
			}

			device := devsim.NewDevice(simCfg.TaskTime)
			for _, c := range s.cfg.Controls {
				if c.Value == "" || ui.Kind(c.Kind) == ui.KindButton {
					continue
				}
				device.Seed(wire.Update{ID: c.ID, Value: c.Value})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := devsim.NewServer(&simCfg, device, s.logs, logging.Component(s.logger, "sim"))
			return server.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from config)")
	return cmd
}
