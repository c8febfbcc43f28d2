package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/f3xlab/fieldsync/internal/link"
	"github.com/f3xlab/fieldsync/internal/logging"
	"github.com/f3xlab/fieldsync/internal/task"
)

func newPollCmd(opts *globalOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "poll <id>",
		Short: "Fetch a field a fixed number of times",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			s.ensure(args[0])

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			poller := link.NewPoller(s.client, s.cfg.Device.PollInterval, logging.Component(s.logger, "poll"))
			if err := poller.PollCount(ctx, args[0], count); err != nil && !isDone(err) {
				return err
			}
			s.render(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of fetches")
	return cmd
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		stateName string
		push      bool
		duration  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <id>...",
		Short: "Fetch fields every poll interval while the task is in a state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := parseStateFlag(stateName)
			if err != nil {
				return err
			}

			s, err := opts.newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			s.ensure(args...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			// Learn the current task state before the first gated fetch.
			if err := s.client.Fetch(ctx, args...); err != nil {
				s.logger.Warn().Err(err).Msg("initial fetch failed")
			}

			if push || s.cfg.Device.UsePush {
				pc := link.NewPushClient(&s.cfg.Device, s.client, logging.Component(s.logger, "push"))
				pc.OnMerge = func(r link.MergeResult) {
					s.logger.Debug().Int("applied", r.Applied).Strs("skipped", r.Skipped).Msg("push merged")
				}
				pc.Start()
				defer pc.Stop()
			}

			poller := link.NewPoller(s.client, s.cfg.Device.PollInterval, logging.Component(s.logger, "poll"))
			if err := poller.PollInState(ctx, state, args...); err != nil && !isDone(err) {
				return err
			}
			s.render(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVarP(&stateName, "state", "s", "running", "Task state gating the fetches (name or digit)")
	cmd.Flags().BoolVar(&push, "push", false, "Also listen for pushed updates")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (default: until interrupted)")
	return cmd
}

// parseStateFlag accepts a state digit or a name such as "running" or
// "TaskRunning".
func parseStateFlag(s string) (task.State, error) {
	if st := task.ParseState(s); st != task.Unrecognized {
		return st, nil
	}
	for st := task.Error; st <= task.NotSet; st++ {
		name := st.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, strings.TrimPrefix(name, "Task")) {
			return st, nil
		}
	}
	return task.Unrecognized, fmt.Errorf("unknown task state %q", s)
}

func isDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
