package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/f3xlab/fieldsync/internal/config"
	"github.com/f3xlab/fieldsync/internal/journal"
	"github.com/f3xlab/fieldsync/internal/link"
	"github.com/f3xlab/fieldsync/internal/logging"
	"github.com/f3xlab/fieldsync/internal/task"
	"github.com/f3xlab/fieldsync/internal/ui"
)

// session is everything a device command needs: the control registry, the
// task machine driving its buttons and a client merging into both.
type session struct {
	cfg      *config.Config
	logs     *logging.Buffer
	logger   zerolog.Logger
	registry *ui.Registry
	machine  *task.Machine
	client   *link.Client
	journal  *journal.Store
}

// logOutput is where command logs go; tests swap it out.
var logOutput io.Writer = os.Stderr

func (o *globalOptions) newSession() (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}

	logs := logging.NewBuffer(cfg.Log.BufferSize)
	logger := logging.New(cfg.Log, logOutput, logs)

	registry := ui.FromConfig(cfg.Controls)
	machine := task.NewMachine(registry)
	machine.OnTransition = func(t task.Transition) {
		logger.Debug().Str("from", t.From.String()).Str("to", t.To.String()).Msg("task state changed")
	}

	s := &session{
		cfg:      cfg,
		logs:     logs,
		logger:   logger,
		registry: registry,
		machine:  machine,
		client:   link.NewClient(&cfg.Device, registry, machine, logging.Component(logger, "link")),
	}

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		s.journal = store
		s.client.Recorder = store
	}
	return s, nil
}

// ensure registers ids the config does not know as plain text fields, so
// any id can be fetched from the command line.
func (s *session) ensure(ids ...string) {
	for _, id := range ids {
		if _, ok := s.registry.Lookup(id); !ok {
			s.registry.Register(ui.Control{ID: id, Kind: ui.KindText})
		}
	}
}

func (s *session) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}
