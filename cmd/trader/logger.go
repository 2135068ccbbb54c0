package main

import (
	"tradebook/internal/journal"
	"tradebook/internal/obs"
	"tradebook/internal/ops"
)

func newLogger(cfg ops.LogConfig) (obs.Logger, func(), error) {
	switch cfg.Driver {
	case "nop":
		return obs.NopLogger(), func() {}, nil
	case "zap":
		l, err := obs.NewZapFileLogger(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		z := obs.NewZapLogger(l)
		return z, func() { _ = z.Sync() }, nil
	default:
		return obs.DefaultLogger(), func() {}, nil
	}
}

func openJournal(cfg ops.JournalSettings) (journal.Journal, error) {
	switch cfg.Driver {
	case "memory":
		return journal.NewMemory(), nil
	case "postgres":
		g, err := journal.Open(cfg.Option)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return journal.Nop{}, nil
	}
}
