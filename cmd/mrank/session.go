package main

import (
	"github.com/franz/media-ranker/internal/config"
	"github.com/franz/media-ranker/internal/journal"
	"github.com/franz/media-ranker/internal/library"
	"github.com/franz/media-ranker/internal/report"
	"github.com/franz/media-ranker/internal/util"
	"github.com/spf13/viper"
)

// session bundles what every command needs: the resolved config, the event
// log, the journal and the library itself
type session struct {
	cfg     *config.Config
	logger  *report.EventLogger
	journal *journal.Journal
	lib     *library.Library
}

type sessionOptions struct {
	dryRun      bool
	skipJournal bool
}

// loadConfig resolves the configuration and applies the log level
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	util.SetVerbose(cfg.Verbose)
	util.SetQuiet(cfg.Quiet)

	if err := cfg.RequireRoot(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openSession(opts sessionOptions) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// Create event logger with appropriate log level
	logLevel := report.LevelInfo // Default
	if cfg.Quiet {
		logLevel = report.LevelWarning // Only warnings and errors
	} else if cfg.Verbose {
		logLevel = report.LevelDebug // Everything
	}

	logger, err := report.NewEventLogger(cfg.EventsDir, logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}

	s := &session{cfg: cfg, logger: logger}

	if !opts.skipJournal {
		j, err := journal.Open(journal.PathFor(cfg.Root))
		if err != nil {
			// The JSON document is authoritative; carry on without history
			util.WarnLog("Journal unavailable: %v", err)
		} else {
			s.journal = j
		}
	}

	lib, err := library.Open(cfg.Root, library.Options{
		Scan:             cfg.ScanOptions(),
		CompareThreshold: cfg.CompareThreshold,
		K0:               cfg.K0,
		Logger:           logger,
		Journal:          s.journal,
		ShowProgress:     util.ShowProgress(),
		DryRun:           opts.dryRun,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.lib = lib

	util.DebugLog("Root: %s (%d records)", cfg.Root, lib.Len())
	if logger.Path() != "" {
		util.DebugLog("Event log: %s", logger.Path())
	}

	return s, nil
}

// sync aligns the store with the disk and logs what changed
func (s *session) sync() error {
	rep, err := s.lib.SyncFolder()
	if err != nil {
		return err
	}
	if rep.Changed() {
		util.InfoLog("Synced: %s", rep)
	} else {
		util.DebugLog("Synced: no changes")
	}
	if len(rep.Ambiguous) > 0 {
		util.WarnLog("%d legacy keys match several files and were kept as-is", len(rep.Ambiguous))
	}
	return nil
}

func (s *session) Close() {
	s.journal.Close()
	s.logger.Close()
}
