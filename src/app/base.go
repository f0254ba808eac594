package app

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/Blackdeer1524/HeapDB/src/cfg"
)

// Base loads the configuration and opens the engine for a command.
type Base struct {
	ConfigPath string
	DataDir    string // replaces the configured data directory when set
	Fs         afero.Fs

	cfg    cfg.Config
	log    *zap.SugaredLogger
	engine *Engine
}

func (b *Base) open() error {
	if b.Fs == nil {
		b.Fs = afero.NewOsFs()
	}

	config, err := cfg.LoadConfigFs(b.Fs, b.ConfigPath)
	if err != nil {
		return err
	}
	if b.DataDir != "" {
		config.DataDir = b.DataDir
	}
	b.cfg = config

	log, err := NewLogger(config)
	if err != nil {
		return err
	}
	b.log = log

	engine, err := OpenEngine(b.Fs, config, log)
	if err != nil {
		_ = log.Sync()
		return err
	}
	b.engine = engine
	return nil
}

func (b *Base) Close() error {
	var err error
	if b.engine != nil {
		err = b.engine.Close()
		b.engine = nil
	}

	if b.log != nil {
		if err != nil {
			b.log.Errorw("failed to close engine", "error", err)
		}
		// Sync of a terminal fails on some platforms
		_ = b.log.Sync()
	}
	return err
}
