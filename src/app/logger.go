package app

import (
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Blackdeer1524/HeapDB/src/cfg"
)

// NewLogger builds the process logger. The environment picks zap's
// development or production preset and the config overrides level, encoding
// and sink on top of it.
func NewLogger(c cfg.Config) (*zap.SugaredLogger, error) {
	var zc zap.Config
	if c.Environment == cfg.EnvProd {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return nil, errors.Wrap(err, "parse log level")
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	switch strings.ToLower(c.LogFormat) {
	case "json":
		zc.Encoding = "json"
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}

	if c.LogOutput != "" {
		zc.OutputPaths = []string{c.LogOutput}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger.Sugar(), nil
}
