// Package logging builds the zap loggers used by the command line tool.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewConfig is a console config without stacktraces that writes to stderr,
// so stdout stays free for exported data.
func NewConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.WarnLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// Options selects verbosity and encoding.
type Options struct {
	// Verbose lowers the level to Debug.
	Verbose bool
	// Quiet raises the level to Error. Verbose wins.
	Quiet bool
	JSON  bool
	// File, when set, replaces stderr as the output.
	File string
}

func New(opts Options) (*zap.Logger, error) {
	cfg := NewConfig()
	switch {
	case opts.Verbose:
		cfg.Level.SetLevel(zap.DebugLevel)
	case opts.Quiet:
		cfg.Level.SetLevel(zap.ErrorLevel)
	}
	if opts.JSON {
		cfg.Encoding = "json"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	if opts.File != "" {
		cfg.OutputPaths = []string{opts.File}
	}
	return cfg.Build()
}
