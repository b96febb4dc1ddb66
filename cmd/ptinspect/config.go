package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/passthrough/compose"
	"github.com/wippyai/passthrough/creator"
	"github.com/wippyai/passthrough/refcount"
	"github.com/wippyai/passthrough/resolve"
)

// envConfig holds defaults read from the environment. Flags override them.
type envConfig struct {
	Manifest string `env:"PTINSPECT_MANIFEST"`
	LogLevel string `env:"PTINSPECT_LOG_LEVEL" envDefault:"warn"`
	Debug    bool   `env:"PTINSPECT_DEBUG"`
	NoColor  bool   `env:"PTINSPECT_NO_COLOR"`
}

func loadEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// newLogger writes to stderr: human readable on a terminal, JSON otherwise.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var enc zapcore.Encoder
	if term.IsTerminal(int(os.Stderr.Fd())) {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl)), nil
}

func installLogger(l *zap.Logger) {
	refcount.SetLogger(l.Named("refcount"))
	resolve.SetLogger(l.Named("resolve"))
	compose.SetLogger(l.Named("compose"))
	creator.SetLogger(l.Named("creator"))
}
