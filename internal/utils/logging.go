package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin structured-logging facade over zap.
type Logger struct {
	s *zap.SugaredLogger
}

func NewLogger() *Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	return &Logger{s: l.Sugar()}
}

// NewNopLogger returns a logger that discards everything (used in tests).
func NewNopLogger() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

func (lg *Logger) Info(msg string, kv ...any) { lg.s.Infow(msg, kv...) }

func (lg *Logger) Warn(msg string, kv ...any) { lg.s.Warnw(msg, kv...) }

func (lg *Logger) Error(msg string, kv ...any) { lg.s.Errorw(msg, kv...) }

func (lg *Logger) Fatal(msg string, kv ...any) { lg.s.Fatalw(msg, kv...) }

func (lg *Logger) Sync() { _ = lg.s.Sync() }
