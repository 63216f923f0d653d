// Package logger builds the zap loggers used by the binary.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

func rotating(path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename: path,
		MaxSize:  100,
		MaxAge:   30,
		Compress: true,
	})
}

// New returns a JSON logger at level writing to stderr, and also to a rotated file when file is set.
func New(level string, file string) (*zap.Logger, error) {
	atom := zap.NewAtomicLevel()
	if err := atom.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	if file == "" {
		cfg := zap.NewProductionConfig()
		cfg.Level = atom
		cfg.EncoderConfig = encoderConfig()
		return cfg.Build()
	}

	enc := zapcore.NewJSONEncoder(encoderConfig())
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), atom),
		zapcore.NewCore(enc, rotating(file), atom),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// NewJournal returns a logger that appends one JSON line per entry to a rotated file.
// An empty path disables the journal.
func NewJournal(path string) *zap.Logger {
	if path == "" {
		return zap.NewNop()
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), rotating(path), zapcore.InfoLevel)
	return zap.New(core)
}
