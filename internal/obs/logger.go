package obs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yanun0323/logs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging capability injected into components.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

var (
	_ Logger = stdLogger{}
	_ Logger = (*ZapLogger)(nil)
	_ Logger = nopLogger{}
)

// DefaultLogger returns a logger backed by github.com/yanun0323/logs.
func DefaultLogger() Logger {
	return stdLogger{}
}

type stdLogger struct{}

func (stdLogger) Infof(format string, args ...any) {
	logs.Infof(format, args...)
}

func (stdLogger) Errorf(format string, args ...any) {
	logs.Errorf(format, args...)
}

// NopLogger discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// ZapLogger adapts a zap logger.
type ZapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger wraps l. A nil l yields a no-op zap logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{l: l.Sugar()}
}

func (z *ZapLogger) Infof(format string, args ...any) {
	z.l.Infof(format, args...)
}

func (z *ZapLogger) Errorf(format string, args ...any) {
	z.l.Errorf(format, args...)
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.l.Sync()
}

// NewZapFileLogger builds a JSON zap logger writing to stdout and, when path is set, to path as well.
func NewZapFileLogger(path string) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zap.InfoLevel),
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), zap.InfoLevel))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}
