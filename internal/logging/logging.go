package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	compileIDField = "compile_id"
	batchIDField   = "batch_id"
)

// New builds a logger writing to stderr. The CLI keeps stdout free for
// generated documents.
func New(json bool, level string) (*zap.Logger, error) {
	return NewWithWriter(os.Stderr, json, level)
}

// NewWithWriter builds a JSON or console logger writing to w.
func NewWithWriter(w io.Writer, json bool, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	var enc zapcore.Encoder
	if json {
		enc = jsonEncoder()
	} else {
		enc = consoleEncoder()
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel)), nil
}

// ParseLevel accepts zap level names; the empty string means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

func baseEncoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	ec.TimeKey = "time"
	return ec
}

func jsonEncoder() zapcore.Encoder {
	ec := baseEncoderConfig()
	ec.EncodeTime = zapcore.EpochMillisTimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

func consoleEncoder() zapcore.Encoder {
	ec := baseEncoderConfig()
	ec.ConsoleSeparator = " "
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func WithCompileID(id string) zap.Field {
	return zap.String(compileIDField, id)
}

func WithBatchID(id string) zap.Field {
	return zap.String(batchIDField, id)
}
