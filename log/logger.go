// Package log provides structured logging with run context.
// All entries carry run_id and mode fields attached at construction.
package log

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/minecart-io/minecart/types"
)

// FileSink configures the optional rotating log file.
type FileSink struct {
	// Dir is the directory the log file is created in.
	Dir string
	// Name is the log file name (e.g. "minecart_download.log").
	Name string
	// MaxSizeMB rotates the file once it exceeds this size. Default 10.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept. Default 5.
	MaxBackups int
}

// Logger provides structured logging with run context.
// All entries carry run_id and mode fields.
type Logger struct {
	zap *zap.Logger
	// context is kept so WithOutput can rebuild the logger on a new core.
	context []zap.Field
}

// NewLogger creates a logger writing JSON to stderr at Info level.
// When sink is non-nil, a second Debug-level core writes to a rotating
// file under sink.Dir.
func NewLogger(runMeta *types.RunMeta, sink *FileSink) *Logger {
	cores := []zapcore.Core{
		zapcore.NewCore(jsonEncoder(), zapcore.AddSync(os.Stderr), zapcore.InfoLevel),
	}

	if sink != nil {
		maxSize := sink.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := sink.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 5
		}
		rotor := &lumberjack.Logger{
			Filename:   filepath.Join(sink.Dir, sink.Name),
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotor), zapcore.DebugLevel))
	}

	context := contextFields(runMeta)
	zapLogger := zap.New(zapcore.NewTee(cores...)).With(context...)
	return &Logger{zap: zapLogger, context: context}
}

// WithOutput returns a new logger writing only to w at Debug level,
// keeping the run-context fields. Used by tests to capture output.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	core := zapcore.NewCore(jsonEncoder(), zapcore.AddSync(w), zapcore.DebugLevel)
	return &Logger{zap: zap.New(core).With(l.context...), context: l.context}
}

func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
}

func contextFields(runMeta *types.RunMeta) []zap.Field {
	if runMeta == nil {
		return nil
	}
	return []zap.Field{
		zap.String("run_id", runMeta.RunID),
		zap.String("mode", string(runMeta.Mode)),
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}
