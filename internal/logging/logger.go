package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "MCM_LOG_LEVEL"

// LogFileEnvVar names a file that receives log output instead of stdout.
const LogFileEnvVar = "MCM_LOG_FILE"

// Rotation limits for file output.
const (
	maxLogSizeMB   = 10
	maxLogBackups  = 3
	maxLogAgeDays  = 14
	maxDumpedBytes = 256
)

// Initialize creates a new logger with the specified level.
// If level is empty, it checks MCM_LOG_LEVEL. If neither is set, logging is
// disabled. MCM_LOG_FILE redirects output to a rotated file.
func Initialize(level string) error {
	return InitializeWithFile(level, os.Getenv(LogFileEnvVar))
}

// InitializeWithFile is Initialize with an explicit log file. An empty path
// writes to stdout.
func InitializeWithFile(level, path string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		setLogger(zap.NewNop())
		return nil
	}

	zapLevel := parseLevel(level)

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var sink zapcore.WriteSyncer
	if path == "" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		sink = zapcore.Lock(zapcore.AddSync(os.Stdout))
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		// No color escapes in files.
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		})
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), sink, zap.NewAtomicLevelAt(zapLevel))
	setLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer
// style cores.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	setLogger(l)
}

func setLogger(l *zap.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		// Unknown level - use info when explicitly set to something
		return zapcore.InfoLevel
	}
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogConnection logs a channel lifecycle event
func LogConnection(addr string, event string, fields ...zap.Field) {
	Info("Connection event", append([]zap.Field{
		zap.String("addr", addr),
		zap.String("event", event),
	}, fields...)...)
}

// LogEnvelope logs a JSON envelope crossing the channel. Heartbeat markers
// and envelopes are only visible at debug level.
func LogEnvelope(addr string, direction string, data []byte) {
	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		return
	}
	Debug("Envelope",
		zap.String("addr", addr),
		zap.String("direction", direction),
		zap.Int("length", len(data)),
		zap.String("content", truncate(data)),
	)
}

// LogBusFrame logs a LIN frame exchanged through the master.
func LogBusFrame(direction string, frameID uint8, data []byte) {
	Debug("LIN frame",
		zap.String("direction", direction),
		zap.String("frame_id", fmt.Sprintf("0x%02X", frameID)),
		zap.String("hex", hexDump(data)),
	)
}

// LogRawBytes logs raw bytes (useful for debugging diagnostic payloads)
func LogRawBytes(label string, data []byte) {
	Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
		zap.String("ascii", asciiDump(data)),
	)
}

func truncate(data []byte) string {
	if len(data) > maxDumpedBytes {
		return string(data[:maxDumpedBytes]) + "..."
	}
	return string(data)
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpedBytes {
		return hex.EncodeToString(data[:maxDumpedBytes]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpedBytes {
		data = data[:maxDumpedBytes]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}
