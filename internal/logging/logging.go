// Package logging is the process-wide structured logging facade.
//
// It wraps zap the way the rest of the corpus does: an AtomicLevel so
// the level can be changed without rebuilding the core, a console
// encoder with colored levels, and package-level helpers so call sites
// never have to thread a *zap.Logger through every function signature.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu       sync.Mutex
	log      *zap.Logger
	level    = zap.NewAtomicLevelAt(zap.InfoLevel)
	encCfg   = defaultEncoderConfig()
	stdoutW  = zapcore.Lock(zapcore.AddSync(os.Stdout))
	stderrW  = zapcore.Lock(zapcore.AddSync(os.Stderr))
	fileSync zapcore.WriteSyncer
)

func defaultEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// rebuildLocked recreates the global logger core. Caller must hold mu.
func rebuildLocked() {
	encoder := zapcore.NewConsoleEncoder(encCfg)
	sinks := []zapcore.WriteSyncer{stdoutW}
	if fileSync != nil {
		sinks = append(sinks, fileSync)
	}
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	if log != nil {
		_ = log.Sync()
	}
	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.ErrorOutput(stderrW))
}

// Init sets the global log level. Accepted values: debug, info (default), warn, error.
func Init(lvl string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(lvl) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "warn":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}
	rebuildLocked()
}

// SetFileSink attaches a rotating log file alongside stdout. path == "" disables it.
func SetFileSink(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	mu.Lock()
	defer mu.Unlock()

	if path == "" {
		fileSync = nil
		rebuildLocked()
		return
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	fileSync = zapcore.AddSync(lj)
	rebuildLocked()
}

// SetWriters overrides the stdout/stderr sinks. nil restores the OS defaults.
func SetWriters(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if stdout == nil {
		stdoutW = zapcore.Lock(zapcore.AddSync(os.Stdout))
	} else {
		stdoutW = zapcore.Lock(zapcore.AddSync(stdout))
	}
	if stderr == nil {
		stderrW = zapcore.Lock(zapcore.AddSync(os.Stderr))
	} else {
		stderrW = zapcore.Lock(zapcore.AddSync(stderr))
	}
	rebuildLocked()
}

// Logger returns the current *zap.Logger, lazily constructing it on first use.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		rebuildLocked()
	}
	return log
}

func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Logger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Logger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }

// Fatal logs at Fatal level, flushes buffers, then exits the process.
func Fatal(msg string, fields ...zap.Field) {
	Logger().Fatal(msg, fields...)
	_ = Logger().Sync()
	os.Exit(1)
}

func Debugf(format string, a ...any) { Logger().Sugar().Debugf(format, a...) }
func Infof(format string, a ...any)  { Logger().Sugar().Infof(format, a...) }
func Warnf(format string, a ...any)  { Logger().Sugar().Warnf(format, a...) }
func Errorf(format string, a ...any) { Logger().Sugar().Errorf(format, a...) }
