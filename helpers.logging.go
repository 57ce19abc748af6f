package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LoggerContextKey ContextKey = "request.logger"
	megabyte                    = 1 << 20
)

// RotatingLogFile is the zapcore.WriteSyncer behind the file core. A new file
// named after the current time is opened once the next entry would push the
// current one over the configured size.
type RotatingLogFile struct {
	mu       sync.Mutex
	clock    Clocker
	folder   string
	env      string
	maxBytes int64
	file     *os.File
	written  int64
}

func NewRotatingLogFile(config *Config, clock Clocker) *RotatingLogFile {
	env := "dev"
	if config.IsProduction {
		env = "prod"
	}
	return &RotatingLogFile{
		clock:    clock,
		folder:   config.LogFolder,
		env:      env,
		maxBytes: int64(config.LogMaxSize) * megabyte,
	}
}

func (lf *RotatingLogFile) Write(p []byte) (int, error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	size := int64(len(p))
	if size > lf.maxBytes {
		return 0, fmt.Errorf("logging: entry of %d bytes exceeds max file size of %d bytes", size, lf.maxBytes)
	}
	if lf.file == nil || lf.written+size > lf.maxBytes {
		if err := lf.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := lf.file.Write(p)
	lf.written += int64(n)
	return n, err
}

// rotate closes the current file if any and opens a fresh one. Callers hold the lock.
func (lf *RotatingLogFile) rotate() error {
	if lf.file != nil {
		if err := lf.file.Close(); err != nil {
			return err
		}
		lf.file = nil
	}
	file, err := os.OpenFile(LogFilePath(lf.folder, lf.env, lf.clock.Now()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	lf.file, lf.written = file, 0
	return nil
}

func (lf *RotatingLogFile) Sync() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.file == nil {
		return nil
	}
	return lf.file.Sync()
}

func (lf *RotatingLogFile) Close() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.file == nil {
		return nil
	}
	err := lf.file.Close()
	lf.file = nil
	return err
}

// LogFilePath builds the path of a log file opened at t.
func LogFilePath(folder, env string, t time.Time) string {
	return filepath.Join(folder, "libros."+t.Format("20060102.150405")+"."+env+".log")
}

// consoleSyncer skips Sync on the terminal, which fails with
// `Handle is invalid` or `invalid argument` on some platforms.
type consoleSyncer struct {
	out *os.File
}

func (cs consoleSyncer) Write(p []byte) (int, error) { return cs.out.Write(p) }

func (cs consoleSyncer) Sync() error { return nil }

func encoderConfig(isProd bool) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	if isProd {
		ec = zap.NewProductionEncoderConfig()
	}
	ec.TimeKey, ec.LevelKey, ec.NameKey = "ts", "lvl", "name"
	ec.MessageKey, ec.CallerKey, ec.StacktraceKey = "msg", "caller", "skt"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return ec
}

// SetupLogging builds the app logger. Entries always go as JSON to w and,
// outside production, are echoed to the console. Only fatal entries carry
// a stacktrace. The returned func flushes buffered entries.
func SetupLogging(config *Config, w zapcore.WriteSyncer, clock zapcore.Clock) (*zap.Logger, func() error) {
	ec := encoderConfig(config.IsProduction)
	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(ec), w, config.LogLevel)}
	if !config.IsProduction {
		console := zapcore.Lock(consoleSyncer{os.Stdout})
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(ec), console, config.LogLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.FatalLevel),
		zap.WithClock(clock),
	).With(
		zap.String("app.commit", config.GitCommit),
		zap.String("app.tag", config.GitTag),
		zap.String("app.built", config.BuildTime),
	)

	return logger, func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("[flush logs]: %w", err)
		}
		return nil
	}
}

// GetLoggerFromContext returns the request scoped logger, or the app one.
func (api *APIHandler) GetLoggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*zap.Logger); ok {
		return logger
	}
	return api.logger
}
