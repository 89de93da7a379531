package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Logger is a thin key-value wrapper over a sugared zap logger.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger. mode "prod"/"production" emits JSON at info level,
// anything else is the human-readable development encoder at debug level.
func New(mode string) (*Logger, error) {
	return build(configFor(mode))
}

// NewToFile is like New but writes to path instead of stderr. The terminal
// grid owns the screen, so it logs here.
func NewToFile(mode, path string) (*Logger, error) {
	cfg := configFor(mode)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return build(cfg)
}

func configFor(mode string) zap.Config {
	switch strings.ToLower(mode) {
	case "prod", "production":
		return zap.NewProductionConfig()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return cfg
}

func build(cfg zap.Config) (*Logger, error) {
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, keysAndValues...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
