package logger

import (
	"go.uber.org/zap"
)

type Logger interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

type logger struct {
	zap *zap.Logger
}

func (l logger) Info(msg string, fields ...Field)  { l.zap.Info(msg, fields...) }
func (l logger) Warn(msg string, fields ...Field)  { l.zap.Warn(msg, fields...) }
func (l logger) Error(msg string, fields ...Field) { l.zap.Error(msg, fields...) }

// New builds a production zap logger tagged with the service namespace.
func New(namespace string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.InitialFields = map[string]interface{}{
		"namespace": namespace,
	}
	z, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger{zap: z}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() Logger {
	return logger{zap: zap.NewNop()}
}
