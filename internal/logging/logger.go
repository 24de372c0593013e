package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
	OperationID string
}

// NewLogger builds a production logger at the given level. Every line
// carries the op_id of the invocation that produced it.
func NewLogger(level string) (*Logger, error) {
	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return withOperation(logger), nil
}

// NewDevelopment is the verbose logger used by --verbose.
func NewDevelopment() (*Logger, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return withOperation(logger), nil
}

// Nop discards everything; handy for tests and library callers.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func withOperation(logger *zap.Logger) *Logger {
	opID := uuid.New().String()
	return &Logger{
		Logger:      logger.With(zap.String("op_id", opID)),
		OperationID: opID,
	}
}

// Named returns a child logger for a component.
func (l *Logger) Named(component string) *zap.Logger {
	return l.Logger.Named(component)
}
