package logging

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus entry to Logger.
type LogrusLogger struct {
	e *logrus.Entry
}

func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{e: logrus.NewEntry(l)}
}

// NewDefaultLogrusLogger writes JSON records to stdout at info level.
func NewDefaultLogrusLogger() *LogrusLogger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	return NewLogrusLogger(l)
}

// fields turns key/value pairs into logrus fields. A dangling key is kept
// under "!BADKEY" like slog does.
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 == len(args) {
			f["!BADKEY"] = args[i]
			break
		}
		f[key] = args[i+1]
	}
	return f
}

func (l *LogrusLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.e.WithContext(ctx).WithFields(fields(args)).Debug(msg)
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, args ...any) {
	l.e.WithContext(ctx).WithFields(fields(args)).Info(msg)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.e.WithContext(ctx).WithFields(fields(args)).Warn(msg)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, args ...any) {
	l.e.WithContext(ctx).WithFields(fields(args)).Error(msg)
}

func (l *LogrusLogger) With(args ...any) Logger {
	return &LogrusLogger{e: l.e.WithFields(fields(args))}
}
