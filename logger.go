package auth

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus entry to Logger
type LogrusLogger struct {
	entry *logrus.Entry
}

var _ Logger = (*LogrusLogger)(nil)

// NewLogrusLogger returns a Logger that writes through l, tagging every
// entry with the given component name.
func NewLogrusLogger(l *logrus.Logger, component string) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	entry := logrus.NewEntry(l)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return &LogrusLogger{entry: entry}
}

// Named returns a child logger for a sub component
func (l *LogrusLogger) Named(component string) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

func (l *LogrusLogger) Debug(msg string, args ...any) {
	l.entry.WithFields(fieldsFromArgs(args)).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, args ...any) {
	l.entry.WithFields(fieldsFromArgs(args)).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, args ...any) {
	l.entry.WithFields(fieldsFromArgs(args)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, args ...any) {
	l.entry.WithFields(fieldsFromArgs(args)).Error(msg)
}

func fieldsFromArgs(args []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			fields["!BADKEY"] = key
			break
		}

		value := args[i+1]
		if err, ok := value.(error); ok {
			fields[key] = err.Error()
			if oopsErr, ok := oops.AsOops(err); ok {
				if code := CodeOf(oopsErr); code != "" {
					fields[key+"_code"] = string(code)
				}
				for k, v := range oopsErr.Context() {
					fields[key+"_"+k] = v
				}
			}
			continue
		}
		fields[key] = value
	}
	return fields
}

func defLogger() Logger {
	return NewLogrusLogger(logrus.StandardLogger(), "auth")
}

func resolveLogger(l Logger) Logger {
	if l == nil {
		return defLogger()
	}
	return l
}
