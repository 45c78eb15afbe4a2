// Package logging carries the diagnostic logger of the library in a
// context. Handlers, sinks and the CLI report their own trouble through
// it, separately from the records they deliver.
package logging

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"

	"github.com/dsh2dsh/logchain/internal/logger"
)

const (
	SubsysChain   Subsystem = "chain"
	SubsysCLI     Subsystem = "cli"
	SubsysGit     Subsystem = "git"
	SubsysMail    Subsystem = "mail"
	SubsysProcess Subsystem = "process"
	SubsysSocket  Subsystem = "socket"
	SubsysSyslog  Subsystem = "syslog"
)

const SubsysField string = "subsystem"

type ctxKey struct{}

var ctxKeyLogger ctxKey = struct{}{}

type Subsystem string

func WithField(ctx context.Context, field string, value any,
) context.Context {
	return WithLogger(ctx, FromContext(ctx).WithField(field, value))
}

func WithLogger(ctx context.Context, l *logger.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, l)
}

func GetLogger(ctx context.Context, subsys Subsystem) *logger.Logger {
	return FromContext(ctx).WithField(SubsysField, subsys)
}

func FromContext(ctx context.Context) *logger.Logger {
	l, ok := ctx.Value(ctxKeyLogger).(*logger.Logger)
	if ok && l != nil {
		return l
	}
	return logger.NewNullLogger()
}

// LogOutput logs every line of output as a separate message, prefixed by
// field.
func LogOutput(l *logger.Logger, level slog.Level, field string,
	output []byte,
) {
	if len(output) == 0 {
		return
	}

	ctx := context.Background()
	s := bufio.NewScanner(bytes.NewReader(output))
	for s.Scan() {
		l.Log(ctx, level, field+": "+s.Text())
	}
}
