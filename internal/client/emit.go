package client

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dsh2dsh/logchain/internal/channels"
	"github.com/dsh2dsh/logchain/internal/cli"
	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/logging"
)

var emitArgs struct {
	channel string
	level   string
	context map[string]string
}

var EmitCmd = &cli.Subcommand{
	Use:     "emit [flags] MESSAGE...",
	Short:   "dispatch one record into a channel",
	Example: "  logchain emit -c app -l error --context user=bob 'login failed'",

	SetupFlags: func(f *pflag.FlagSet) {
		f.StringVarP(&emitArgs.channel, "channel", "c", "",
			"channel name (default first configured channel)")
		f.StringVarP(&emitArgs.level, "level", "l", "info", "record level")
		f.StringToStringVar(&emitArgs.context, "context", nil,
			"context fields of the record")
	},

	Run: func(ctx context.Context, subcommand *cli.Subcommand, args []string,
	) error {
		if len(args) == 0 {
			return errors.New("empty message")
		}
		chs, err := channels.FromConfig(subcommand.Config())
		if err != nil {
			return err
		}
		name := channelName(subcommand.Config(), emitArgs.channel)
		return errors.Join(
			emit(ctx, chs, name, emitArgs.level, strings.Join(args, " "),
				emitArgs.context),
			chs.Close())
	},
}

func emit(ctx context.Context, chs *channels.Channels, channel, levelName,
	msg string, ctxFields map[string]string,
) error {
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return err
	}
	l, err := chs.Logger(channel)
	if err != nil {
		return err
	}

	fields := make([]logger.Field, 0, len(ctxFields))
	for _, k := range slices.Sorted(maps.Keys(ctxFields)) {
		fields = append(fields, logger.Field{Key: k, Value: ctxFields[k]})
	}

	handled, err := l.Emit(ctx, level, msg, fields...)
	if err != nil {
		return fmt.Errorf("emit into %q: %w", channel, err)
	} else if !handled {
		logging.GetLogger(ctx, logging.SubsysCLI).
			With("channel", channel, "level", level.Name()).
			Warn("no handler accepted the record")
	}
	return nil
}
