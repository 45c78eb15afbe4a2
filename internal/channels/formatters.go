package channels

import (
	"fmt"

	"github.com/dsh2dsh/logchain/internal/config"
	"github.com/dsh2dsh/logchain/internal/formatter"
	"github.com/dsh2dsh/logchain/internal/logger"
)

func FormatterFromConfig(in *config.Formatting) (formatter.Formatter, error) {
	switch in.Format {
	case "", "human":
		f := formatter.NewLine().
			WithColor(in.Color).
			WithInlineLineBreaks(in.InlineLineBreaks).
			WithIgnoreEmpty(in.IgnoreEmpty)
		if in.TimeLayout != "" {
			f.WithTimeLayout(in.TimeLayout)
		}
		return f, nil
	case "logfmt":
		return parseSlogFormatter(in).WithTextHandler(), nil
	case "json":
		return parseSlogFormatter(in).WithJsonHandler(), nil
	case "fluentd":
		return formatter.NewFluentd().WithLevelTag(in.LevelTag), nil
	case "cbor":
		return formatter.NewCBOR()
	}
	return nil, fmt.Errorf("%w: invalid log format %q",
		logger.ErrInvalidConfiguration, in.Format)
}

func parseSlogFormatter(in *config.Formatting) *formatter.Slog {
	f := formatter.NewSlog().
		WithHideFields(in.HideFields).
		WithLogTime(in.Time)
	if in.TimeLayout != "" {
		f.WithTimeLayout(in.TimeLayout)
	}
	return f
}
