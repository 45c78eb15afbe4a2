package channels

import (
	"github.com/dsh2dsh/logchain/internal/config"
	"github.com/dsh2dsh/logchain/internal/formatter"
	"github.com/dsh2dsh/logchain/internal/handler"
	"github.com/dsh2dsh/logchain/internal/logger"
)

const DiagnosticsChannel = "logchain"

// DiagnosticsLogger returns a logger for the library's own trouble. It has a
// chain of its own, so handlers of configured channels can log through it
// while being dispatched.
func DiagnosticsLogger(in *config.Diagnostics) (*logger.Logger, error) {
	h, err := handler.NewStd(in.Target)
	if err != nil {
		return nil, err
	}
	h.SetLevel(in.Level)

	f := formatter.NewSlog().
		WithHideFields(in.HideFields).
		WithLogTime(in.Time)
	if in.Format == "json" {
		f.WithJsonHandler()
	}
	h.SetFormatter(f)

	chain := handler.NewChain(h).WithName(DiagnosticsChannel)
	return logger.NewLogger(DiagnosticsChannel, chain), nil
}
