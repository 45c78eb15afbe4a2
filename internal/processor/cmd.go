package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/logging"
)

func newCommand(name string, arg ...string) *cmd {
	return &cmd{name: name, args: arg}
}

// cmd runs a short-lived helper command and captures its output.
type cmd struct {
	name string
	args []string
	dir  string

	timeout time.Duration

	cmd    *exec.Cmd
	output []byte
}

func (self *cmd) WithDir(dir string) *cmd {
	self.dir = dir
	return self
}

func (self *cmd) WithTimeout(t time.Duration) *cmd {
	self.timeout = t
	return self
}

func (self *cmd) Run(ctx context.Context) error {
	if self.timeout > 0 {
		ctx2, cancel := context.WithTimeout(ctx, self.timeout)
		defer cancel()
		ctx = ctx2
	}

	cmd := exec.CommandContext(ctx, self.name, self.args...)
	cmd.Dir = self.dir
	self.cmd = cmd

	l := logging.GetLogger(ctx, logging.SubsysGit)
	l.Debug("\"" + cmd.String() + "\"")

	output, err := cmd.Output()
	self.output = output
	if err != nil {
		return fmt.Errorf("exec %q: %w",
			self.String(), self.wrapError(ctx, l, err))
	}
	return nil
}

func (self *cmd) wrapError(ctx context.Context, l *logger.Logger, err error,
) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) && len(ee.Stderr) != 0 {
		logging.LogOutput(l, slog.LevelDebug, "stderr", ee.Stderr)
	}

	if errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s: %w", self.timeout, err)
	}
	return fmt.Errorf("exited with error: %w", err)
}

func (self *cmd) String() string {
	if self.cmd != nil {
		return self.cmd.String()
	}
	return self.name
}

func (self *cmd) Output() []byte { return self.output }
