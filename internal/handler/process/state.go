package process

import (
	"fmt"
	"strings"

	"github.com/dsh2dsh/logchain/internal/logger"
)

type State int

const (
	NotStarted State = iota
	Starting
	Running
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ArgPolicy selects how the command line is turned into an argv.
type ArgPolicy int

const (
	// ShellArgs runs the command by "sh -c". Additional arguments are quoted
	// and appended to the command line.
	ShellArgs ArgPolicy = iota

	// ExecArgs splits the command by shell quoting rules and executes it
	// directly, with additional arguments passed as is.
	ExecArgs
)

func ParseArgPolicy(s string) (ArgPolicy, error) {
	switch strings.ToLower(s) {
	case "", "shell":
		return ShellArgs, nil
	case "exec":
		return ExecArgs, nil
	}
	return 0, fmt.Errorf("%w: unknown argument policy %q",
		logger.ErrInvalidConfiguration, s)
}

func (p ArgPolicy) String() string {
	if p == ExecArgs {
		return "exec"
	}
	return "shell"
}
