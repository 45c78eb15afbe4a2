// Package process delivers formatted records to the standard input of a
// long-lived child process.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/logging"
)

const (
	DefaultStartupTimeout = time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultCloseTimeout   = 5 * time.Second
)

// errorStream is the read end of the child's standard error.
type errorStream interface {
	// Select waits up to timeout until the stream has something to read,
	// including end of file.
	Select(timeout time.Duration) (bool, error)

	// ReadAvailable reads what can be read without blocking.
	ReadAvailable() ([]byte, error)

	Close() error
}

type Config struct {
	Command string
	Args    []string
	Dir     string
	Policy  ArgPolicy

	StartupTimeout time.Duration
	WriteTimeout   time.Duration
	CloseTimeout   time.Duration

	// Stdout receives standard output of the child. It's discarded by
	// default.
	Stdout io.Writer
}

// NewSink validates cfg and returns a sink in NotStarted state. The child is
// spawned by the first Write.
func NewSink(cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, fmt.Errorf("%w: empty command",
			logger.ErrInvalidConfiguration)
	}

	if cfg.Dir != "" {
		if fi, err := os.Stat(cfg.Dir); err != nil {
			return nil, fmt.Errorf("%w: working directory: %w",
				logger.ErrInvalidConfiguration, err)
		} else if !fi.IsDir() {
			return nil, fmt.Errorf("%w: working directory %q is not a directory",
				logger.ErrInvalidConfiguration, cfg.Dir)
		}
	}

	argv, err := buildArgv(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = DefaultStartupTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultCloseTimeout
	}

	s := &Sink{cfg: cfg, argv: argv, newStream: newErrorStream}
	return s, nil
}

func buildArgv(cfg Config) ([]string, error) {
	switch cfg.Policy {
	case ShellArgs:
		line := cfg.Command
		if len(cfg.Args) > 0 {
			line += " " + shellquote.Join(cfg.Args...)
		}
		return []string{"/bin/sh", "-c", line}, nil
	case ExecArgs:
		words, err := shellquote.Split(cfg.Command)
		if err != nil {
			return nil, fmt.Errorf("%w: split command %q: %w",
				logger.ErrInvalidConfiguration, cfg.Command, err)
		} else if len(words) == 0 {
			return nil, fmt.Errorf("%w: empty command",
				logger.ErrInvalidConfiguration)
		}
		return append(words, cfg.Args...), nil
	}
	return nil, fmt.Errorf("%w: unknown argument policy %d",
		logger.ErrInvalidConfiguration, int(cfg.Policy))
}

// Sink owns a child process and its standard streams. Any output of the
// child to its standard error, at startup or later, fails the sink. A sink
// is not safe for concurrent use.
type Sink struct {
	cfg  Config
	argv []string

	state State
	err   error
	res   *resources

	newStream func(f *os.File) (errorStream, error)
	cleanup   runtime.Cleanup
}

func (self *Sink) State() State { return self.state }

// Err returns the failure which moved the sink to Failed.
func (self *Sink) Err() error { return self.err }

func (self *Sink) String() string { return shellquote.Join(self.argv...) }

// Write passes b to standard input of the child, starting it first if
// needed.
func (self *Sink) Write(ctx context.Context, b []byte) error {
	switch self.state {
	case NotStarted:
		if err := self.start(ctx); err != nil {
			return err
		}
	case Closed:
		return ErrClosed
	case Failed:
		return self.err
	}

	if err := self.checkErrors(ctx); err != nil {
		return err
	}

	if err := self.res.write(b, self.cfg.WriteTimeout); err != nil {
		return self.fail(ctx, fmt.Errorf("%w: %q: %w", ErrProcessRuntime,
			self.String(), err))
	}
	return self.checkErrors(ctx)
}

func (self *Sink) start(ctx context.Context) error {
	self.state = Starting
	l := self.logger(ctx)
	l.Debug("spawn")

	res, err := spawn(self.cfg, self.argv)
	if err != nil {
		return self.fail(ctx, fmt.Errorf("%w: %q: %w", ErrProcessStartup,
			self.String(), err))
	}
	self.res = res
	self.cleanup = runtime.AddCleanup(self, func(res *resources) {
		res.release(0)
	}, res)

	stream, err := self.newStream(res.stderrFile)
	if err != nil {
		return self.fail(ctx, fmt.Errorf("%w: %w", ErrStartupIO, err))
	}
	res.stderr = stream

	ready, err := stream.Select(self.cfg.StartupTimeout)
	if err != nil {
		return self.fail(ctx, fmt.Errorf("%w: %w", ErrStartupIO, err))
	} else if ready {
		output, err := stream.ReadAvailable()
		if err != nil {
			return self.fail(ctx, fmt.Errorf("%w: %w", ErrStartupIO, err))
		} else if len(output) > 0 {
			logging.LogOutput(l, slog.LevelError, "stderr", output)
			return self.fail(ctx, newStreamError(ErrProcessStartup,
				self.String(), output))
		}
	}

	self.state = Running
	l.With("pid", res.cmd.Process.Pid).Info("started")
	return nil
}

// checkErrors fails the sink if the child wrote something to its error
// stream. It doesn't wait.
func (self *Sink) checkErrors(ctx context.Context) error {
	ready, err := self.res.stderr.Select(0)
	if err != nil {
		return self.fail(ctx, fmt.Errorf("%w: %w",
			ErrProcessRuntime, err))
	} else if !ready {
		return nil
	}

	output, err := self.res.stderr.ReadAvailable()
	if err != nil {
		return self.fail(ctx, fmt.Errorf("%w: %w",
			ErrProcessRuntime, err))
	} else if len(output) > 0 {
		logging.LogOutput(self.logger(ctx), slog.LevelError, "stderr", output)
		return self.fail(ctx, newStreamError(
			ErrProcessRuntime, self.String(), output))
	}
	return nil
}

func (self *Sink) fail(ctx context.Context, err error) error {
	self.state = Failed
	self.err = err
	self.logger(ctx).WithError(err).Error("sink failed")
	self.release()
	return err
}

func (self *Sink) release() error {
	if self.res == nil {
		return nil
	}
	self.cleanup.Stop()
	err := self.res.release(self.cfg.CloseTimeout)
	self.res = nil
	return err
}

// Close closes standard input of the child and waits for it to exit, killing
// it after the close timeout. Closing a sink which never started or is
// already closed does nothing.
func (self *Sink) Close() error {
	switch self.state {
	case NotStarted, Closed:
		return nil
	}
	self.state = Closed
	if err := self.release(); err != nil {
		return fmt.Errorf("close %q: %w", self.String(), err)
	}
	return nil
}

func (self *Sink) logger(ctx context.Context) *logger.Logger {
	return logging.GetLogger(ctx, logging.SubsysProcess).
		WithField("command", self.String()).
		WithField("state", self.state.String())
}

// --------------------------------------------------

// resources are everything a running child holds. They are released by
// Close, by a failure or, if the sink was dropped, by the runtime.
type resources struct {
	cmd        *exec.Cmd
	stdin      *os.File
	stderrFile *os.File
	stderr     errorStream
	done       chan error
}

func spawn(cfg Config, argv []string) (*resources, error) {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdinR.Close()
		_ = stdinW.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Stdin = stdinR
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = stderrW

	err = cmd.Start()
	// the child has its own copies now
	_ = stdinR.Close()
	_ = stderrW.Close()
	if err != nil {
		_ = stdinW.Close()
		_ = stderrR.Close()
		return nil, fmt.Errorf("start: %w", err)
	}

	res := &resources{
		cmd:        cmd,
		stdin:      stdinW,
		stderrFile: stderrR,
		done:       make(chan error, 1),
	}
	go func() { res.done <- cmd.Wait() }()
	return res, nil
}

func (self *resources) write(b []byte, timeout time.Duration) error {
	if err := self.stdin.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := self.stdin.Write(b); err != nil {
		return fmt.Errorf("write to stdin: %w", err)
	}
	return nil
}

// release closes stdin, waits up to timeout for the child to exit and kills
// it after that.
func (self *resources) release(timeout time.Duration) error {
	var errs []error
	if err := self.stdin.Close(); err != nil &&
		!errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("close stdin: %w", err))
	}

	if err := self.wait(timeout); err != nil {
		errs = append(errs, err)
	}

	var err error
	if self.stderr != nil {
		err = self.stderr.Close()
	} else {
		err = self.stderrFile.Close()
	}
	if err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (self *resources) wait(timeout time.Duration) error {
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case err := <-self.done:
			return exitError(err)
		case <-timer.C:
		}
	}

	if err := self.cmd.Process.Kill(); err != nil &&
		!errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill: %w", err)
	}
	if timeout > 0 {
		<-self.done
		return fmt.Errorf("killed after %s", timeout)
	}
	return nil
}

func exitError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("exited with error: %w", err)
}
