package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dsh2dsh/logchain/internal/channels"
	"github.com/dsh2dsh/logchain/internal/cli"
	"github.com/dsh2dsh/logchain/internal/config"
	"github.com/dsh2dsh/logchain/internal/config/env"
	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/logging"
)

var pipeArgs struct {
	channel string
	level   string
	json    bool
	batch   bool
	metrics string
}

var PipeCmd = &cli.Subcommand{
	Use:   "pipe",
	Short: "dispatch every line of stdin as a record",
	Long: `Every line of standard input becomes a record of the channel. With --json
a line is an object like
  {"channel": "app", "level": "error", "message": "...", "context": {...}}
where everything except the message is optional.`,

	SetupFlags: func(f *pflag.FlagSet) {
		f.StringVarP(&pipeArgs.channel, "channel", "c", "",
			"channel name (default first configured channel)")
		f.StringVarP(&pipeArgs.level, "level", "l", "info",
			"level of records without one")
		f.BoolVar(&pipeArgs.json, "json", false, "read JSON records")
		f.BoolVar(&pipeArgs.batch, "batch", false,
			"read stdin to the end and dispatch everything as one batch")
		f.StringVar(&pipeArgs.metrics, "metrics", "",
			"serve prometheus metrics on this address (default from config)")
	},

	Run: func(ctx context.Context, subcommand *cli.Subcommand, _ []string,
	) error {
		c := subcommand.Config()
		level, err := logger.ParseLevel(pipeArgs.level)
		if err != nil {
			return err
		}
		p := &pipe{
			channel: channelName(c, pipeArgs.channel),
			level:   level,
			json:    pipeArgs.json,
			batch:   pipeArgs.batch,
		}
		return runPipe(ctx, c, p, metricsAddr(c, pipeArgs.metrics), os.Stdin)
	},
}

func channelName(c *config.Config, name string) string {
	if name == "" && len(c.Channels) > 0 {
		return c.Channels[0].Name
	}
	return name
}

func metricsAddr(c *config.Config, addr string) string {
	if addr == "" && len(c.Global.Monitoring) > 0 {
		return c.Global.Monitoring[0].Listen
	}
	return addr
}

func runPipe(ctx context.Context, c *config.Config, p *pipe, listen string,
	r io.ReadCloser,
) (err error) {
	chs, err := channels.FromConfig(c)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, chs.Close()) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if listen != "" {
		g.Go(func() error { return serveMetrics(ctx, listen) })
	}

	// unblocks the scanner on a signal
	stop := context.AfterFunc(ctx, func() { r.Close() })
	defer stop()

	g.Go(func() error {
		defer cancel()
		return p.Run(ctx, chs, r)
	})
	return g.Wait()
}

type pipe struct {
	channel string
	level   logger.Level
	json    bool
	batch   bool
	maxLine int

	records []logger.Record
}

type jsonRecord struct {
	Channel string        `json:"channel"`
	Level   logger.Level  `json:"level"`
	Message string        `json:"message"`
	Context logger.Fields `json:"context"`
}

func (self *pipe) Run(ctx context.Context, chs *channels.Channels,
	r io.Reader,
) error {
	log := logging.GetLogger(ctx, logging.SubsysCLI)
	s := bufio.NewScanner(r)
	maxLine := self.maxLine
	if maxLine <= 0 {
		maxLine = env.Values.PipeMaxLine
	}
	s.Buffer(make([]byte, 0, min(bufio.MaxScanTokenSize, maxLine)), maxLine)
	var lineno int
	for s.Scan() {
		lineno++
		line := s.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := self.record(line)
		if err != nil {
			log.WithError(err).With("line", lineno).Warn("skip malformed record")
			continue
		} else if err := self.dispatch(ctx, chs, rec); err != nil {
			return err
		}
	}

	if err := s.Err(); errors.Is(err, bufio.ErrTooLong) {
		return fmt.Errorf("read record #%d longer than %d bytes: %w", lineno+1,
			maxLine, err)
	} else if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("read records: %w", err)
	} else if err := ctx.Err(); err != nil {
		return nil
	}
	return self.flush(ctx, chs)
}

func (self *pipe) record(line string) (logger.Record, error) {
	if !self.json {
		return logger.NewRecord(self.channel, self.level, line, nil), nil
	}

	var in jsonRecord
	if err := json.Unmarshal([]byte(line), &in); err != nil {
		return logger.Record{}, fmt.Errorf("decode record: %w", err)
	} else if in.Message == "" {
		return logger.Record{}, errors.New("record without message")
	}
	r := logger.NewRecord(self.channel, self.level, in.Message, in.Context)
	if in.Channel != "" {
		r.Channel = in.Channel
	}
	if in.Level != 0 {
		r.Level = in.Level
	}
	return r, nil
}

func (self *pipe) dispatch(ctx context.Context, chs *channels.Channels,
	r logger.Record,
) error {
	if self.batch {
		self.records = append(self.records, r)
		return nil
	}

	chain, err := chs.Chain(r.Channel)
	if err != nil {
		return err
	}
	_, err = chain.Dispatch(ctx, r)
	return err
}

// flush dispatches collected records as one batch per channel, in order of
// their first appearance.
func (self *pipe) flush(ctx context.Context, chs *channels.Channels) error {
	if len(self.records) == 0 {
		return nil
	}

	var order []string
	byChannel := make(map[string][]logger.Record)
	for _, r := range self.records {
		if _, ok := byChannel[r.Channel]; !ok {
			order = append(order, r.Channel)
		}
		byChannel[r.Channel] = append(byChannel[r.Channel], r)
	}
	self.records = nil

	for _, name := range order {
		chain, err := chs.Chain(name)
		if err != nil {
			return err
		} else if err := chain.HandleBatch(ctx, byChannel[name]); err != nil {
			return err
		}
	}
	return nil
}
