// Package channels builds named handler chains from configuration.
package channels

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"slices"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/dsh2dsh/logchain/internal/config"
	"github.com/dsh2dsh/logchain/internal/config/env"
	"github.com/dsh2dsh/logchain/internal/formatter"
	"github.com/dsh2dsh/logchain/internal/handler"
	"github.com/dsh2dsh/logchain/internal/handler/process"
	"github.com/dsh2dsh/logchain/internal/handler/syslog"
	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/processor"
	"github.com/dsh2dsh/logchain/internal/tlsconf"
)

var ErrUnknownChannel = errors.New("unknown channel")

// FromConfig builds a chain for every channel of c. On error already built
// handlers are closed.
func FromConfig(c *config.Config) (*Channels, error) {
	chains := make(map[string]*handler.Chain, len(c.Channels))
	self := &Channels{chains: chains}
	for i := range c.Channels {
		ch := &c.Channels[i]
		if _, ok := chains[ch.Name]; ok {
			err := fmt.Errorf("%w: duplicate channel %q",
				logger.ErrInvalidConfiguration, ch.Name)
			return nil, errors.Join(err, self.Close())
		}
		chain, err := ChainFromConfig(ch)
		if err != nil {
			err = fmt.Errorf("build channel %q: %w", ch.Name, err)
			return nil, errors.Join(err, self.Close())
		}
		chains[ch.Name] = chain
	}
	return self, nil
}

type Channels struct {
	chains map[string]*handler.Chain
	mu     sync.Mutex
}

func (self *Channels) Names() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return slices.Sorted(maps.Keys(self.chains))
}

func (self *Channels) Chain(name string) (*handler.Chain, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	chain, ok := self.chains[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return chain, nil
}

// Logger returns a logger emitting records of channel name into its chain.
func (self *Channels) Logger(name string) (*logger.Logger, error) {
	chain, err := self.Chain(name)
	if err != nil {
		return nil, err
	}
	return logger.NewLogger(name, chain), nil
}

func (self *Channels) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	var errs []error
	for name, chain := range self.chains {
		if err := chain.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %q: %w", name, err))
		}
	}
	clear(self.chains)
	return errors.Join(errs...)
}

// --------------------------------------------------

func ChainFromConfig(ch *config.Channel) (*handler.Chain, error) {
	chain := handler.NewChain().WithName(ch.Name)
	for i := range ch.Handlers {
		h, err := HandlerFromConfig(&ch.Handlers[i])
		if err != nil {
			err = fmt.Errorf("cannot build handler #%d: %w", i, err)
			return nil, errors.Join(err, chain.Close())
		}
		chain.Push(h)
	}
	return chain, nil
}

type configurable interface {
	handler.Handler
	SetLevel(level logger.Level)
	SetBubble(bubble bool)
}

type processing interface {
	PushProcessor(p processor.Processor) error
}

type formatting interface {
	SetFormatter(f formatter.Formatter)
}

// HandlerFromConfig builds one handler with its level, bubbling, formatter,
// processors and rate limit applied.
func HandlerFromConfig(in *config.HandlerEnum) (handler.Handler, error) {
	var h handler.Handler
	var fmtConfig *config.Formatting
	var err error

	switch v := in.Ret.(type) {
	case *config.StreamHandler:
		h, err = handler.NewStd(v.Target)
		fmtConfig = &v.Formatting
	case *config.FileHandler:
		h, err = handler.NewFile(v.Filename)
		fmtConfig = &v.Formatting
	case *config.ProcessHandler:
		h, err = parseProcessHandler(v)
		fmtConfig = &v.Formatting
	case *config.SyslogUDPHandler:
		h, err = parseSyslogUDPHandler(v)
		fmtConfig = &v.Formatting
	case *config.SyslogHandler:
		h, err = parseSyslogHandler(v)
		fmtConfig = &v.Formatting
	case *config.SocketHandler:
		h, err = parseSocketHandler(v)
		fmtConfig = &v.Formatting
	case *config.MailHandler:
		h = parseMailHandler(v)
		fmtConfig = &v.Formatting
	case *config.GroupHandler:
		h, err = parseGroupHandler(v)
	case *config.MetricsHandler:
		h = handler.NewMetrics()
	case *config.NoopHandler:
		h = handler.NewNoop()
	default:
		panic(fmt.Sprintf("unknown handler type %T", v))
	}
	if err != nil {
		return nil, err
	}

	common := in.Common()
	if err := applyCommon(h, common, fmtConfig); err != nil {
		return nil, errors.Join(err, h.Close())
	}

	if rl := common.RateLimit; rl != nil {
		return handler.NewThrottle(h, rl.Rate, rl.Burst), nil
	}
	return h, nil
}

func applyCommon(h handler.Handler, common *config.HandlerCommon,
	fmtConfig *config.Formatting,
) error {
	if c, ok := h.(configurable); ok {
		c.SetLevel(common.Level)
		c.SetBubble(common.Bubble)
	} else if common.Level != 0 || !common.Bubble {
		return fmt.Errorf("%w: %q handler has no level or bubble",
			logger.ErrInvalidConfiguration, common.Type)
	}

	if fmtConfig != nil && fmtConfig.Format != "" {
		f, err := FormatterFromConfig(fmtConfig)
		if err != nil {
			return err
		}
		h.(formatting).SetFormatter(f)
	}

	if len(common.Processors) == 0 {
		return nil
	}
	p, ok := h.(processing)
	if !ok {
		return fmt.Errorf("%w: %q handler has no processors",
			logger.ErrInvalidConfiguration, common.Type)
	}
	for i := range common.Processors {
		fn, err := ProcessorFromConfig(&common.Processors[i])
		if err != nil {
			return fmt.Errorf("processor #%d: %w", i, err)
		} else if err := p.PushProcessor(fn); err != nil {
			return fmt.Errorf("processor #%d: %w", i, err)
		}
	}
	return nil
}

func parseProcessHandler(in *config.ProcessHandler) (*process.Handler, error) {
	var cfg process.Config
	if err := copier.Copy(&cfg, in); err != nil {
		return nil, fmt.Errorf("copy process config: %w", err)
	}

	policy, err := process.ParseArgPolicy(in.ArgPolicy)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = env.Values.ProcessStartupTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = env.Values.ProcessWriteTimeout
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = env.Values.ProcessCloseTimeout
	}
	return process.New(cfg)
}

func parseSyslogUDPHandler(in *config.SyslogUDPHandler,
) (*syslog.UDPHandler, error) {
	facility, err := syslog.ParseFacility(in.Facility)
	if err != nil {
		return nil, err
	}
	rfc, err := syslog.ParseRFC(in.RFC)
	if err != nil {
		return nil, err
	}
	framer, err := syslog.NewFramer(facility, rfc)
	if err != nil {
		return nil, err
	}
	framer.WithAppName(in.AppName).
		WithMaxDatagram(env.Values.SyslogMaxDatagram)
	if in.Hostname != "" {
		framer.WithHostname(in.Hostname)
	}

	timeout := in.WriteTimeout
	if timeout == 0 {
		timeout = env.Values.SyslogWriteTimeout
	}
	socket := syslog.NewUDPSocket(in.Address).WithTimeout(timeout)
	return syslog.NewUDPHandlerWithFramer(socket, framer), nil
}

func parseSyslogHandler(in *config.SyslogHandler) (*syslog.Local, error) {
	facility, err := syslog.ParseFacility(in.Facility)
	if err != nil {
		return nil, err
	}
	h, err := syslog.NewLocal(facility, in.Tag)
	if err != nil {
		return nil, err
	}
	if in.Address != "" {
		h.WithRemote(in.Network, in.Address)
	}
	return h.WithRetryInterval(in.RetryInterval), nil
}

func parseSocketHandler(in *config.SocketHandler) (*handler.Socket, error) {
	h := handler.NewSocket(in.Network, in.Address).
		WithRetryInterval(in.RetryInterval)
	if in.TLS == nil {
		return h, nil
	}

	tlsConfig, err := tlsconf.ClientConfig(serverName(in.Address), in.TLS.CA,
		in.TLS.Cert, in.TLS.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: tls: %w", logger.ErrInvalidConfiguration,
			err)
	}
	return h.WithTLS(tlsConfig), nil
}

func serverName(address string) string {
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return address
}

func parseMailHandler(in *config.MailHandler) *handler.Mail {
	sender := handler.NewSMTPSender(in.Server, in.From, in.To...)
	if in.Subject != "" {
		sender.WithSubject(in.Subject)
	}
	if in.Username != "" {
		sender.WithPlainAuth(in.Username, in.Password)
	}
	if in.ContentType != "" {
		sender.WithContentType(in.ContentType)
	}
	return handler.NewMail(sender)
}

func parseGroupHandler(in *config.GroupHandler) (*handler.Group, error) {
	handlers := make([]handler.Handler, 0, len(in.Handlers))
	for i := range in.Handlers {
		h, err := HandlerFromConfig(&in.Handlers[i])
		if err != nil {
			err = fmt.Errorf("cannot build group handler #%d: %w", i, err)
			return nil, errors.Join(err, handler.NewChain(handlers...).Close())
		}
		handlers = append(handlers, h)
	}
	return handler.NewGroup(handlers...), nil
}
