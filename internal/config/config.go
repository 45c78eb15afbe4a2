package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/dsh2dsh/logchain/internal/logger"
)

type Option func(self *Config)

func WithoutIncludes() Option {
	return func(self *Config) { self.skipIncludes = true }
}

func New(opts ...Option) *Config {
	c := new(Config)
	return c.init(opts...)
}

type Config struct {
	Global Global `yaml:"global"`

	Channels        []Channel `yaml:"channels" validate:"min=1,dive"`
	IncludeChannels string    `yaml:"include_channels" validate:"omitempty,filepath"`

	skipIncludes bool
}

func (c *Config) init(opts ...Option) *Config {
	for _, fn := range opts {
		fn(c)
	}
	return c
}

func (c *Config) lateInit(path string) error {
	if c.skipIncludes {
		return nil
	}

	channels, err := includeChannels(path, c.IncludeChannels, c.Channels)
	if err != nil {
		return err
	}
	c.Channels = channels
	return nil
}

func (c *Config) Channel(name string) (*Channel, error) {
	for i := range c.Channels {
		ch := &c.Channels[i]
		if ch.Name == name {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("channel %q not defined in config", name)
}

type Global struct {
	Diagnostics Diagnostics            `yaml:"diagnostics"`
	Monitoring  []PrometheusMonitoring `yaml:"monitoring" validate:"dive"`
}

// Diagnostics configures where the library reports its own trouble.
type Diagnostics struct {
	Level      logger.Level `yaml:"level" default:"warning"`
	Format     string       `yaml:"format" default:"text" validate:"oneof=text json"`
	Target     string       `yaml:"target" default:"stderr" validate:"oneof=stdout stderr"`
	HideFields []string     `yaml:"hide_fields"`
	Time       bool         `yaml:"time" default:"true"`
}

type PrometheusMonitoring struct {
	Type   string `yaml:"type" validate:"required,eq=prometheus"`
	Listen string `yaml:"listen" validate:"required,hostname_port"`
}

type Channel struct {
	Name     string        `yaml:"name" validate:"required"`
	Handlers []HandlerEnum `yaml:"handlers" validate:"min=1,dive"`
}

// --------------------------------------------------

type HandlerEnum struct {
	Ret any `validate:"required"`
}

func (self *HandlerEnum) Common() *HandlerCommon {
	switch v := self.Ret.(type) {
	case *StreamHandler:
		return &v.HandlerCommon
	case *FileHandler:
		return &v.HandlerCommon
	case *ProcessHandler:
		return &v.HandlerCommon
	case *SyslogUDPHandler:
		return &v.HandlerCommon
	case *SyslogHandler:
		return &v.HandlerCommon
	case *NoopHandler:
		return &v.HandlerCommon
	case *GroupHandler:
		return &v.HandlerCommon
	case *MetricsHandler:
		return &v.HandlerCommon
	case *MailHandler:
		return &v.HandlerCommon
	case *SocketHandler:
		return &v.HandlerCommon
	default:
		panic(fmt.Sprintf("unknown handler type %T", v))
	}
}

type HandlerCommon struct {
	Type       string          `yaml:"type" validate:"required"`
	Level      logger.Level    `yaml:"level"`
	Bubble     bool            `yaml:"bubble" default:"true"`
	Processors []ProcessorEnum `yaml:"processors" validate:"dive"`
	RateLimit  *RateLimit      `yaml:"rate_limit"`
}

type RateLimit struct {
	Rate  float64 `yaml:"rate" validate:"gt=0"`
	Burst int64   `yaml:"burst" default:"1" validate:"gte=1"`
}

func (self *RateLimit) UnmarshalYAML(value *yaml.Node) error {
	type rateLimit RateLimit
	v := (*rateLimit)(self)
	if err := defaults.Set(v); err != nil {
		return fmt.Errorf("set defaults for %T: %w", self, err)
	} else if err := value.Decode(v); err != nil {
		return fmt.Errorf("UnmarshalYAML %T: %w", self, err)
	}
	return nil
}

// Formatting selects the formatter of a handler. An empty Format keeps the
// handler default.
type Formatting struct {
	Format           string   `yaml:"format" validate:"omitempty,oneof=human logfmt json fluentd cbor"`
	Color            bool     `yaml:"color"`
	TimeLayout       string   `yaml:"time_layout"`
	InlineLineBreaks bool     `yaml:"inline_line_breaks"`
	IgnoreEmpty      bool     `yaml:"ignore_empty"`
	HideFields       []string `yaml:"hide_fields"`
	Time             bool     `yaml:"time" default:"true"`
	LevelTag         bool     `yaml:"level_tag"`
}

type StreamHandler struct {
	HandlerCommon `yaml:",inline"`
	Formatting    `yaml:",inline"`
	Target        string `yaml:"target" default:"stdout" validate:"oneof=stdout stderr"`
}

type FileHandler struct {
	HandlerCommon `yaml:",inline"`
	Formatting    `yaml:",inline"`
	Filename      string `yaml:"filename" validate:"required,filepath"`
}

type ProcessHandler struct {
	HandlerCommon `yaml:",inline"`
	Formatting    `yaml:",inline"`

	Command   string   `yaml:"command" validate:"required"`
	Args      []string `yaml:"args"`
	Dir       string   `yaml:"dir"`
	ArgPolicy string   `yaml:"arg_policy" default:"shell" validate:"oneof=shell exec"`

	StartupTimeout time.Duration `yaml:"startup_timeout" validate:"gte=0s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gte=0s"`
	CloseTimeout   time.Duration `yaml:"close_timeout" validate:"gte=0s"`
}

type SyslogUDPHandler struct {
	HandlerCommon `yaml:",inline"`
	Formatting    `yaml:",inline"`

	Address  string `yaml:"address" validate:"required,hostname_port"`
	Facility string `yaml:"facility" default:"user" validate:"required"`
	RFC      string `yaml:"rfc" default:"rfc5424" validate:"oneof=rfc5424 rfc5424e rfc3164"`
	AppName  string `yaml:"app_name" default:"logchain" validate:"required"`
	Hostname string `yaml:"hostname"`

	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0s"`
}

type SyslogHandler struct {
	HandlerCommon `yaml:",inline"`
	Formatting    `yaml:",inline"`

	Facility      string        `yaml:"facility" default:"user" validate:"required"`
	Tag           string        `yaml:"tag" default:"logchain"`
	Network       string        `yaml:"network" validate:"omitempty,oneof=udp tcp unix unixgram"`
	Address       string        `yaml:"address" validate:"required_with=Network"`
	RetryInterval time.Duration `yaml:"retry_interval" default:"10s" validate:"gt=0s"`
}

type SocketHandler struct {
	HandlerCommon `yaml:",inline"`
	Formatting    `yaml:",inline"`

	Network       string        `yaml:"network" default:"tcp" validate:"oneof=tcp tcp4 tcp6 unix"`
	Address       string        `yaml:"address" validate:"required"`
	RetryInterval time.Duration `yaml:"retry_interval" default:"10s" validate:"gt=0s"`
	TLS           *SocketTLS    `yaml:"tls"`
}

type SocketTLS struct {
	CA   string `yaml:"ca" validate:"omitempty,file"`
	Cert string `yaml:"cert" validate:"required_with=Key"`
	Key  string `yaml:"key" validate:"required_with=Cert"`
}

type NoopHandler struct {
	HandlerCommon `yaml:",inline"`
}

type GroupHandler struct {
	HandlerCommon `yaml:",inline"`
	Handlers      []HandlerEnum `yaml:"handlers" validate:"min=1,dive"`
}

type MetricsHandler struct {
	HandlerCommon `yaml:",inline"`
}

type MailHandler struct {
	HandlerCommon `yaml:",inline"`
	Formatting    `yaml:",inline"`

	Server      string   `yaml:"server" validate:"required,hostname_port"`
	From        string   `yaml:"from" validate:"required,email"`
	To          []string `yaml:"to" validate:"min=1,dive,email"`
	Subject     string   `yaml:"subject"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password" validate:"required_with=Username"`
	ContentType string   `yaml:"content_type"`
}

// --------------------------------------------------

type ProcessorEnum struct {
	Ret any `validate:"required"`
}

type UIDProcessor struct {
	Type   string `yaml:"type" validate:"required"`
	Length int    `yaml:"length" default:"7" validate:"min=1,max=32"`
}

type PsrPlaceholderProcessor struct {
	Type       string `yaml:"type" validate:"required"`
	TimeLayout string `yaml:"time_layout"`
	RemoveUsed bool   `yaml:"remove_used"`
}

type MemoryProcessor struct {
	Type      string `yaml:"type" validate:"required"`
	Humanized bool   `yaml:"humanized" default:"true"`
}

type HostnameProcessor struct {
	Type string `yaml:"type" validate:"required"`
}

type TagsProcessor struct {
	Type string            `yaml:"type" validate:"required"`
	Tags map[string]string `yaml:"tags" validate:"min=1,dive,keys,required,endkeys"`
}

type GitProcessor struct {
	Type  string       `yaml:"type" validate:"required"`
	Level logger.Level `yaml:"level"`
	Dir   string       `yaml:"dir" validate:"omitempty,dir"`
}

// --------------------------------------------------

func enumUnmarshal(value *yaml.Node, types map[string]any) (any, error) {
	var in struct {
		Type string `yaml:"type" validate:"required"`
	}
	if err := value.Decode(&in); err != nil {
		return nil, err
	} else if in.Type == "" {
		return nil, &yaml.TypeError{Errors: []string{"must specify type"}}
	}

	v, ok := types[in.Type]
	if !ok {
		return nil, &yaml.TypeError{
			Errors: []string{"invalid type name " + in.Type},
		}
	}

	if err := defaults.Set(v); err != nil {
		return nil, fmt.Errorf("set defaults for type %q: %w", in.Type, err)
	} else if err := value.Decode(v); err != nil {
		return nil, err
	}
	return v, nil
}

var _ yaml.Unmarshaler = (*HandlerEnum)(nil)

func (t *HandlerEnum) UnmarshalYAML(value *yaml.Node) (err error) {
	t.Ret, err = enumUnmarshal(value, map[string]any{
		"stream":     new(StreamHandler),
		"file":       new(FileHandler),
		"process":    new(ProcessHandler),
		"syslog_udp": new(SyslogUDPHandler),
		"syslog":     new(SyslogHandler),
		"noop":       new(NoopHandler),
		"group":      new(GroupHandler),
		"metrics":    new(MetricsHandler),
		"mail":       new(MailHandler),
		"socket":     new(SocketHandler),
	})
	return
}

var _ yaml.Unmarshaler = (*ProcessorEnum)(nil)

func (t *ProcessorEnum) UnmarshalYAML(value *yaml.Node) (err error) {
	t.Ret, err = enumUnmarshal(value, map[string]any{
		"uid":             new(UIDProcessor),
		"psr_placeholder": new(PsrPlaceholderProcessor),
		"memory":          new(MemoryProcessor),
		"hostname":        new(HostnameProcessor),
		"tags":            new(TagsProcessor),
		"git":             new(GitProcessor),
	})
	return
}
