package config

import (
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/logchain/internal/logger"
)

func TestSampleConfigsAreParsedWithoutErrors(t *testing.T) {
	paths, err := filepath.Glob("./samples/*")
	if err != nil {
		t.Errorf("glob failed: %+v", err)
	}

	for _, p := range paths {
		if path.Ext(p) != ".yml" {
			t.Logf("skipping file %s", p)
			continue
		}

		t.Run(p, func(t *testing.T) {
			c, err := ParseConfig(p)
			require.NoError(t, err, "error parsing %s", p)
			t.Logf("file: %s", p)
			t.Logf("%# v", pretty.Formatter(c))
		})
	}
}

func testValidConfig(t *testing.T, input string) *Config {
	t.Helper()
	conf, err := testConfig(t, input)
	require.NoError(t, err)
	require.NotNil(t, conf)
	return conf
}

func testConfig(t *testing.T, input string) (*Config, error) {
	t.Helper()
	return ParseConfigBytes("", []byte(input))
}

func TestDefaults(t *testing.T) {
	c := testValidConfig(t, `
channels:
  - name: app
    handlers:
      - type: stream
`)
	assert.Equal(t, Diagnostics{
		Level:  logger.Warning,
		Format: "text",
		Target: "stderr",
		Time:   true,
	}, c.Global.Diagnostics)

	require.Len(t, c.Channels, 1)
	ch, err := c.Channel("app")
	require.NoError(t, err)
	_, err = c.Channel("nope")
	require.Error(t, err)

	require.Len(t, ch.Handlers, 1)
	h, ok := ch.Handlers[0].Ret.(*StreamHandler)
	require.True(t, ok)
	assert.Equal(t, "stdout", h.Target)
	assert.Empty(t, h.Format)
	assert.True(t, h.Bubble)
	assert.True(t, h.Time)
	assert.Equal(t, logger.Level(0), h.Level)
	assert.Nil(t, h.RateLimit)
	assert.Same(t, &h.HandlerCommon, ch.Handlers[0].Common())
}

func TestHandlerTypes(t *testing.T) {
	c, err := ParseConfig("samples/full.yml")
	require.NoError(t, err)

	app, err := c.Channel("app")
	require.NoError(t, err)
	require.Len(t, app.Handlers, 4)

	assert.IsType(t, new(MetricsHandler), app.Handlers[0].Ret)

	group, ok := app.Handlers[1].Ret.(*GroupHandler)
	require.True(t, ok)
	assert.Equal(t, logger.Error, group.Level)
	require.Len(t, group.Handlers, 2)
	proc, ok := group.Handlers[0].Ret.(*ProcessHandler)
	require.True(t, ok)
	assert.Equal(t, "cat", proc.Command)
	assert.Equal(t, 200*time.Millisecond, proc.StartupTimeout)
	assert.Equal(t, "logfmt", proc.Format)
	udp, ok := group.Handlers[1].Ret.(*SyslogUDPHandler)
	require.True(t, ok)
	assert.Equal(t, "authpriv", udp.Facility)
	assert.Equal(t, "rfc3164", udp.RFC)
	assert.Equal(t, "logchain", udp.AppName)

	stream, ok := app.Handlers[2].Ret.(*StreamHandler)
	require.True(t, ok)
	assert.False(t, stream.Bubble)
	assert.Equal(t, logger.Info, stream.Level)
	require.Len(t, stream.Processors, 3)
	uid, ok := stream.Processors[0].Ret.(*UIDProcessor)
	require.True(t, ok)
	assert.Equal(t, 12, uid.Length)
	assert.Equal(t, &RateLimit{Rate: 100, Burst: 20}, stream.RateLimit)

	audit, err := c.Channel("audit")
	require.NoError(t, err)
	require.Len(t, audit.Handlers, 4)
	syslog, ok := audit.Handlers[1].Ret.(*SyslogHandler)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, syslog.RetryInterval)
	mail, ok := audit.Handlers[2].Ret.(*MailHandler)
	require.True(t, ok)
	assert.Equal(t, logger.Critical, mail.Level)
	require.Len(t, mail.Processors, 2)
	git, ok := mail.Processors[0].Ret.(*GitProcessor)
	require.True(t, ok)
	assert.Equal(t, logger.Error, git.Level)

	sock, ok := audit.Handlers[3].Ret.(*SocketHandler)
	require.True(t, ok)
	assert.Equal(t, "tcp", sock.Network)
	assert.Equal(t, 10*time.Second, sock.RetryInterval)
	require.NotNil(t, sock.TLS)
	assert.Equal(t, "/etc/logchain/client.key", sock.TLS.Key)
}

func TestRateLimitDefaults(t *testing.T) {
	c := testValidConfig(t, `
channels:
  - name: app
    handlers:
      - type: noop
        rate_limit:
          rate: 0.5
`)
	assert.Equal(t, &RateLimit{Rate: 0.5, Burst: 1},
		c.Channels[0].Handlers[0].Common().RateLimit)
}

func TestInvalidConfigs(t *testing.T) {
	tests := map[string]string{
		"no channels": `
global:
  diagnostics:
    level: info
`,
		"no handlers": `
channels:
  - name: app
`,
		"unknown handler type": `
channels:
  - name: app
    handlers:
      - type: telegram
`,
		"missing type": `
channels:
  - name: app
    handlers:
      - level: info
`,
		"unknown level": `
channels:
  - name: app
    handlers:
      - type: stream
        level: verbose
`,
		"unknown format": `
channels:
  - name: app
    handlers:
      - type: stream
        format: xml
`,
		"process without command": `
channels:
  - name: app
    handlers:
      - type: process
`,
		"bad syslog address": `
channels:
  - name: app
    handlers:
      - type: syslog_udp
        address: localhost
`,
		"uid too long": `
channels:
  - name: app
    handlers:
      - type: noop
        processors:
          - type: uid
            length: 33
`,
		"zero rate": `
channels:
  - name: app
    handlers:
      - type: noop
        rate_limit:
          burst: 10
`,
		"mail without recipients": `
channels:
  - name: app
    handlers:
      - type: mail
        server: "localhost:25"
        from: logs@example.com
`,
		"empty group": `
channels:
  - name: app
    handlers:
      - type: group
`,
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := testConfig(t, input)
			require.Error(t, err)
		})
	}
}

func TestValidationErrorPaths(t *testing.T) {
	_, err := testConfig(t, `
channels:
  - name: app
    handlers:
      - type: stream
      - type: process
`)
	var fieldErrs validator.ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.ErrorContains(t, err, "channels[0].handlers[1].command: required")
}

func TestParseConfig_env(t *testing.T) {
	t.Setenv(PathEnv, "testdata/logchain.yml")
	c, err := ParseConfig("", WithoutIncludes())
	require.NoError(t, err)
	assert.Equal(t, "main", c.Channels[0].Name)

	t.Setenv(PathEnv, "testdata/notexists.yml")
	_, err = ParseConfig("")
	require.ErrorIs(t, err, os.ErrNotExist)
}
