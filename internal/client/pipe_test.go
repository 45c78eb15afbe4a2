package client

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/logchain/internal/channels"
	"github.com/dsh2dsh/logchain/internal/config"
	"github.com/dsh2dsh/logchain/internal/logger"
)

func testConfig(t *testing.T) (*config.Config, string, string) {
	t.Helper()
	dir := t.TempDir()
	appLog := filepath.Join(dir, "app.log")
	auditLog := filepath.Join(dir, "audit.log")
	c, err := config.ParseConfigBytes("", fmt.Appendf(nil, `
channels:
  - name: app
    handlers:
      - type: file
        filename: %q
        level: info
  - name: audit
    handlers:
      - type: file
        filename: %q
        format: json
`, appLog, auditLog), config.WithoutIncludes())
	require.NoError(t, err)
	return c, appLog, auditLog
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	return string(b)
}

func TestPipe_text(t *testing.T) {
	c, appLog, _ := testConfig(t)
	p := &pipe{channel: channelName(c, ""), level: logger.Warning}
	input := io.NopCloser(strings.NewReader("first\n\nsecond\n"))
	require.NoError(t, runPipe(t.Context(), c, p, "", input))

	got := readFile(t, appLog)
	assert.Contains(t, got, "app.WARNING: first")
	assert.Contains(t, got, "app.WARNING: second")
	assert.Equal(t, 2, strings.Count(got, "\n"))
}

func TestPipe_longLine(t *testing.T) {
	c, appLog, _ := testConfig(t)
	long := strings.Repeat("x", 200<<10)
	p := &pipe{channel: "app", level: logger.Info}
	input := io.NopCloser(strings.NewReader(long + "\nshort\n"))
	require.NoError(t, runPipe(t.Context(), c, p, "", input))

	got := readFile(t, appLog)
	assert.Contains(t, got, "app.INFO: "+long)
	assert.Contains(t, got, "app.INFO: short")

	p = &pipe{channel: "app", level: logger.Info, maxLine: 16}
	err := runPipe(t.Context(), c, p, "",
		io.NopCloser(strings.NewReader(long+"\n")))
	require.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestPipe_json(t *testing.T) {
	c, appLog, auditLog := testConfig(t)
	chs, err := channels.FromConfig(c)
	require.NoError(t, err)

	p := &pipe{channel: "app", level: logger.Info, json: true}
	input := strings.Join([]string{
		`{"message": "hello", "context": {"user": "bob"}}`,
		`{"channel": "audit", "level": "critical", "message": "breach"}`,
		`{"level": "debug", "message": "too low"}`,
		`not json`,
		`{"level": "error"}`,
	}, "\n")
	require.NoError(t, p.Run(t.Context(), chs, strings.NewReader(input)))
	require.NoError(t, chs.Close())

	app := readFile(t, appLog)
	assert.Contains(t, app, `app.INFO: hello {"user":"bob"}`)
	assert.NotContains(t, app, "too low")
	assert.Contains(t, readFile(t, auditLog), `"msg":"breach"`)
}

func TestPipe_unknownChannel(t *testing.T) {
	c, _, _ := testConfig(t)
	p := &pipe{channel: "nope", level: logger.Info}
	err := runPipe(t.Context(), c, p, "",
		io.NopCloser(strings.NewReader("lost\n")))
	require.ErrorIs(t, err, channels.ErrUnknownChannel)
}

func TestPipe_batch(t *testing.T) {
	c, appLog, auditLog := testConfig(t)
	chs, err := channels.FromConfig(c)
	require.NoError(t, err)

	p := &pipe{channel: "app", level: logger.Error, json: true, batch: true}
	input := strings.Join([]string{
		`{"message": "one"}`,
		`{"channel": "audit", "message": "two"}`,
		`{"message": "three"}`,
	}, "\n")
	require.NoError(t, p.Run(t.Context(), chs, strings.NewReader(input)))
	assert.Empty(t, p.records)
	require.NoError(t, chs.Close())

	app := readFile(t, appLog)
	assert.Less(t, strings.Index(app, "one"), strings.Index(app, "three"))
	assert.Contains(t, readFile(t, auditLog), "two")
}

func TestEmit(t *testing.T) {
	c, appLog, _ := testConfig(t)
	chs, err := channels.FromConfig(c)
	require.NoError(t, err)

	require.NoError(t, emit(t.Context(), chs, "app", "notice", "hi there",
		map[string]string{"b": "2", "a": "1"}))
	require.NoError(t, emit(t.Context(), chs, "app", "debug", "ignored", nil))
	require.ErrorIs(t, emit(t.Context(), chs, "app", "loud", "x", nil),
		logger.ErrUnknownLevel)
	require.ErrorIs(t, emit(t.Context(), chs, "nope", "info", "x", nil),
		channels.ErrUnknownChannel)
	require.NoError(t, chs.Close())

	app := readFile(t, appLog)
	assert.Contains(t, app, `app.NOTICE: hi there {"a":"1","b":"2"}`)
	assert.NotContains(t, app, "ignored")
}

func TestCheckConfig(t *testing.T) {
	c, _, _ := testConfig(t)
	configcheckArgs.what = "all"
	configcheckArgs.format = "yaml"
	t.Cleanup(func() { configcheckArgs.format = "" })

	var b bytes.Buffer
	require.NoError(t, checkConfig(c, &b))
	assert.Contains(t, b.String(), "name: audit")

	configcheckArgs.format = "toml"
	require.Error(t, checkConfig(c, io.Discard))
}

func TestMetricsMux(t *testing.T) {
	srv := httptest.NewServer(metricsMux(newMetricsRegistry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + endpointMetrics)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "logchain_version_info")
}
