package handler

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/logchain/internal/logger"
)

type testSender struct {
	calls   int
	body    []byte
	records []logger.Record
	err     error
}

func (self *testSender) Send(_ context.Context, body []byte,
	records []logger.Record,
) error {
	self.calls++
	self.body = body
	self.records = records
	return self.err
}

func TestMail_BatchBelowLevel(t *testing.T) {
	sender := new(testSender)
	m := NewMail(sender)
	m.SetLevel(logger.Error)

	require.NoError(t, m.HandleBatch(t.Context(), []logger.Record{
		newRecord(logger.Debug, "a"),
		newRecord(logger.Debug, "b"),
		newRecord(logger.Info, "c"),
	}))
	assert.Zero(t, sender.calls)
}

func TestMail_BatchSendsOnce(t *testing.T) {
	sender := new(testSender)
	m := NewMail(sender)
	m.SetLevel(logger.Error)
	require.NoError(t, m.PushProcessor(func(r logger.Record) logger.Record {
		return r.WithExtra("n", len(r.Message))
	}))

	records := []logger.Record{
		newRecord(logger.Debug, "a"),
		newRecord(logger.Critical, "bb"),
		newRecord(logger.Info, "ccc"),
	}
	require.NoError(t, m.HandleBatch(t.Context(), records))
	assert.Equal(t, 1, sender.calls)
	require.Len(t, sender.records, len(records))
	for i, r := range sender.records {
		assert.Equal(t, records[i].Message, r.Message)
		assert.True(t, r.Extra.Has("n"))
	}

	lines := strings.Split(strings.TrimSpace(string(sender.body)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "test.CRITICAL: bb")
}

func TestMail_Handle(t *testing.T) {
	sender := new(testSender)
	m := NewMail(sender)
	assert.Same(t, sender, m.Sender())

	sig, err := m.Handle(t.Context(), newRecord(logger.Info, "single"))
	require.NoError(t, err)
	assert.Equal(t, Continue, sig)
	assert.Equal(t, 1, sender.calls)
	require.Len(t, sender.records, 1)

	sender.err = errors.New("smtp down")
	_, err = m.Handle(t.Context(), newRecord(logger.Info, "single"))
	require.ErrorIs(t, err, sender.err)
	require.ErrorIs(t, m.HandleBatch(t.Context(),
		[]logger.Record{newRecord(logger.Info, "x")}), sender.err)
}

func TestSMTPSender(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	s := NewSMTPSender("mail.example.com:25", "logs@example.com",
		"ops@example.com", "dev@example.com")
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string,
		msg []byte,
	) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	records := []logger.Record{
		newRecord(logger.Info, "fine"),
		newRecord(logger.Alert, "disk\nfull"),
	}
	assert.Equal(t, "test.ALERT: disk full", s.Subject(records))

	require.NoError(t, s.Send(t.Context(), []byte("line1\nline2\n"), records))
	assert.Equal(t, "mail.example.com:25", gotAddr)
	assert.Equal(t, "logs@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com", "dev@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "Subject: test.ALERT: disk full\r\n")
	assert.Contains(t, msg, "To: ops@example.com, dev@example.com\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2\r\n"))

	s.WithSubject("[{level_name}] {channel}")
	assert.Equal(t, "[ALERT] test", s.Subject(records))

	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("refused")
	}
	require.Error(t, s.Send(t.Context(), nil, records))
}
