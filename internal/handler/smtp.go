package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/logging"
)

const DefaultSubject = "{channel}.{level_name}: {message}"

// NewSMTPSender returns a Sender which mails batches to the SMTP server at
// addr, "host:port".
func NewSMTPSender(addr, from string, to ...string) *SMTPSender {
	return &SMTPSender{
		addr:     addr,
		from:     from,
		to:       to,
		subject:  DefaultSubject,
		sendMail: smtp.SendMail,
	}
}

type SMTPSender struct {
	addr    string
	from    string
	to      []string
	subject string
	auth    smtp.Auth

	contentType string

	sendMail func(addr string, a smtp.Auth, from string, to []string,
		msg []byte) error
}

var _ Sender = (*SMTPSender)(nil)

// WithSubject sets the subject template. {channel}, {level_name} and
// {message} are replaced by fields of the most severe record of a batch.
func (self *SMTPSender) WithSubject(subject string) *SMTPSender {
	self.subject = subject
	return self
}

// WithPlainAuth authenticates with PLAIN, which net/smtp allows over TLS or
// to localhost only.
func (self *SMTPSender) WithPlainAuth(username, password string,
) *SMTPSender {
	host := self.addr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	self.auth = smtp.PlainAuth("", username, password, host)
	return self
}

func (self *SMTPSender) WithContentType(contentType string) *SMTPSender {
	self.contentType = contentType
	return self
}

func (self *SMTPSender) Subject(records []logger.Record) string {
	r := HighestRecord(records)
	subject := strings.NewReplacer(
		"{channel}", r.Channel,
		"{level_name}", r.Level.Name(),
		"{message}", r.Message,
	).Replace(self.subject)
	// header injection
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, subject)
}

func (self *SMTPSender) Send(ctx context.Context, body []byte,
	records []logger.Record,
) error {
	msg := self.message(body, records)
	log := logging.GetLogger(ctx, logging.SubsysMail)
	log.With("addr", self.addr, "to", self.to, "records", len(records)).
		Debug("send mail")
	err := self.sendMail(self.addr, self.auth, self.from, self.to, msg)
	if err != nil {
		return fmt.Errorf("send mail to %v via %q: %w", self.to, self.addr, err)
	}
	return nil
}

func (self *SMTPSender) message(body []byte, records []logger.Record) []byte {
	contentType := self.contentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", self.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(self.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", self.Subject(records))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	body = bytes.ReplaceAll(body, []byte("\r\n"), []byte("\n"))
	b.Write(bytes.ReplaceAll(body, []byte("\n"), []byte("\r\n")))
	return b.Bytes()
}
