// Package mail delivers digest emails.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"taskremind/internal/domain"
	"taskremind/internal/ports"
	"text/template"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/rs/zerolog/log"
)

var _ ports.Mailer = (*SMTPMailer)(nil)

var bodyTmpl = template.Must(template.New("digest").Parse(`Hi {{if .Recipient.Name}}{{.Recipient.Name}}{{else}}there{{end}},

Here is what happened since your last summary:
{{range .Entries}}
[{{.Icon}}] {{.Message}}{{if .Link}}
    {{.Link}}{{end}}
{{end}}
You are receiving this because you have unread notifications.
`))

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// Timeout bounds the whole SMTP session, dial included.
	Timeout time.Duration
}

const defaultTimeout = 30 * time.Second

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	cfg  Config
	now  func() time.Time
	send sendFunc
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg, now: time.Now}
	m.send = m.deliver
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject string, body domain.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := m.Compose(to, subject, body)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(ctx, addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}

	log.Ctx(ctx).Debug().Str("component", "mailer").Str("to", to).Int("entries", len(body.Entries)).Msg("digest sent")
	return nil
}

// deliver runs one SMTP session. The connection carries a deadline and is
// closed when ctx ends, so a stalled server cannot hold the caller.
func (m *SMTPMailer) deliver(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) (err error) {
	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		if err != nil && ctx.Err() != nil {
			err = ctx.Err()
		}
	}()

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("server does not support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// Compose renders the digest as a single-part text/plain RFC 5322 message.
func (m *SMTPMailer) Compose(to, subject string, d domain.Digest) ([]byte, error) {
	var h gomail.Header
	h.SetDate(m.now())
	h.SetSubject(subject)
	h.SetAddressList("From", []*gomail.Address{{Name: m.cfg.FromName, Address: m.cfg.From}})
	h.SetAddressList("To", []*gomail.Address{{Name: d.Recipient.Name, Address: to}})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := bodyTmpl.Execute(w, d); err != nil {
		return nil, fmt.Errorf("render digest: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}
