// Package email delivers one-time codes to account mailboxes.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message. Callers treat delivery as fire-and-forget.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// ErrNoRecipient is returned when the message has no To address.
var ErrNoRecipient = errors.New("email: recipient is required")

// SMTPSender sends through an SMTP relay with optional PLAIN auth, upgrading to STARTTLS when offered.
type SMTPSender struct {
	Addr string
	From string
	host string
	auth smtp.Auth
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewSMTPSender returns a sender for host:port. username and password enable PLAIN auth when both are set.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		Addr: net.JoinHostPort(host, strconv.Itoa(port)),
		From: from,
		host: host,
		auth: auth,
		dial: (&net.Dialer{}).DialContext,
	}
}

// Send writes m to the relay. The whole SMTP session is bounded by ctx: its deadline becomes the
// connection deadline and cancellation aborts any blocked read or write.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := s.dial(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("email: dial: %w", err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(dl); err != nil {
			return fmt.Errorf("email: set deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := s.deliver(conn, m); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}

func (s *SMTPSender) deliver(conn net.Conn, m Message) error {
	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(s.auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(s.From); err != nil {
		return err
	}
	if err := c.Rcpt(m.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(s.render(m)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTPSender) render(m Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.From + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogSender records that a message would have been sent. Used when no relay is configured.
// The body is never logged since it carries the code.
type LogSender struct {
	Log *zap.Logger
}

// Send logs recipient and subject at info level.
func (s LogSender) Send(ctx context.Context, m Message) error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("email delivery disabled; message dropped",
		zap.String("to", m.To),
		zap.String("subject", m.Subject))
	return nil
}
