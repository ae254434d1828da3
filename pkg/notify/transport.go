package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

var ErrTransportDisabled = errors.New("mail transport not configured")

type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Transport delivers one message. Implementations must be safe for
// concurrent use.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// MailError is a failed delivery: transport failure or rejected recipients.
type MailError struct {
	Recipients []string
	Err        error
}

func (e *MailError) Error() string {
	return fmt.Sprintf("send mail to %s: %v", strings.Join(e.Recipients, ","), e.Err)
}

func (e *MailError) Unwrap() error {
	return e.Err
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// Secure selects implicit TLS (port 465 style); otherwise STARTTLS is
	// used when offered.
	Secure  bool
	Timeout time.Duration
}

// Enabled mirrors the deployment rule: host, user and password must all be set.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// SMTPTransport submits mail through go-mail. A client is built per message,
// so concurrent poll tasks never share a connection.
type SMTPTransport struct {
	cfg SMTPConfig
}

func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	t := &SMTPTransport{cfg: cfg}
	if _, err := t.client(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *SMTPTransport) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.cfg.Username),
		mail.WithPassword(t.cfg.Password),
	}
	if t.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if t.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(t.cfg.Timeout))
	}
	return mail.NewClient(t.cfg.Host, opts...)
}

func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	c, err := t.client()
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}
