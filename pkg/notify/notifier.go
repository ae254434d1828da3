package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/printwatch-service/pkg/common"
)

type LinkIssuer interface {
	Issue(printerID string) (string, error)
}

// Notifier composes alert emails and hands them to the injected transport.
// A nil transport disables notifications.
type Notifier struct {
	transport Transport
	links     LinkIssuer
	from      string
	limiter   *rate.Limiter
	location  *time.Location
}

type Option func(*Notifier)

// WithRateLimit paces submissions to the mail relay.
func WithRateLimit(l *rate.Limiter) Option {
	return func(n *Notifier) { n.limiter = l }
}

// WithLocation sets the zone used for timestamps in the message body.
func WithLocation(loc *time.Location) Option {
	return func(n *Notifier) { n.location = loc }
}

func New(transport Transport, links LinkIssuer, from string, opts ...Option) *Notifier {
	n := &Notifier{
		transport: transport,
		links:     links,
		from:      from,
		location:  time.Local,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.transport != nil
}

// Send submits one HTML message. Any failure comes back as *MailError.
func (n *Notifier) Send(ctx context.Context, recipients []string, subject, body string) error {
	if !n.Enabled() {
		return &MailError{Recipients: recipients, Err: ErrTransportDisabled}
	}

	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return &MailError{Recipients: recipients, Err: err}
		}
	}

	err := n.transport.Send(ctx, &Message{
		From:    n.from,
		To:      recipients,
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		return &MailError{Recipients: recipients, Err: err}
	}
	return nil
}

// NotifyAlert composes the alert message with a deep link and sends it.
func (n *Notifier) NotifyAlert(ctx context.Context, a Alert) error {
	logger := common.GetCoreLogger(common.LoggerCategoryNotify).With(
		zap.String("printer_id", a.PrinterID),
		zap.String("ip", a.IPAddress),
	)

	link, err := n.links.Issue(a.PrinterID)
	if err != nil {
		return &MailError{Recipients: a.Recipients, Err: err}
	}

	body, err := Compose(a, link, n.location)
	if err != nil {
		return &MailError{Recipients: a.Recipients, Err: err}
	}

	if err := n.Send(ctx, a.Recipients, Subject(a), body); err != nil {
		logger.Error("Alert email failed", zap.Error(err))
		return err
	}

	logger.Info("Alert email sent",
		zap.String("department", a.DepartmentName),
		zap.Int("recipients", len(a.Recipients)))
	return nil
}
