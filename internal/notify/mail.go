package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"camerashop/backend/internal/config"
	"camerashop/backend/internal/localization"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/metrics"

	"github.com/sony/gobreaker/v2"
	"github.com/wneessen/go-mail"
)

const (
	breakerName = "smtp"

	keySubject = "notify.admin_reply.subject"
	keyBody    = "notify.admin_reply.body"
)

// MailSender sends notifications over SMTP behind a circuit breaker.
type MailSender struct {
	from string
	lang string
	loc  *localization.Localizer
	cb   *gobreaker.CircuitBreaker[struct{}]
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewMailSender(cfg config.MailConfig, loc *localization.Localizer) (*MailSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if _, err := mail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	// One client per send: a client holds a single connection, and the
	// dispatcher workers send in parallel.
	return newMailSender(cfg, loc, func(ctx context.Context, msg *mail.Msg) error {
		client, err := mail.NewClient(cfg.Host, opts...)
		if err != nil {
			return fmt.Errorf("create smtp client: %w", err)
		}
		return client.DialAndSendWithContext(ctx, msg)
	}), nil
}

func newMailSender(cfg config.MailConfig, loc *localization.Localizer, send func(context.Context, *mail.Msg) error) *MailSender {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	lang := cfg.Locale
	if lang == "" {
		lang = localization.FallbackLang
	}
	return &MailSender{from: cfg.From, lang: lang, loc: loc, cb: cb, send: send}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

// Render returns the subject and plain-text body for n.
func Render(loc *localization.Localizer, lang string, n Notification) (subject, body string) {
	name := n.Name
	if name == "" {
		name = n.To
	}
	return loc.GetString(lang, keySubject), loc.Format(lang, keyBody, name, n.Preview)
}

func (s *MailSender) Send(ctx context.Context, n Notification) error {
	if n.To == "" {
		return errors.New("notification has no recipient")
	}
	subject, body := Render(s.loc, s.lang, n)

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set from address %q: %w", s.from, err)
	}
	if err := msg.To(n.To); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.send(ctx, msg)
	})
	return err
}
