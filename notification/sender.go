package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"os"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"agency-forms/config"
	"agency-forms/logger"
	"agency-forms/utils"
)

// Sender is a rate limited SMTP client. Every verify or send runs in its own
// session whose connection deadline follows the caller's context, so a
// stalled relay is abandoned at the deadline instead of holding a socket.
type Sender struct {
	config  config.SMTPConfig
	policy  config.MailPolicy
	auth    smtp.Auth
	tls     *tls.Config
	limiter *rate.Limiter
	log     *slog.Logger

	// deliver and verify are replaced in tests.
	deliver func(ctx context.Context, e *email.Email) error
	verify  func(ctx context.Context) error
}

var _ Mailer = (*Sender)(nil)

func NewSender(cfg config.SMTPConfig, policy config.MailPolicy, log *slog.Logger) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if policy.Timeout <= 0 {
		policy.Timeout = 10 * time.Second
	}
	if policy.RetryBackoff <= 0 {
		policy.RetryBackoff = 500 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}

	limit := rate.Inf
	if policy.RatePerSec > 0 {
		limit = rate.Limit(policy.RatePerSec)
	}
	burst := policy.Burst
	if burst <= 0 {
		burst = 1
	}

	s := &Sender{
		config:  cfg,
		policy:  policy,
		auth:    smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		tls:     &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		limiter: rate.NewLimiter(limit, burst),
		log:     log.With(logger.Component("smtp"), slog.String("relay", cfg.Addr())),
	}
	s.deliver = s.deliverSMTP
	s.verify = s.verifySMTP
	return s, nil
}

// Verify opens a session to the relay, upgrades to TLS and authenticates,
// without sending anything.
func (s *Sender) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.policy.Timeout)
	defer cancel()

	err := s.verify(ctx)
	if err == nil {
		return nil
	}
	if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("failed to verify smtp connection: %w", err)
}

// Send delivers msg. Failures that happen before the relay could have
// accepted the message are retried with exponential backoff, bounded by
// MaxRetries and RequestTimeout. A timed out attempt is never retried since
// the relay may already hold the message.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	e := msg.toEmail(s.config.Sender())

	backoff := retry.NewExponential(s.policy.RetryBackoff)
	if s.policy.RequestTimeout > 0 {
		backoff = retry.WithMaxDuration(s.policy.RequestTimeout, backoff)
	}
	backoff = retry.WithMaxRetries(s.policy.MaxRetries, backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := s.limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("%w: waiting for send slot: %v", ErrTimeout, err)
		}

		start := time.Now()
		err := s.sendOnce(ctx, e)
		if err == nil {
			s.log.Debug("email sent",
				slog.String("tag", msg.Tag),
				slog.Int("attempt", attempt),
				logger.Duration(time.Since(start)),
			)
			return nil
		}

		s.log.Warn("email send failed",
			slog.String("tag", msg.Tag),
			slog.String("to", maskAll(msg.To)),
			slog.Int("attempt", attempt),
			logger.Error(err),
		)
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Close is a no-op; sessions are closed after every call.
func (s *Sender) Close() {}

func (s *Sender) sendOnce(ctx context.Context, e *email.Email) error {
	ctx, cancel := context.WithTimeout(ctx, s.policy.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.deliver(ctx, e)
	}()

	select {
	case err := <-done:
		if isTimeout(err) {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// session dials the relay and returns an authenticated client. The
// connection carries ctx's deadline and is closed if ctx ends first; the
// returned release func must be called once the client is done.
func (s *Sender) session(ctx context.Context) (*smtp.Client, func(), error) {
	d := net.Dialer{Timeout: s.policy.Timeout}
	conn, err := d.DialContext(ctx, "tcp", s.config.Addr())
	if err != nil {
		return nil, nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	if s.config.Secure {
		conn = tls.Client(conn, s.tls)
	}
	c, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		stop()
		conn.Close()
		return nil, nil, err
	}
	release := func() {
		stop()
		c.Close()
	}

	if !s.config.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.tls); err != nil {
				release()
				return nil, nil, err
			}
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(s.auth); err != nil {
			release()
			return nil, nil, err
		}
	}
	return c, release, nil
}

func (s *Sender) verifySMTP(ctx context.Context) error {
	c, release, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer release()
	return c.Quit()
}

func (s *Sender) deliverSMTP(ctx context.Context, e *email.Email) error {
	from, to, err := envelope(e)
	if err != nil {
		return err
	}
	raw, err := e.Bytes()
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	c, release, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer release()

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
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	// The relay has accepted the message; a failed QUIT does not undo that.
	_ = c.Quit()
	return nil
}

// envelope extracts the bare SMTP envelope addresses of e.
func envelope(e *email.Email) (string, []string, error) {
	sender := e.From
	if e.Sender != "" {
		sender = e.Sender
	}
	from, err := mail.ParseAddress(sender)
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad sender %q: %v", ErrInvalidMessage, sender, err)
	}

	var to []string
	for _, list := range [][]string{e.To, e.Cc, e.Bcc} {
		for _, addr := range list {
			a, err := mail.ParseAddress(addr)
			if err != nil {
				return "", nil, fmt.Errorf("%w: bad recipient %q: %v", ErrInvalidMessage, addr, err)
			}
			to = append(to, a.Address)
		}
	}
	return from.Address, to, nil
}

// IsTransient reports whether err is safe to retry: the relay answered with
// a 4xx reply or could not be reached at all. Timeouts and dropped
// connections are not, since the message may already have been accepted.
func IsTransient(err error) bool {
	if err == nil || isTimeout(err) {
		return false
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 400 && tpErr.Code < 500
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func maskAll(addrs []string) string {
	out := ""
	for i, a := range addrs {
		if i > 0 {
			out += ","
		}
		out += utils.MaskEmail(a)
	}
	return out
}
