package utils

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gopkg.in/gomail.v2"

	"github.com/freemirror/yatube/config"
)

// Mailer sends plain text mail over SMTP.
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string

	wg      sync.WaitGroup
	pending atomic.Int64
}

// NewMailer returns nil when SMTP is not configured; a nil *Mailer drops every message.
func NewMailer(cfg config.AppConfig) *Mailer {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return nil
	}
	return &Mailer{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
	}
}

// Send delivers one message.
func (m *Mailer) Send(to, subject, body string) error {
	if m == nil {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Go runs send in the background. Drain waits for everything started this way.
func (m *Mailer) Go(send func()) {
	if m == nil {
		return
	}
	m.wg.Add(1)
	m.pending.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.pending.Add(-1)
		send()
	}()
}

// Drain blocks until background sends finish or ctx ends. Sends still running at that point are reported as dropped.
func (m *Mailer) Drain(ctx context.Context) error {
	if m == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		n := m.pending.Load()
		Sugar.Warnw("dropping unsent mail", "pending", n, "err", ctx.Err())
		return fmt.Errorf("%d mail sends still running: %w", n, ctx.Err())
	}
}
