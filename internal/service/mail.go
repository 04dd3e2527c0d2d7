package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// SMTPMailer delivers mail through an SMTP relay. With Resend the username
// is "resend" and the password is the API key
type SMTPMailer struct {
	Dialer  *gomail.Dialer
	From    string
	Timeout time.Duration
}

func NewSMTPMailer(host string, port int, username, apiKey, from string, timeout time.Duration) *SMTPMailer {
	return &SMTPMailer{
		Dialer:  gomail.NewDialer(host, port, username, apiKey),
		From:    from,
		Timeout: timeout,
	}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	if to == m.From {
		return errors.New("invalid email address")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/html", fmt.Sprintf("<p>Click <a href='%v'>here</a> to reset your password.</p><p>If you didn't ask for this you can ignore this email.</p>", link))

	return m.send(ctx, msg)
}

// gomail can't be cancelled so the send keeps running in the background
// after the deadline passes
func (m *SMTPMailer) send(ctx context.Context, msg *gomail.Message) error {
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.Dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w, %w", ErrUpstream, err)
		}

		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w, %w", ErrUpstreamTimeout, ctx.Err())
	}
}
