// Package email sends plain-text notifications over SMTP.
package email

import (
	"context"
	"time"

	"gopkg.in/mail.v2"
)

type Client struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	timeout  time.Duration
}

func NewClient(smtpHost string, smtpPort int, username, password, from string) *Client {
	return &Client{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
		from:     from,
		timeout:  10 * time.Second,
	}
}

// Send delivers one message. The dial timeout is shortened to the context deadline when one is set.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := mail.NewMessage()

	message.SetHeader("From", c.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)

	message.SetBody("text/plain", body)

	dialer := mail.NewDialer(c.smtpHost, c.smtpPort, c.username, c.password)
	dialer.Timeout = c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < dialer.Timeout {
			dialer.Timeout = d
		}
	}

	return dialer.DialAndSend(message)
}
