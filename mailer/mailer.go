// Package mailer sends transactional email over SMTP. The auth subsystem
// uses it to deliver account activation links.
package mailer

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

// Options carries the SMTP connection settings.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPMailer delivers mail through a single SMTP host. A client is built
// per send; go-mail keeps connection setup cheap and this avoids holding
// idle connections to the relay.
type SMTPMailer struct {
	opts Options
}

func New(opts Options) *SMTPMailer {
	return &SMTPMailer{opts: opts}
}

// Send delivers a single HTML message.
func (m *SMTPMailer) Send(ctx context.Context, from, to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	if err := msg.From(from); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid from address").
			WithMetadata(map[string]any{"from": from})
	}

	if err := msg.To(to); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid to address").
			WithMetadata(map[string]any{"to": to})
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.opts.Host,
		mail.WithPort(m.opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.opts.Username),
		mail.WithPassword(m.opts.Password),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to create mail client")
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to send mail").
			WithMetadata(map[string]any{"to": to, "subject": subject})
	}

	return nil
}
