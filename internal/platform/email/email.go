// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package email

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

var ErrNoRecipients = errors.New("no recipients specified")

// Message is a notification mail. Text is the plain part; HTML, when set, is
// attached as the alternative.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through one SMTP relay, opening a connection per message.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPSender requires host and port. from is used for messages without a sender.
func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	if host == "" || port <= 0 {
		return nil, fmt.Errorf("SMTP host and port are required")
	}
	return &SMTPSender{host: host, port: port, username: username, password: password, from: from}, nil
}

func (s *SMTPSender) compose(msg Message) (*gomail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}
	from := msg.From
	if from == "" {
		from = s.from
	}

	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("sender %q: %w", from, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.compose(msg)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}
	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %v: %w", msg.To, err)
	}
	return nil
}
