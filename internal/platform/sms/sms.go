// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/plivo/plivo-go"
)

// Message is a text message to one recipient.
type Message struct {
	To   string
	Text string
}

// Sender abstracts SMS delivery for DI and testing.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// messageCreator is the slice of the Plivo client the sender uses.
type messageCreator interface {
	Create(params plivo.MessageCreateParams) (*plivo.MessageCreateResponseBody, error)
}

// PlivoSender sends through the Plivo messages API.
type PlivoSender struct {
	source   string
	messages messageCreator
}

// NewPlivoSender creates a sender for the given credentials and source number.
func NewPlivoSender(authID, authToken, source string) (*PlivoSender, error) {
	if authID == "" || authToken == "" || source == "" {
		return nil, errors.New("plivo auth id, auth token and source number are required")
	}
	client, err := plivo.NewClient(authID, authToken, &plivo.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create plivo client: %w", err)
	}
	return &PlivoSender{source: source, messages: client.Messages}, nil
}

func (s *PlivoSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("no recipient specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.messages.Create(plivo.MessageCreateParams{
		Src:  s.source,
		Dst:  msg.To,
		Text: msg.Text,
	}); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}
