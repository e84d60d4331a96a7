package testutil

import (
	"context"
	"sync"

	"github.com/carbonledger/api/internal/platform/email"
)

// FakeEmailSender records messages instead of delivering them.
type FakeEmailSender struct {
	mu   sync.Mutex
	Sent []email.Message
}

func NewFakeEmailSender() *FakeEmailSender {
	return &FakeEmailSender{}
}

func (f *FakeEmailSender) Send(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	f.Sent = append(f.Sent, msg)
	f.mu.Unlock()
	return nil
}

// LastSent returns the newest message, or nil when nothing was sent.
func (f *FakeEmailSender) LastSent() *email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.Sent); n > 0 {
		msg := f.Sent[n-1]
		return &msg
	}
	return nil
}
