// Package notify records and fans out activity notifications without
// blocking the request that produced them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/carbonledger/api/internal/platform/email"
	"github.com/carbonledger/api/internal/platform/sms"
	"github.com/carbonledger/api/internal/types"
	"github.com/gofrs/uuid"
)

const (
	Collection = "notifications"
	StatusSent = "SENT"

	usersCollection = "users"
	sendTimeout     = 30 * time.Second
)

// Notification is the stored record of one event.
type Notification struct {
	ObjectId  uuid.UUID `json:"objectId" bson:"objectId"`
	Message   string    `json:"message" bson:"message"`
	Status    string    `json:"status" bson:"status"`
	ActorID   uuid.UUID `json:"actorId" bson:"actorId"`
	ActorName string    `json:"actorName" bson:"actorName"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Config wires the optional channels. Nil senders are skipped.
type Config struct {
	Repository interfaces.Repository
	Publisher  Publisher
	Subject    string
	Email      email.Sender
	SMS        sms.Sender
	// AppName prefixes email subjects.
	AppName string
}

// Dispatcher delivers notifications in the background.
type Dispatcher struct {
	cfg Config
	wg  sync.WaitGroup
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Subject == "" {
		cfg.Subject = "carbon.notifications"
	}
	return &Dispatcher{cfg: cfg}
}

// Notify records message on behalf of actor and returns immediately.
// Delivery failures are logged and never reported to the caller.
func (d *Dispatcher) Notify(ctx context.Context, actor types.UserContext, message string) {
	id, err := uuid.NewV4()
	if err != nil {
		log.ErrorWithContext(ctx, "notification id: %v", err)
		return
	}
	n := Notification{
		ObjectId:  id,
		Message:   message,
		Status:    StatusSent,
		ActorID:   actor.UserID,
		ActorName: actor.Username,
		CreatedAt: time.Now().UTC(),
	}
	requestID := log.RequestID(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		bg, cancel := context.WithTimeout(log.WithRequestID(context.Background(), requestID), sendTimeout)
		defer cancel()
		d.deliver(bg, n)
	}()
}

// Wait blocks until every in-flight notification is done.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	if d.cfg.Repository != nil {
		if res := <-d.cfg.Repository.Save(ctx, Collection, n); res.Error != nil {
			log.ErrorWithContext(ctx, "store notification %s: %v", n.ObjectId, res.Error)
		}
	}

	if d.cfg.Publisher != nil {
		payload, err := json.Marshal(n)
		if err == nil {
			err = d.cfg.Publisher.Publish(d.cfg.Subject, payload)
		}
		if err != nil {
			log.ErrorWithContext(ctx, "publish notification %s: %v", n.ObjectId, err)
		}
	}

	if d.cfg.Email == nil && d.cfg.SMS == nil {
		return
	}
	contact, err := d.lookupContact(ctx, n.ActorID)
	if err != nil {
		log.WarnWithContext(ctx, "notification contact for %s: %v", n.ActorID, err)
		return
	}

	if d.cfg.Email != nil && contact.Email != "" {
		msg := email.Message{
			To:      []string{contact.Email},
			Subject: fmt.Sprintf("[%s] %s", d.cfg.AppName, n.Message),
			Text:    fmt.Sprintf("%s %s.", n.ActorName, n.Message),
			HTML:    fmt.Sprintf("<p><strong>%s</strong> %s.</p>", html.EscapeString(n.ActorName), html.EscapeString(n.Message)),
		}
		if err := d.cfg.Email.Send(ctx, msg); err != nil {
			log.ErrorWithContext(ctx, "email notification %s: %v", n.ObjectId, err)
		}
	}
	if d.cfg.SMS != nil && contact.Phone != "" {
		if err := d.cfg.SMS.Send(ctx, sms.Message{To: contact.Phone, Text: n.ActorName + " " + n.Message}); err != nil {
			log.ErrorWithContext(ctx, "sms notification %s: %v", n.ObjectId, err)
		}
	}
}

type contact struct {
	Email string `bson:"email"`
	Phone string `bson:"phone"`
}

func (d *Dispatcher) lookupContact(ctx context.Context, userID uuid.UUID) (contact, error) {
	var c contact
	if d.cfg.Repository == nil {
		return c, fmt.Errorf("no repository configured")
	}
	res := <-d.cfg.Repository.FindOne(ctx, usersCollection, interfaces.Where("objectId", userID))
	err := res.Decode(&c)
	return c, err
}
