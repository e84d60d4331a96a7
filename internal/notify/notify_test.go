package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/database/memory"
	"github.com/carbonledger/api/internal/platform/sms"
	"github.com/carbonledger/api/internal/testutil"
	"github.com/carbonledger/api/internal/types"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return p.err
}

type recordingSMS struct {
	mu   sync.Mutex
	sent []sms.Message
}

func (r *recordingSMS) Send(ctx context.Context, msg sms.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return errors.New("carrier down")
}

func TestDispatcher_FansOut(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	actor := types.UserContext{UserID: uuid.Must(uuid.NewV4()), Username: "ana"}
	require.NoError(t, (<-repo.Save(ctx, "users", map[string]interface{}{
		"objectId": actor.UserID,
		"email":    "ana@example.com",
		"phone":    "+15550002",
	})).Error)

	pub := &recordingPublisher{}
	mail := testutil.NewFakeEmailSender()
	text := &recordingSMS{}
	d := NewDispatcher(Config{Repository: repo, Publisher: pub, Email: mail, SMS: text, AppName: "Carbon"})

	d.Notify(ctx, actor, "created new target")
	d.Wait()

	var stored Notification
	res := <-repo.FindOne(ctx, Collection, interfaces.Where("actorId", actor.UserID))
	require.NoError(t, res.Decode(&stored))
	assert.Equal(t, "created new target", stored.Message)
	assert.Equal(t, StatusSent, stored.Status)
	assert.Equal(t, "ana", stored.ActorName)

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "carbon.notifications", pub.subjects[0])
	var event Notification
	require.NoError(t, json.Unmarshal(pub.payloads[0], &event))
	assert.Equal(t, stored.ObjectId, event.ObjectId)

	require.Len(t, mail.Sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, mail.LastSent().To)
	assert.Equal(t, "[Carbon] created new target", mail.LastSent().Subject)

	// a failing channel does not stop the others
	require.Len(t, text.sent, 1)
	assert.Equal(t, "+15550002", text.sent[0].To)
}

func TestDispatcher_PublishFailureStillStores(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	d := NewDispatcher(Config{Repository: repo, Publisher: &recordingPublisher{err: errors.New("no broker")}, Subject: "custom"})

	actor := types.UserContext{UserID: uuid.Must(uuid.NewV4()), Username: "bo"}
	for i := 0; i < 3; i++ {
		d.Notify(ctx, actor, "deleted target")
	}
	d.Wait()

	count := <-repo.Count(ctx, Collection, nil)
	require.NoError(t, count.Error)
	assert.Equal(t, int64(3), count.Count)
}

func TestDispatcher_UnknownActorSkipsContactChannels(t *testing.T) {
	mail := testutil.NewFakeEmailSender()
	d := NewDispatcher(Config{Repository: memory.NewRepository(), Email: mail})
	d.Notify(context.Background(), types.UserContext{UserID: uuid.Must(uuid.NewV4())}, "updated target")
	d.Wait()
	assert.Nil(t, mail.LastSent())
}
