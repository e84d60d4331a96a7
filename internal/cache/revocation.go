package cache

import (
	"context"
	"errors"
	"time"
)

// Revocations is a denylist of session ids. Entries live until the token
// they name would have expired anyway.
type Revocations struct {
	store *Store
}

func NewRevocations(store *Store) *Revocations {
	return &Revocations{store: store}
}

func revocationKey(sessionID string) string {
	return "revoked:" + sessionID
}

// Revoke denies sessionID until expiresAt. Already expired sessions are ignored.
func (r *Revocations) Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if sessionID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.store.Put(ctx, revocationKey(sessionID), true, ttl)
}

// IsRevoked reports whether sessionID was revoked. A disabled store revokes nothing.
func (r *Revocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" || !r.store.IsEnabled() {
		return false, nil
	}
	ok, err := r.store.Has(ctx, revocationKey(sessionID))
	if errors.Is(err, ErrCacheDisabled) {
		return false, nil
	}
	return ok, err
}
