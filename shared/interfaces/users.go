package interfaces

import (
	"context"

	"github.com/gofrs/uuid"
)

// UserSummary is the public view of a user embedded in other resources.
type UserSummary struct {
	ObjectId  uuid.UUID `json:"objectId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
}

// UserDirectory is what roles and tasks need from the users service.
// Resources depend on this interface rather than on the users package so the
// users service stays the only writer of the users collection.
type UserDirectory interface {
	// MissingUsers returns the ids that have no user, in input order.
	MissingUsers(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	UserSummaries(ctx context.Context, ids []uuid.UUID) ([]UserSummary, error)
	// AssignRole points every listed user at roleID.
	AssignRole(ctx context.Context, userIDs []uuid.UUID, roleID uuid.UUID) error
	// ClearRole removes roleID from every user that holds it.
	ClearRole(ctx context.Context, roleID uuid.UUID) error
}
