package services

import (
	"context"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/filter"
	sharedInterfaces "github.com/carbonledger/api/shared/interfaces"
	"github.com/carbonledger/api/users/models"
	"github.com/gofrs/uuid"
)

const Collection = "users"

// Resource is the users list configuration.
var Resource = filter.Resource{
	Collection:   Collection,
	RecordsField: "users",
	Search:       []string{"username", "email", "firstname", "lastname"},
	Range: &filter.Range{
		StartParam: "start",
		EndParam:   "end",
		StartField: "createdAt",
		Kind:       filter.Date,
	},
	Columns: map[string]filter.Kind{
		"username":  filter.String,
		"email":     filter.String,
		"firstname": filter.String,
		"lastname":  filter.String,
		"status":    filter.String,
		"city":      filter.String,
		"country":   filter.String,
	},
	DefaultLimit: 10,
	Sort:         []interfaces.SortField{{Field: "createdAt", Direction: -1}},
}

// Indexes are created by the indexes command and on server start.
var Indexes = map[string][]interfaces.IndexSpec{
	Collection: {
		{Field: "objectId", Unique: true},
		{Field: "email", Unique: true},
		{Field: "roleId"},
	},
}

// UserService defines the interface for user operations
type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	Logout(ctx context.Context, sessionID string, expiresAt time.Time) error

	List(ctx context.Context, req filter.Request) (*filter.Page[models.User], error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error)
	ChangeCredentials(ctx context.Context, id uuid.UUID, req *models.CredentialsRequest) (*models.User, error)
	ToggleStatus(ctx context.Context, id uuid.UUID) (*models.User, error)
	AdminUpdate(ctx context.Context, id uuid.UUID, req *models.AdminUpdateRequest) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Promote grants administrator rights to the user with the given email.
	Promote(ctx context.Context, email string) error

	sharedInterfaces.UserDirectory
}
