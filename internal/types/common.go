package types

import "github.com/gofrs/uuid"

// HTTP Header Constants
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderUID           = "uid"
)

// Authentication Constants
const (
	BearerPrefix = "Bearer "
	// ClaimKey is the JWT claim holding the UserContext fields.
	ClaimKey = "claim"
	// UserCtxName is the Fiber Locals key the auth middleware stores the UserContext under.
	UserCtxName = "user"
)

// Common Values
const (
	UserRole  = "user"
	AdminRole = "admin"
)

// UserContext is the authenticated caller as carried in the session token.
type UserContext struct {
	UserID    uuid.UUID `json:"uid"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	SessionID string    `json:"-"`
}

// SystemRole returns AdminRole for administrators and UserRole otherwise.
func (u UserContext) SystemRole() string {
	if u.IsAdmin {
		return AdminRole
	}
	return UserRole
}
