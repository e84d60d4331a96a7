package models

import (
	"strings"
	"time"

	"github.com/carbonledger/api/internal/types"
	"github.com/gofrs/uuid"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is the stored account document. Password holds the bcrypt hash and is
// never serialised to JSON.
type User struct {
	ObjectId  uuid.UUID  `json:"objectId" bson:"objectId"`
	Username  string     `json:"username" bson:"username"`
	Email     string     `json:"email" bson:"email"`
	Firstname string     `json:"firstname" bson:"firstname"`
	Lastname  string     `json:"lastname" bson:"lastname"`
	Phone     string     `json:"phone" bson:"phone"`
	Password  string     `json:"-" bson:"password"`
	IsAdmin   bool       `json:"isAdmin" bson:"isAdmin"`
	Status    string     `json:"status" bson:"status"`
	City      string     `json:"city" bson:"city"`
	Country   string     `json:"country" bson:"country"`
	Timezone  string     `json:"timezone" bson:"timezone"`
	RoleId    *uuid.UUID `json:"roleId,omitempty" bson:"roleId,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Context returns the identity carried in the user's session token.
func (u *User) Context() types.UserContext {
	return types.UserContext{
		UserID:   u.ObjectId,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}
}

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Firstname string `json:"firstname" validate:"max=64"`
	Lastname  string `json:"lastname" validate:"max=64"`
	Phone     string `json:"phone" validate:"max=32"`
	Recaptcha string `json:"recaptcha"`
}

// Normalize trims the identity fields. Passwords are kept as typed.
func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.Firstname = strings.TrimSpace(r.Firstname)
	r.Lastname = strings.TrimSpace(r.Lastname)
	r.Phone = strings.TrimSpace(r.Phone)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// UpdateProfileRequest changes the caller's own profile. Empty fields are kept.
// A new Password is accepted only together with the matching CurrentPassword.
type UpdateProfileRequest struct {
	Email           string `json:"email" validate:"omitempty,email"`
	Firstname       string `json:"firstname" validate:"max=64"`
	Lastname        string `json:"lastname" validate:"max=64"`
	Phone           string `json:"phone" validate:"max=32"`
	City            string `json:"city" validate:"max=64"`
	Country         string `json:"country" validate:"max=64"`
	Timezone        string `json:"timezone" validate:"max=64"`
	Password        string `json:"password"`
	CurrentPassword string `json:"currentpassword"`
}

func (r *UpdateProfileRequest) Normalize() {
	for _, f := range []*string{&r.Email, &r.Firstname, &r.Lastname, &r.Phone, &r.City, &r.Country, &r.Timezone} {
		*f = strings.TrimSpace(*f)
	}
}

type CredentialsRequest struct {
	Username        string `json:"username" validate:"max=64"`
	Password        string `json:"password"`
	CurrentPassword string `json:"currentpassword"`
}

// AdminUpdateRequest is the administrator's edit of any account.
type AdminUpdateRequest struct {
	Username  string `json:"username" validate:"max=64"`
	Email     string `json:"email" validate:"omitempty,email"`
	Firstname string `json:"firstname" validate:"max=64"`
	Lastname  string `json:"lastname" validate:"max=64"`
	Phone     string `json:"phone" validate:"max=32"`
	City      string `json:"city" validate:"max=64"`
	Country   string `json:"country" validate:"max=64"`
	Timezone  string `json:"timezone" validate:"max=64"`
	Status    string `json:"status" validate:"omitempty,oneof=active inactive"`
	IsAdmin   *bool  `json:"isAdmin"`
}

// AuthResult is a user together with a freshly issued session token.
type AuthResult struct {
	User      *User
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// AuthResponse is the register and login response body.
type AuthResponse struct {
	*User
	AccessToken string `json:"accessToken"`
}
