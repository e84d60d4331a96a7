package models

import (
	"time"

	sharedInterfaces "github.com/carbonledger/api/shared/interfaces"
	"github.com/gofrs/uuid"
)

// Role groups users under a name and a set of permission strings.
type Role struct {
	ObjectId    uuid.UUID   `json:"objectId" bson:"objectId"`
	Name        string      `json:"name" bson:"name"`
	Permissions []string    `json:"permissions" bson:"permissions"`
	UsersIds    []uuid.UUID `json:"usersIds" bson:"usersIds"`
	CreatedBy   uuid.UUID   `json:"createdBy" bson:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// RoleView is a role with its members resolved.
type RoleView struct {
	ObjectId    uuid.UUID                      `json:"objectId"`
	Name        string                         `json:"name"`
	Permissions []string                       `json:"permissions"`
	Users       []sharedInterfaces.UserSummary `json:"users"`
	CreatedAt   time.Time                      `json:"createdAt"`
	UpdatedAt   time.Time                      `json:"updatedAt"`
}

type CreateRoleRequest struct {
	Name        string      `json:"name" validate:"required,max=64"`
	UsersIds    []uuid.UUID `json:"usersIds"`
	Permissions []string    `json:"permissions" validate:"dive,required"`
}

// UpdateRoleRequest changes the fields that are present. An explicit empty
// usersIds list removes every member.
type UpdateRoleRequest struct {
	Name        string      `json:"name" validate:"max=64"`
	UsersIds    []uuid.UUID `json:"usersIds"`
	Permissions []string    `json:"permissions" validate:"dive,required"`
}

func (r *UpdateRoleRequest) IsEmpty() bool {
	return r.Name == "" && r.UsersIds == nil && r.Permissions == nil
}
