package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Task is work toward a target assigned to one or more users.
// TargetName is copied from the target when the task is created or retargeted.
type Task struct {
	ObjectId   uuid.UUID   `json:"objectId" bson:"objectId"`
	TaskName   string      `json:"taskName" bson:"taskName"`
	TargetId   uuid.UUID   `json:"targetId" bson:"targetId"`
	TargetName string      `json:"targetName" bson:"targetName"`
	DueDate    time.Time   `json:"dueDate" bson:"dueDate"`
	UsersIds   []uuid.UUID `json:"usersIds" bson:"usersIds"`
	Status     string      `json:"status" bson:"status"`
	Progress   float64     `json:"progress" bson:"progress"`
	CreatedBy  uuid.UUID   `json:"createdBy" bson:"createdBy"`
	UpdatedBy  *uuid.UUID  `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	CreatedAt  time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt" bson:"updatedAt"`
}

type CreateTaskRequest struct {
	TaskName   string      `json:"taskName" validate:"required,max=128"`
	TargetName string      `json:"targetName" validate:"required"`
	DueDate    string      `json:"dueDate" validate:"required"`
	UsersIds   []uuid.UUID `json:"usersIds" validate:"required,min=1"`
}

type AssignTaskRequest struct {
	Id       uuid.UUID   `json:"id" validate:"required"`
	UsersIds []uuid.UUID `json:"usersIds" validate:"required,min=1"`
}

// UpdateTaskRequest changes the fields that are present.
type UpdateTaskRequest struct {
	TaskName   *string     `json:"taskName" validate:"omitempty,min=1,max=128"`
	TargetName *string     `json:"targetName" validate:"omitempty,min=1"`
	DueDate    *string     `json:"dueDate"`
	UsersIds   []uuid.UUID `json:"usersIds" validate:"omitempty,min=1"`
	Progress   *float64    `json:"progress" validate:"omitempty,gte=0,lte=100"`
	Status     *string     `json:"status" validate:"omitempty,oneof=pending completed"`
}
