package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Target is an emission reduction goal between two years.
type Target struct {
	ObjectId          uuid.UUID `json:"objectId" bson:"objectId"`
	Name              string    `json:"name" bson:"name"`
	Type              string    `json:"type" bson:"type"`
	EmissionReduction float64   `json:"emissionReduction" bson:"emissionReduction"`
	BaseYear          int       `json:"baseYear" bson:"baseYear"`
	TargetYear        int       `json:"targetYear" bson:"targetYear"`
	CreatedBy         uuid.UUID `json:"createdBy" bson:"createdBy"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

type CreateTargetRequest struct {
	Name              string  `json:"name" validate:"required,max=128"`
	Type              string  `json:"type" validate:"max=64"`
	EmissionReduction float64 `json:"emissionReduction" validate:"gte=0"`
	BaseYear          int     `json:"baseYear" validate:"required"`
	TargetYear        int     `json:"targetYear" validate:"required"`
}

// UpdateTargetRequest selects the target by Name and changes the other fields that are present.
type UpdateTargetRequest struct {
	Name              string   `json:"name" validate:"required"`
	Type              *string  `json:"type" validate:"omitempty,max=64"`
	EmissionReduction *float64 `json:"emissionReduction" validate:"omitempty,gte=0"`
	BaseYear          *int     `json:"baseYear"`
	TargetYear        *int     `json:"targetYear"`
}
