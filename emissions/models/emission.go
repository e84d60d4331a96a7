package models

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

// Source values stamped on imported records. Generated rows only copy factors
// from records that were entered individually.
const (
	SourceBulkUpload = "Bulk Upload"
	SourceCSVUpload  = "CSV Upload"
)

// Emission is one measured activity with its emission factors.
type Emission struct {
	ObjectId        uuid.UUID `json:"objectId" bson:"objectId"`
	Name            string    `json:"name" bson:"name"`
	Location        string    `json:"location" bson:"location"`
	Category        string    `json:"category" bson:"category"`
	Source          string    `json:"source" bson:"source"`
	Quantity        float64   `json:"quantity" bson:"quantity"`
	EmissionTracker float64   `json:"emission_tracker" bson:"emission_tracker"`
	Scope1          float64   `json:"scope1" bson:"scope1"`
	Scope2          float64   `json:"scope2" bson:"scope2"`
	Scope3          float64   `json:"scope3" bson:"scope3"`
	Date            time.Time `json:"date" bson:"date"`
	CreatedBy       uuid.UUID `json:"createdBy" bson:"createdBy"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// EmissionInput is one record as submitted by a client, a batch or a CSV row.
// Date accepts an RFC3339 timestamp, a day (2006-01-02) or a year.
type EmissionInput struct {
	Name            string   `json:"name" validate:"max=128"`
	Location        string   `json:"location" validate:"required,max=128"`
	Category        string   `json:"category" validate:"required,max=128"`
	Source          string   `json:"source" validate:"max=64"`
	Quantity        *float64 `json:"quantity" validate:"omitempty,gte=0"`
	EmissionTracker *float64 `json:"emission_tracker"`
	Scope1          *float64 `json:"scope1"`
	Scope2          *float64 `json:"scope2"`
	Scope3          *float64 `json:"scope3"`
	Date            string   `json:"date" validate:"required"`
}

// IsEmpty reports whether no field carries a value.
func (in *EmissionInput) IsEmpty() bool {
	for _, s := range []string{in.Name, in.Location, in.Category, in.Source, in.Date} {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	for _, n := range []*float64{in.Quantity, in.EmissionTracker, in.Scope1, in.Scope2, in.Scope3} {
		if n != nil && *n != 0 {
			return false
		}
	}
	return true
}

// EmissionUpdate changes the fields that are present.
type EmissionUpdate struct {
	Name            *string  `json:"name" validate:"omitempty,max=128"`
	Location        *string  `json:"location" validate:"omitempty,min=1,max=128"`
	Category        *string  `json:"category" validate:"omitempty,min=1,max=128"`
	Source          *string  `json:"source" validate:"omitempty,max=64"`
	Quantity        *float64 `json:"quantity" validate:"omitempty,gte=0"`
	EmissionTracker *float64 `json:"emission_tracker"`
	Scope1          *float64 `json:"scope1"`
	Scope2          *float64 `json:"scope2"`
	Scope3          *float64 `json:"scope3"`
	Date            *string  `json:"date"`
}

// GenerateRow is one requested row: the keys date, category and location
// select the reference record; every other key is returned unchanged.
type GenerateRow map[string]interface{}

// Factors are the values copied from a reference record.
type Factors struct {
	EmissionTracker float64 `json:"emission_tracker"`
	Scope1          float64 `json:"scope1"`
	Scope2          float64 `json:"scope2"`
	Scope3          float64 `json:"scope3"`
}
