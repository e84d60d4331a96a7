// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package filter turns list-endpoint query parameters into repository queries.
//
// Each resource declares a Resource: which fields free-text search covers, which
// field(s) the range parameters bound, and the allow-list of columns a caller may
// put a single predicate on. Build validates a Request against that declaration
// and List runs the count and page fetch.
package filter

import (
	"errors"
	"fmt"

	"github.com/carbonledger/api/internal/database/interfaces"
)

// Operator names accepted in the operator query parameter.
const (
	Equals      = "equals"
	StartsWith  = "startsWith"
	EndsWith    = "endsWith"
	Contains    = "contains"
	GreaterThan = "greaterThan"
	LessThan    = "lessThan"
)

// MaxLimit caps the page size a caller may request.
const MaxLimit = 100

var (
	ErrInvalidColumn   = errors.New("invalid column")
	ErrInvalidOperator = errors.New("invalid operator")
	ErrInvalidValue    = errors.New("invalid value")
	ErrStoreFailure    = errors.New("store failure")

	// ErrOperatorNotApplicable is a known operator used on a column of the
	// wrong kind. It also matches ErrInvalidOperator.
	ErrOperatorNotApplicable = fmt.Errorf("%w: not applicable to column", ErrInvalidOperator)
)

// Kind tells the builder how to interpret a raw value for a column.
type Kind int

const (
	String Kind = iota
	Number
	Date
)

// Range binds the range query parameters to document fields.
// With EndField empty the range is two-sided over StartField; otherwise the
// start bound applies to StartField and the end bound to EndField.
type Range struct {
	StartParam string
	EndParam   string
	StartField string
	EndField   string
	Kind       Kind
}

// Resource is the static filtering configuration of one list endpoint.
type Resource struct {
	Collection   string
	RecordsField string
	Search       []string
	Range        *Range
	Columns      map[string]Kind
	DefaultLimit int
	Sort         []interfaces.SortField
}

// Request is one decoded list request. It is built once per call and never mutated.
type Request struct {
	Search     string
	RangeStart string
	RangeEnd   string
	Column     string
	Operator   string
	Value      string
	Page       int
	Limit      int
}

// HasPredicate reports whether the single-column predicate is fully specified.
func (r Request) HasPredicate() bool {
	return r.Column != "" && r.Operator != "" && r.Value != ""
}

// HasRange reports whether both range bounds are present.
func (r Request) HasRange() bool {
	return r.RangeStart != "" && r.RangeEnd != ""
}

func validOperator(op string) bool {
	switch op {
	case Equals, StartsWith, EndsWith, Contains, GreaterThan, LessThan:
		return true
	}
	return false
}
