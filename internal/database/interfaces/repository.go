// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

import (
	"context"
	"errors"
	"time"
)

// Repository defines the interface for document store operations.
// Every call returns a channel that receives exactly one result and is then closed.
type Repository interface {
	// Basic CRUD operations
	Save(ctx context.Context, collectionName string, data interface{}) <-chan RepositoryResult
	SaveMany(ctx context.Context, collectionName string, data []interface{}) <-chan RepositoryResult
	Find(ctx context.Context, collectionName string, query *Query, opts *FindOptions) <-chan QueryResult
	FindOne(ctx context.Context, collectionName string, query *Query) <-chan SingleResult
	Update(ctx context.Context, collectionName string, query *Query, updates map[string]interface{}) <-chan RepositoryResult
	UpdateMany(ctx context.Context, collectionName string, query *Query, updates map[string]interface{}) <-chan RepositoryResult
	Delete(ctx context.Context, collectionName string, query *Query) <-chan RepositoryResult

	// Aggregation operations
	Count(ctx context.Context, collectionName string, query *Query) <-chan CountResult

	// Index operations
	CreateIndex(ctx context.Context, collectionName string, indexes []IndexSpec) <-chan error

	// Connection management
	Ping(ctx context.Context) <-chan error
	Close() error
}

// SortField orders results by one field. Direction is 1 (asc) or -1 (desc).
type SortField struct {
	Field     string
	Direction int
}

// FindOptions represents options for find operations
type FindOptions struct {
	Limit *int64
	Skip  *int64
	Sort  []SortField
}

// IndexSpec describes a single-field index.
type IndexSpec struct {
	Field  string
	Unique bool
}

// RepositoryResult represents the result of a repository operation.
// For Update and Delete, Result holds the number of affected documents as int64.
type RepositoryResult struct {
	Result interface{}
	Error  error
}

// QueryResult represents a query result cursor
type QueryResult interface {
	Next() bool
	Decode(v interface{}) error
	Close()
	Error() error
}

// SingleResult represents a single document result
type SingleResult interface {
	Decode(v interface{}) error
	Error() error
	NoResult() bool
}

// CountResult represents the result of a count operation
type CountResult struct {
	Count int64
	Error error
}

// Database type constants
const (
	DatabaseTypeMongoDB = "mongodb"
	DatabaseTypeMemory  = "memory"
)

// Common errors
var (
	ErrNoDocuments      = NewRepositoryError("no documents found", "NOT_FOUND")
	ErrDuplicateKey     = NewRepositoryError("duplicate key error", "DUPLICATE_KEY")
	ErrInvalidFilter    = NewRepositoryError("invalid filter", "INVALID_FILTER")
	ErrConnectionFailed = NewRepositoryError("database connection failed", "CONNECTION_FAILED")
)

// RepositoryError represents a repository specific error
type RepositoryError struct {
	Message string
	Code    string
	Time    time.Time
}

func (e *RepositoryError) Error() string {
	return e.Message
}

// Is matches repository errors by code so wrapped copies compare equal.
func (e *RepositoryError) Is(target error) bool {
	var other *RepositoryError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// NewRepositoryError creates a new repository error
func NewRepositoryError(message, code string) *RepositoryError {
	return &RepositoryError{
		Message: message,
		Code:    code,
		Time:    time.Now(),
	}
}

// AffectedCount extracts the affected-document count from an Update or Delete result.
func AffectedCount(res RepositoryResult) int64 {
	if n, ok := res.Result.(int64); ok {
		return n
	}
	return 0
}
