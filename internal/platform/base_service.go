// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/carbonledger/api/internal/database/factory"
	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/database/observability"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
)

// BaseService provides the repository helpers shared by every resource service
type BaseService struct {
	Repository interfaces.Repository
}

// NewBaseService creates the configured repository. When metrics is non-nil
// every repository call is recorded.
func NewBaseService(ctx context.Context, cfg *platformconfig.Config, metrics *observability.Metrics) (*BaseService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("platform configuration is required")
	}

	repository, err := factory.NewRepository(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	if metrics != nil {
		repository = observability.Instrument(repository, metrics)
	}
	return &BaseService{Repository: repository}, nil
}

// NewBaseServiceWithRepo creates a BaseService with an existing repository
func NewBaseServiceWithRepo(repo interfaces.Repository) *BaseService {
	return &BaseService{Repository: repo}
}

// FindOne decodes the first match into out. A miss returns interfaces.ErrNoDocuments.
func (s *BaseService) FindOne(ctx context.Context, collection string, query *interfaces.Query, out interface{}) error {
	res := <-s.Repository.FindOne(ctx, collection, query)
	if err := res.Decode(out); err != nil {
		if errors.Is(err, interfaces.ErrNoDocuments) {
			return interfaces.ErrNoDocuments
		}
		return fmt.Errorf("find one in %s: %w", collection, err)
	}
	return nil
}

// Exists reports whether any document matches query.
func (s *BaseService) Exists(ctx context.Context, collection string, query *interfaces.Query) (bool, error) {
	res := <-s.Repository.Count(ctx, collection, query)
	if res.Error != nil {
		return false, fmt.Errorf("count %s: %w", collection, res.Error)
	}
	return res.Count > 0, nil
}

// FindAll decodes every match of query, in opts order.
func FindAll[T any](ctx context.Context, repo interfaces.Repository, collection string, query *interfaces.Query, opts *interfaces.FindOptions) ([]T, error) {
	cursor := <-repo.Find(ctx, collection, query, opts)
	if err := cursor.Error(); err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer cursor.Close()

	out := []T{}
	for cursor.Next() {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		out = append(out, item)
	}
	if err := cursor.Error(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

// EnsureIndexes creates the given indexes per collection.
func (s *BaseService) EnsureIndexes(ctx context.Context, indexes map[string][]interfaces.IndexSpec) error {
	for collection, specs := range indexes {
		if err := <-s.Repository.CreateIndex(ctx, collection, specs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

// HealthCheck performs a health check on the repository
func (s *BaseService) HealthCheck(ctx context.Context) error {
	return <-s.Repository.Ping(ctx)
}

// Close closes the service and its resources
func (s *BaseService) Close() error {
	if s.Repository != nil {
		return s.Repository.Close()
	}
	return nil
}
