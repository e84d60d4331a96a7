package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carbonledger/api/emissions/models"
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/pkg/log"
	"golang.org/x/sync/errgroup"
)

const (
	lookupPrefix = "emission-lookup"

	// generateWorkers bounds concurrent reference lookups per request.
	generateWorkers = 8
)

type lookupKey struct {
	date     string
	category string
	location string
}

func rowString(row models.GenerateRow, key string) string {
	switch v := row[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (s *emissionService) Generate(ctx context.Context, rows []models.GenerateRow) ([]models.GenerateRow, error) {
	keys := make([]lookupKey, len(rows))
	factors := make(map[lookupKey]models.Factors)
	for i, row := range rows {
		keys[i] = lookupKey{
			date:     rowString(row, "date"),
			category: rowString(row, "category"),
			location: rowString(row, "location"),
		}
		factors[keys[i]] = models.Factors{}
	}

	pending := make([]lookupKey, 0, len(factors))
	for k := range factors {
		pending = append(pending, k)
	}
	found := make([]models.Factors, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(generateWorkers)
	for i, k := range pending {
		i, k := i, k
		g.Go(func() error {
			f, err := s.lookup(gctx, k)
			if err != nil {
				return err
			}
			found[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, k := range pending {
		factors[k] = found[i]
	}

	out := make([]models.GenerateRow, len(rows))
	for i, row := range rows {
		f := factors[keys[i]]
		generated := make(models.GenerateRow, len(row)+4)
		for k, v := range row {
			generated[k] = v
		}
		generated["emission_tracker"] = f.EmissionTracker
		generated["scope1"] = f.Scope1
		generated["scope2"] = f.Scope2
		generated["scope3"] = f.Scope3
		out[i] = generated
	}
	return out, nil
}

// lookup finds the factors of the individually entered record matching k.
// Rows whose date cannot be read get zero factors.
func (s *emissionService) lookup(ctx context.Context, k lookupKey) (models.Factors, error) {
	if k.date == "" || k.category == "" || k.location == "" {
		return models.Factors{}, nil
	}
	date, err := filter.ParseDate(k.date)
	if err != nil {
		log.Debug("generate: skipping row with date %q", k.date)
		return models.Factors{}, nil
	}

	cacheKey := cache.Key(lookupPrefix, map[string]interface{}{
		"date":     date.Format("2006-01-02T15:04:05Z"),
		"category": k.category,
		"location": k.location,
	})
	var cached models.Factors
	if err := s.lookups.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	query := interfaces.Where("date", date).And(
		interfaces.Field{Name: "category", Value: k.category, Operator: interfaces.OpEq},
		interfaces.Field{Name: "location", Value: k.location, Operator: interfaces.OpEq},
		interfaces.Field{Name: "source", Value: models.SourceBulkUpload, Operator: interfaces.OpNe},
	)
	var record models.Emission
	err = s.base.FindOne(ctx, Collection, query, &record)
	var f models.Factors
	switch {
	case errors.Is(err, interfaces.ErrNoDocuments):
	case err != nil:
		return models.Factors{}, fmt.Errorf("%w: generate lookup: %v", filter.ErrStoreFailure, err)
	default:
		f = models.Factors{
			EmissionTracker: record.EmissionTracker,
			Scope1:          record.Scope1,
			Scope2:          record.Scope2,
			Scope3:          record.Scope3,
		}
	}

	if err := s.lookups.Put(ctx, cacheKey, f, 0); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		log.WarnWithContext(ctx, "cache emission lookup: %v", err)
	}
	return f, nil
}
