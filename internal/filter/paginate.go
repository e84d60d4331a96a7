// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"context"
	"fmt"

	"github.com/carbonledger/api/internal/database/interfaces"
)

// Page is one page of decoded records.
type Page[T any] struct {
	Records    []T
	Total      int64
	Page       int
	TotalPages int
	Limit      int
}

// Body renders the page the way list endpoints return it.
func (p *Page[T]) Body(recordsField string) map[string]interface{} {
	return map[string]interface{}{
		recordsField: p.Records,
		"total":      p.Total,
		"page":       p.Page,
		"pageMin":    p.Page,
		"totalPages": p.TotalPages,
	}
}

// EffectiveLimit applies the resource default and the global cap.
func (res Resource) EffectiveLimit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = res.DefaultLimit
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

// Paginate clamps page into [1, totalPages] and returns it with the total page
// count and the number of records to skip. An empty result has one empty page.
func Paginate(total int64, page, limit int) (clamped, totalPages, skip int) {
	totalPages = int((total + int64(limit) - 1) / int64(limit))
	if totalPages < 1 {
		totalPages = 1
	}
	clamped = page
	if clamped < 1 {
		clamped = 1
	}
	if clamped > totalPages {
		clamped = totalPages
	}
	return clamped, totalPages, (clamped - 1) * limit
}

// List builds the query for req, counts matches, and fetches the requested page.
// scope is ANDed with the built query and lets callers restrict the listing,
// e.g. to the tasks of one user; it may be nil.
func List[T any](ctx context.Context, repo interfaces.Repository, res Resource, req Request, scope *interfaces.Query) (*Page[T], error) {
	query, err := res.Build(req)
	if err != nil {
		return nil, err
	}
	if scope != nil {
		query = query.And(scope.Conditions...)
		query.OrGroups = append(query.OrGroups, scope.OrGroups...)
	}

	countResult := <-repo.Count(ctx, res.Collection, query)
	if countResult.Error != nil {
		return nil, fmt.Errorf("%w: count %s: %v", ErrStoreFailure, res.Collection, countResult.Error)
	}

	limit := res.EffectiveLimit(req.Limit)
	page, totalPages, skip := Paginate(countResult.Count, req.Page, limit)

	out := &Page[T]{
		Records:    []T{},
		Total:      countResult.Count,
		Page:       page,
		TotalPages: totalPages,
		Limit:      limit,
	}
	if countResult.Count == 0 {
		return out, nil
	}

	skip64, limit64 := int64(skip), int64(limit)
	cursor := <-repo.Find(ctx, res.Collection, query, &interfaces.FindOptions{
		Skip:  &skip64,
		Limit: &limit64,
		Sort:  res.Sort,
	})
	if err := cursor.Error(); err != nil {
		return nil, fmt.Errorf("%w: find %s: %v", ErrStoreFailure, res.Collection, err)
	}
	defer cursor.Close()

	for cursor.Next() {
		var record T
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrStoreFailure, res.Collection, err)
		}
		out.Records = append(out.Records, record)
	}
	if err := cursor.Error(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %v", ErrStoreFailure, res.Collection, err)
	}
	return out, nil
}
