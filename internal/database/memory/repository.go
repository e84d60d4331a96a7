// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package memory provides a process-local Repository used by tests and by
// DB_TYPE=memory deployments. Documents are stored as BSON round-tripped maps
// so decoding behaves the same way it does against MongoDB.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/carbonledger/api/internal/database/interfaces"
	"go.mongodb.org/mongo-driver/bson"
)

// Repository is an in-memory implementation of interfaces.Repository.
type Repository struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
	unique      map[string][]string
	closed      bool
}

var _ interfaces.Repository = (*Repository)(nil)

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		collections: make(map[string][]bson.M),
		unique:      make(map[string][]string),
	}
}

// Save stores a single document
func (r *Repository) Save(ctx context.Context, collectionName string, data interface{}) <-chan interfaces.RepositoryResult {
	result := make(chan interfaces.RepositoryResult, 1)
	defer close(result)

	if err := ctx.Err(); err != nil {
		result <- interfaces.RepositoryResult{Error: err}
		return result
	}

	doc, err := toDocument(data)
	if err != nil {
		result <- interfaces.RepositoryResult{Error: err}
		return result
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(collectionName, doc, -1); err != nil {
		result <- interfaces.RepositoryResult{Error: err}
		return result
	}
	r.collections[collectionName] = append(r.collections[collectionName], doc)
	result <- interfaces.RepositoryResult{Result: doc["objectId"]}
	return result
}

// SaveMany stores documents one by one, skipping the ones that violate a unique index.
func (r *Repository) SaveMany(ctx context.Context, collectionName string, data []interface{}) <-chan interfaces.RepositoryResult {
	result := make(chan interfaces.RepositoryResult, 1)
	defer close(result)

	if err := ctx.Err(); err != nil {
		result <- interfaces.RepositoryResult{Error: err}
		return result
	}

	docs := make([]bson.M, 0, len(data))
	for _, item := range data {
		doc, err := toDocument(item)
		if err != nil {
			result <- interfaces.RepositoryResult{Error: err}
			return result
		}
		docs = append(docs, doc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]interface{}, 0, len(docs))
	var firstErr error
	for _, doc := range docs {
		if err := r.checkUnique(collectionName, doc, -1); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		r.collections[collectionName] = append(r.collections[collectionName], doc)
		ids = append(ids, doc["objectId"])
	}

	result <- interfaces.RepositoryResult{Result: ids, Error: firstErr}
	return result
}

// Find retrieves matching documents honouring sort, skip and limit
func (r *Repository) Find(ctx context.Context, collectionName string, query *interfaces.Query, opts *interfaces.FindOptions) <-chan interfaces.QueryResult {
	result := make(chan interfaces.QueryResult, 1)
	defer close(result)

	if err := ctx.Err(); err != nil {
		result <- &queryResult{err: err}
		return result
	}

	r.mu.RLock()
	matched, err := r.match(collectionName, query)
	r.mu.RUnlock()
	if err != nil {
		result <- &queryResult{err: err}
		return result
	}

	if opts != nil {
		if len(opts.Sort) > 0 {
			sortDocuments(matched, opts.Sort)
		}
		if opts.Skip != nil && *opts.Skip > 0 {
			skip := int(*opts.Skip)
			if skip >= len(matched) {
				matched = nil
			} else {
				matched = matched[skip:]
			}
		}
		if opts.Limit != nil && *opts.Limit > 0 && int(*opts.Limit) < len(matched) {
			matched = matched[:*opts.Limit]
		}
	}

	result <- &queryResult{docs: matched, pos: -1}
	return result
}

// FindOne retrieves the first matching document
func (r *Repository) FindOne(ctx context.Context, collectionName string, query *interfaces.Query) <-chan interfaces.SingleResult {
	result := make(chan interfaces.SingleResult, 1)
	defer close(result)

	if err := ctx.Err(); err != nil {
		result <- &singleResult{err: err}
		return result
	}

	r.mu.RLock()
	matched, err := r.match(collectionName, query)
	r.mu.RUnlock()
	if err != nil {
		result <- &singleResult{err: err}
		return result
	}
	if len(matched) == 0 {
		result <- &singleResult{noResult: true}
		return result
	}

	result <- &singleResult{doc: matched[0]}
	return result
}

// Update applies the updates to the first matching document
func (r *Repository) Update(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}) <-chan interfaces.RepositoryResult {
	return r.update(ctx, collectionName, query, updates, false)
}

// UpdateMany applies the updates to every matching document
func (r *Repository) UpdateMany(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}) <-chan interfaces.RepositoryResult {
	return r.update(ctx, collectionName, query, updates, true)
}

func (r *Repository) update(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}, many bool) <-chan interfaces.RepositoryResult {
	result := make(chan interfaces.RepositoryResult, 1)
	defer close(result)

	if err := ctx.Err(); err != nil {
		result <- interfaces.RepositoryResult{Error: err}
		return result
	}

	set, unset, err := splitUpdates(updates)
	if err != nil {
		result <- interfaces.RepositoryResult{Error: err}
		return result
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pred, err := compile(query)
	if err != nil {
		result <- interfaces.RepositoryResult{Error: err}
		return result
	}

	var matched int64
	docs := r.collections[collectionName]
	for i, doc := range docs {
		if !pred(doc) {
			continue
		}
		updated := copyDocument(doc)
		for k, v := range set {
			updated[k] = v
		}
		for _, k := range unset {
			delete(updated, k)
		}
		if err := r.checkUnique(collectionName, updated, i); err != nil {
			result <- interfaces.RepositoryResult{Result: matched, Error: err}
			return result
		}
		docs[i] = updated
		matched++
		if !many {
			break
		}
	}

	result <- interfaces.RepositoryResult{Result: matched}
	return result
}

// Delete removes every matching document
func (r *Repository) Delete(ctx context.Context, collectionName string, query *interfaces.Query) <-chan interfaces.RepositoryResult {
	result := make(chan interfaces.RepositoryResult, 1)
	defer close(result)

	if err := ctx.Err(); err != nil {
		result <- interfaces.RepositoryResult{Error: err}
		return result
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pred, err := compile(query)
	if err != nil {
		result <- interfaces.RepositoryResult{Error: err}
		return result
	}

	docs := r.collections[collectionName]
	kept := docs[:0]
	var deleted int64
	for _, doc := range docs {
		if pred(doc) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	r.collections[collectionName] = kept

	result <- interfaces.RepositoryResult{Result: deleted}
	return result
}

// Count counts matching documents
func (r *Repository) Count(ctx context.Context, collectionName string, query *interfaces.Query) <-chan interfaces.CountResult {
	result := make(chan interfaces.CountResult, 1)
	defer close(result)

	if err := ctx.Err(); err != nil {
		result <- interfaces.CountResult{Error: err}
		return result
	}

	r.mu.RLock()
	matched, err := r.match(collectionName, query)
	r.mu.RUnlock()
	if err != nil {
		result <- interfaces.CountResult{Error: err}
		return result
	}

	result <- interfaces.CountResult{Count: int64(len(matched))}
	return result
}

// CreateIndex records unique indexes; non-unique indexes are accepted and ignored.
func (r *Repository) CreateIndex(ctx context.Context, collectionName string, indexes []interfaces.IndexSpec) <-chan error {
	result := make(chan error, 1)
	defer close(result)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, spec := range indexes {
		if !spec.Unique {
			continue
		}
		exists := false
		for _, f := range r.unique[collectionName] {
			if f == spec.Field {
				exists = true
				break
			}
		}
		if !exists {
			r.unique[collectionName] = append(r.unique[collectionName], spec.Field)
		}
	}

	result <- nil
	return result
}

// Ping reports whether the repository is still open
func (r *Repository) Ping(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	defer close(result)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		result <- interfaces.ErrConnectionFailed
		return result
	}
	result <- nil
	return result
}

// Close marks the repository closed
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// match returns copies of the matching documents in insertion order. Caller holds the lock.
func (r *Repository) match(collectionName string, query *interfaces.Query) ([]bson.M, error) {
	pred, err := compile(query)
	if err != nil {
		return nil, err
	}
	var out []bson.M
	for _, doc := range r.collections[collectionName] {
		if pred(doc) {
			out = append(out, copyDocument(doc))
		}
	}
	return out, nil
}

// checkUnique rejects doc when it collides with another document on a unique field.
// skip is the index of the document being replaced, or -1.
func (r *Repository) checkUnique(collectionName string, doc bson.M, skip int) error {
	for _, field := range r.unique[collectionName] {
		value, ok := doc[field]
		if !ok {
			continue
		}
		for i, other := range r.collections[collectionName] {
			if i == skip {
				continue
			}
			if existing, ok := other[field]; ok && equalValues(existing, value) {
				return fmt.Errorf("%w: %s", interfaces.ErrDuplicateKey, field)
			}
		}
	}
	return nil
}

func toDocument(data interface{}) (bson.M, error) {
	raw, err := bson.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func copyDocument(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func splitUpdates(updates map[string]interface{}) (bson.M, []string, error) {
	plain := map[string]interface{}{}
	var unset []string
	for key, value := range updates {
		switch {
		case key == "$set":
			fields, ok := asMap(value)
			if !ok {
				return nil, nil, fmt.Errorf("%w: $set expects a document", interfaces.ErrInvalidFilter)
			}
			for k, v := range fields {
				plain[k] = v
			}
		case key == "$unset":
			fields, ok := asMap(value)
			if !ok {
				return nil, nil, fmt.Errorf("%w: $unset expects a document", interfaces.ErrInvalidFilter)
			}
			for k := range fields {
				unset = append(unset, k)
			}
		case strings.HasPrefix(key, "$"):
			return nil, nil, fmt.Errorf("%w: unsupported update operator %s", interfaces.ErrInvalidFilter, key)
		default:
			plain[key] = value
		}
	}
	set, err := toDocument(plain)
	if err != nil {
		return nil, nil, err
	}
	return set, unset, nil
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return m, true
	default:
		return nil, false
	}
}

func sortDocuments(docs []bson.M, fields []interfaces.SortField) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, f := range fields {
			c := compareValues(normalize(docs[i][f.Field]), normalize(docs[j][f.Field]))
			if c == 0 {
				continue
			}
			if f.Direction < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

type queryResult struct {
	docs []bson.M
	pos  int
	err  error
}

func (q *queryResult) Next() bool {
	if q.err != nil {
		return false
	}
	q.pos++
	return q.pos < len(q.docs)
}

func (q *queryResult) Decode(v interface{}) error {
	if q.pos < 0 || q.pos >= len(q.docs) {
		return fmt.Errorf("cursor is not positioned on a document")
	}
	return decode(q.docs[q.pos], v)
}

func (q *queryResult) Close() {}

func (q *queryResult) Error() error {
	return q.err
}

type singleResult struct {
	doc      bson.M
	err      error
	noResult bool
}

func (s *singleResult) Decode(v interface{}) error {
	if s.noResult {
		return interfaces.ErrNoDocuments
	}
	if s.err != nil {
		return s.err
	}
	return decode(s.doc, v)
}

func (s *singleResult) Error() error {
	if s.noResult {
		return interfaces.ErrNoDocuments
	}
	return s.err
}

func (s *singleResult) NoResult() bool {
	return s.noResult
}

func decode(doc bson.M, v interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, v)
}
