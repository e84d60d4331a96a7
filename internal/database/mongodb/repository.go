// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/pkg/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Options describe how to reach the ledger database.
type Options struct {
	URI            string
	Host           string
	Port           int
	Username       string
	Password       string
	AuthDatabase   string
	ReplicaSet     string
	Database       string
	MaxPoolSize    int
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

// ConnectionURI returns URI when set, otherwise a mongodb:// URI built from the discrete fields.
func (o Options) ConnectionURI() string {
	if o.URI != "" {
		return o.URI
	}
	u := url.URL{Scheme: "mongodb", Host: o.Host + ":" + strconv.Itoa(o.Port), Path: "/"}
	if o.Username != "" {
		u.User = url.UserPassword(o.Username, o.Password)
	}
	q := url.Values{}
	if o.AuthDatabase != "" {
		q.Set("authSource", o.AuthDatabase)
	}
	if o.ReplicaSet != "" {
		q.Set("replicaSet", o.ReplicaSet)
	}
	u.RawQuery = q.Encode()
	if u.RawQuery == "" {
		u.Path = ""
	}
	return u.String()
}

// Repository stores every collection in one MongoDB database.
type Repository struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, opts Options) (*Repository, error) {
	if opts.Database == "" {
		return nil, errors.New("mongodb: database name is required")
	}
	clientOptions := options.Client().ApplyURI(opts.ConnectionURI()).SetMaxConnIdleTime(5 * time.Minute)
	if opts.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(uint64(opts.MaxPoolSize))
	}
	if opts.ConnectTimeout > 0 {
		clientOptions.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.SocketTimeout > 0 {
		clientOptions.SetSocketTimeout(opts.SocketTimeout)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	return &Repository{client: client, database: client.Database(opts.Database)}, nil
}

// async runs fn on its own goroutine and delivers its value on a closed, buffered channel.
func async[T any](fn func() T) <-chan T {
	ch := make(chan T, 1)
	go func() {
		defer close(ch)
		ch <- fn()
	}()
	return ch
}

func failed(op, collection string, err error) error {
	log.Error("mongodb %s on %s: %v", op, collection, err)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", interfaces.ErrDuplicateKey, err)
	}
	return err
}

func (r *Repository) Save(ctx context.Context, collection string, data interface{}) <-chan interfaces.RepositoryResult {
	return async(func() interfaces.RepositoryResult {
		res, err := r.database.Collection(collection).InsertOne(ctx, data)
		if err != nil {
			return interfaces.RepositoryResult{Error: failed("insert", collection, err)}
		}
		return interfaces.RepositoryResult{Result: res.InsertedID}
	})
}

// SaveMany inserts unordered, so one rejected document does not stop the rest.
func (r *Repository) SaveMany(ctx context.Context, collection string, data []interface{}) <-chan interfaces.RepositoryResult {
	return async(func() interfaces.RepositoryResult {
		if len(data) == 0 {
			return interfaces.RepositoryResult{Result: []interface{}{}}
		}
		res, err := r.database.Collection(collection).InsertMany(ctx, data, options.InsertMany().SetOrdered(false))
		if err != nil {
			return interfaces.RepositoryResult{Error: failed("insert many", collection, err)}
		}
		return interfaces.RepositoryResult{Result: res.InsertedIDs}
	})
}

func (r *Repository) Find(ctx context.Context, collection string, query *interfaces.Query, opts *interfaces.FindOptions) <-chan interfaces.QueryResult {
	return async(func() interfaces.QueryResult {
		filter, err := ToFilter(query)
		if err != nil {
			return &cursorResult{err: err}
		}
		findOptions := options.Find()
		if opts != nil {
			if opts.Limit != nil {
				findOptions.SetLimit(*opts.Limit)
			}
			if opts.Skip != nil {
				findOptions.SetSkip(*opts.Skip)
			}
			if len(opts.Sort) > 0 {
				findOptions.SetSort(toSort(opts.Sort))
			}
		}
		cursor, err := r.database.Collection(collection).Find(ctx, filter, findOptions)
		if err != nil {
			return &cursorResult{err: failed("find", collection, err)}
		}
		return &cursorResult{cursor: cursor, ctx: ctx}
	})
}

func (r *Repository) FindOne(ctx context.Context, collection string, query *interfaces.Query) <-chan interfaces.SingleResult {
	return async(func() interfaces.SingleResult {
		filter, err := ToFilter(query)
		if err != nil {
			return &documentResult{err: err}
		}
		res := r.database.Collection(collection).FindOne(ctx, filter)
		switch err := res.Err(); {
		case errors.Is(err, mongo.ErrNoDocuments):
			return &documentResult{missing: true}
		case err != nil:
			return &documentResult{err: failed("find one", collection, err)}
		}
		return &documentResult{result: res}
	})
}

// Update modifies the first match and reports the matched count.
func (r *Repository) Update(ctx context.Context, collection string, query *interfaces.Query, updates map[string]interface{}) <-chan interfaces.RepositoryResult {
	return r.update(ctx, collection, query, updates, false)
}

// UpdateMany modifies every match and reports the matched count.
func (r *Repository) UpdateMany(ctx context.Context, collection string, query *interfaces.Query, updates map[string]interface{}) <-chan interfaces.RepositoryResult {
	return r.update(ctx, collection, query, updates, true)
}

func (r *Repository) update(ctx context.Context, collection string, query *interfaces.Query, updates map[string]interface{}, many bool) <-chan interfaces.RepositoryResult {
	return async(func() interfaces.RepositoryResult {
		filter, err := ToFilter(query)
		if err != nil {
			return interfaces.RepositoryResult{Error: err}
		}
		coll := r.database.Collection(collection)
		document := toUpdateDocument(updates)
		var res *mongo.UpdateResult
		if many {
			res, err = coll.UpdateMany(ctx, filter, document)
		} else {
			res, err = coll.UpdateOne(ctx, filter, document)
		}
		if err != nil {
			return interfaces.RepositoryResult{Error: failed("update", collection, err)}
		}
		return interfaces.RepositoryResult{Result: res.MatchedCount}
	})
}

// Delete removes every match and reports the deleted count.
func (r *Repository) Delete(ctx context.Context, collection string, query *interfaces.Query) <-chan interfaces.RepositoryResult {
	return async(func() interfaces.RepositoryResult {
		filter, err := ToFilter(query)
		if err != nil {
			return interfaces.RepositoryResult{Error: err}
		}
		res, err := r.database.Collection(collection).DeleteMany(ctx, filter)
		if err != nil {
			return interfaces.RepositoryResult{Error: failed("delete", collection, err)}
		}
		return interfaces.RepositoryResult{Result: res.DeletedCount}
	})
}

func (r *Repository) Count(ctx context.Context, collection string, query *interfaces.Query) <-chan interfaces.CountResult {
	return async(func() interfaces.CountResult {
		filter, err := ToFilter(query)
		if err != nil {
			return interfaces.CountResult{Error: err}
		}
		n, err := r.database.Collection(collection).CountDocuments(ctx, filter)
		if err != nil {
			return interfaces.CountResult{Error: failed("count", collection, err)}
		}
		return interfaces.CountResult{Count: n}
	})
}

// CreateIndex creates single-field ascending indexes.
func (r *Repository) CreateIndex(ctx context.Context, collection string, indexes []interfaces.IndexSpec) <-chan error {
	return async(func() error {
		if len(indexes) == 0 {
			return nil
		}
		models := make([]mongo.IndexModel, 0, len(indexes))
		for _, spec := range indexes {
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: spec.Field, Value: 1}},
				Options: options.Index().SetUnique(spec.Unique),
			})
		}
		_, err := r.database.Collection(collection).Indexes().CreateMany(ctx, models)
		return err
	})
}

func (r *Repository) Ping(ctx context.Context) <-chan error {
	return async(func() error { return r.client.Ping(ctx, nil) })
}

func (r *Repository) Close() error {
	return r.client.Disconnect(context.Background())
}

type cursorResult struct {
	cursor *mongo.Cursor
	ctx    context.Context
	err    error
}

func (r *cursorResult) Next() bool {
	return r.cursor != nil && r.cursor.Next(r.ctx)
}

func (r *cursorResult) Decode(v interface{}) error {
	if r.cursor == nil {
		return errors.New("mongodb: no cursor")
	}
	return r.cursor.Decode(v)
}

func (r *cursorResult) Close() {
	if r.cursor != nil {
		_ = r.cursor.Close(r.ctx)
	}
}

func (r *cursorResult) Error() error {
	if r.err != nil || r.cursor == nil {
		return r.err
	}
	return r.cursor.Err()
}

type documentResult struct {
	result  *mongo.SingleResult
	err     error
	missing bool
}

func (r *documentResult) Decode(v interface{}) error {
	switch {
	case r.missing:
		return interfaces.ErrNoDocuments
	case r.err != nil:
		return r.err
	}
	err := r.result.Decode(v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		r.missing = true
		return interfaces.ErrNoDocuments
	}
	return err
}

func (r *documentResult) Error() error {
	if r.missing {
		return interfaces.ErrNoDocuments
	}
	return r.err
}

func (r *documentResult) NoResult() bool {
	return r.missing
}
