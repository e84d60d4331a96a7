// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package factory

import (
	"context"
	"fmt"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/database/memory"
	"github.com/carbonledger/api/internal/database/mongodb"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
)

// MongoOptions maps the MongoDB section of the platform config onto driver options.
func MongoOptions(cfg platformconfig.MongoDBConfig) mongodb.Options {
	return mongodb.Options{
		URI:            cfg.URI,
		Host:           cfg.Host,
		Port:           cfg.Port,
		Username:       cfg.Username,
		Password:       cfg.Password,
		AuthDatabase:   cfg.AuthDatabase,
		Database:       cfg.Database,
		MaxPoolSize:    cfg.MaxPoolSize,
		ConnectTimeout: cfg.ConnectTimeout,
		SocketTimeout:  cfg.SocketTimeout,
	}
}

// NewRepository opens the backend selected by cfg.Type.
func NewRepository(ctx context.Context, cfg platformconfig.DatabaseConfig) (interfaces.Repository, error) {
	switch cfg.Type {
	case interfaces.DatabaseTypeMemory:
		return memory.NewRepository(), nil
	case interfaces.DatabaseTypeMongoDB:
		repo, err := mongodb.Connect(ctx, MongoOptions(cfg.MongoDB))
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "":
		return nil, fmt.Errorf("database type is required")
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
