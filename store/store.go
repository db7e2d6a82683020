// Package store provides the persistence backends behind todo.Store: a
// JSON file guarded by a cross-process file lock, SQLite and MongoDB.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/arthur-debert/nanotodo/todo"
)

// Supported backend drivers
const (
	DriverJSON    = "json"
	DriverSQLite  = "sqlite"
	DriverMongoDB = "mongodb"
)

// Drivers lists the supported drivers
var Drivers = []string{DriverJSON, DriverSQLite, DriverMongoDB}

// Config selects and locates a backend
type Config struct {
	Driver string // json, sqlite or mongodb
	Path   string // data file for json and sqlite
	URI    string // connection string for mongodb
}

// Open creates the backend described by cfg
func Open(ctx context.Context, cfg Config, opts ...Option) (todo.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverJSON:
		if cfg.Path == "" {
			return nil, fmt.Errorf("json store: path is required")
		}
		return NewJSONFile(cfg.Path, opts...)
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite store: path is required")
		}
		return NewSQLite(ctx, cfg.Path, opts...)
	case DriverMongoDB, "mongo":
		if cfg.URI == "" {
			return nil, fmt.Errorf("mongodb store: uri is required")
		}
		return NewMongo(ctx, cfg.URI, opts...)
	}
	return nil, fmt.Errorf("unknown store driver %q (want one of %s)", cfg.Driver, strings.Join(Drivers, ", "))
}
