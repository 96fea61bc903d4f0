// Package repomanager opens a storage backend from a DSN and vends the
// repositories bound to it.
package repomanager

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/repositories/reviews"
	"github.com/dmitrijs2005/tours/internal/server/repositories/tours"
	"github.com/dmitrijs2005/tours/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users() users.Repository
	Tours() tours.Repository
	Reviews() reviews.Repository
	// RunMigrations brings the schema (or indexes) up to date.
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open picks the backend by DSN scheme: postgres, mongodb or memory.
func Open(ctx context.Context, dsn string) (RepositoryManager, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: bad database url: %v", common.ErrorValidation, err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		m, err := NewPostgresRepositoryManager(dsn)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "mongodb", "mongodb+srv":
		m, err := NewMongoRepositoryManager(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "memory":
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported database scheme %q", common.ErrorValidation, u.Scheme)
	}
}
