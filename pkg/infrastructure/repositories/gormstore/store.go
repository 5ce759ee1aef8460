package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
)

// Store is a repositories.Store backed by SQLite through GORM.
//
// The pool holds a single connection, so units of work are serialized by
// SQLite itself and reads outside a unit of work never observe a partial one.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)

// Open opens (creating when needed) the SQLite database at path and migrates the schema
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(allModels()...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	log.Debug().Str("path", path).Msg("sqlite store opened")
	return &Store{db: db, logger: log}, nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Repositories returns views over committed state
func (s *Store) Repositories() repositories.Repositories {
	return newRepositories(s.db)
}

// Atomically runs fn inside one database transaction
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newRepositories(tx))
	})
}

func newRepositories(db *gorm.DB) repositories.Repositories {
	r := &repo{db: db}
	return repositories.Repositories{
		Catalog:       r,
		Ledger:        r,
		Applications:  r,
		Compatibility: r,
	}
}

// repo implements every repository interface over one *gorm.DB, which is
// either the pool or an open transaction.
type repo struct {
	db *gorm.DB
}

func (r *repo) with(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func notFound(err error, kind, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.NewNotFoundError(kind, key)
	}
	return err
}
