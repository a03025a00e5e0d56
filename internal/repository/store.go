package repository

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/timmy/cropguard/internal/config"
	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/logger"
)

// Store is the persistence store for predictions, feedback and contact messages.
// All inserts go through a single mutex so id assignment stays monotonic on
// engines without row-level write concurrency.
type Store struct {
	db      *gorm.DB
	schema  domain.SchemaVersion
	writeMu sync.Mutex
}

// Open connects to the configured database and prepares its schema.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	db, err := InitDB(cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(ctx, db, cfg.AutoMigrate)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return store, nil
}

// NewStore reads the schema version of db once and, when autoMigrate is set,
// creates missing tables and upgrades legacy data to the current shape.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - db: GORM database handle.
//   - autoMigrate: allow schema changes.
// Returns:
//   - *Store: store bound to the detected schema version.
//   - error: non-nil if detection or migration fails, or the store has no
//     schema and autoMigrate is off.
func NewStore(ctx context.Context, db *gorm.DB, autoMigrate bool) (*Store, error) {
	ctxDB := db.WithContext(ctx)

	version, err := detectSchema(ctxDB)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).WithField(logger.FieldComponent, "store")

	switch {
	case autoMigrate:
		if err := migrate(ctxDB, version); err != nil {
			return nil, err
		}
		switch version {
		case schemaNone:
			log.Infof("Schema v%d created", domain.CurrentSchema)
		case domain.CurrentSchema:
		default:
			log.Infof("Schema upgraded from v%d to v%d", version, domain.CurrentSchema)
		}
		version = domain.CurrentSchema
	case version == schemaNone:
		return nil, fmt.Errorf("database has no schema and auto_migrate is disabled")
	case !version.HasModelKind():
		log.Warnf("Schema v%d without auto_migrate: all predictions read as %s", version, domain.LegacyModelKind)
	}

	log.WithField("schema_version", int(version)).Info("Store ready")
	return &Store{db: db, schema: version}, nil
}

// SchemaVersion returns the record shape the store operates in.
func (s *Store) SchemaVersion() domain.SchemaVersion {
	return s.schema
}

// DB exposes the underlying handle for tests and administrative tooling.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// insert runs fn under the store-wide write lock.
func (s *Store) insert(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn(s.db.WithContext(ctx))
}
