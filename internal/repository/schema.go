package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/cropguard/internal/domain"
)

// schemaNone marks a database with no predictions table yet.
const schemaNone domain.SchemaVersion = 0

const schemaMetaID = 1

// detectSchema returns the recorded schema version. Stores without a marker
// are classified once from the shape of the predictions table.
func detectSchema(db *gorm.DB) (domain.SchemaVersion, error) {
	m := db.Migrator()

	if m.HasTable(&domain.SchemaMeta{}) {
		var meta domain.SchemaMeta
		err := db.First(&meta, schemaMetaID).Error
		switch {
		case err == nil:
			if meta.Version < domain.SchemaV1 || meta.Version > domain.CurrentSchema {
				return 0, fmt.Errorf("unsupported schema version %d", meta.Version)
			}
			return meta.Version, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return 0, fmt.Errorf("failed to read schema version: %w", err)
		}
	}

	if !m.HasTable(&domain.Prediction{}) {
		return schemaNone, nil
	}
	if m.HasColumn(&domain.Prediction{}, "model_type") {
		return domain.SchemaV2, nil
	}
	return domain.SchemaV1, nil
}

// migrate brings the store to the current schema. Existing tables are never
// rebuilt: missing tables are created and v1 predictions gain model_type.
func migrate(db *gorm.DB, from domain.SchemaVersion) error {
	return db.Transaction(func(tx *gorm.DB) error {
		m := tx.Migrator()

		if from == domain.SchemaV1 {
			if err := m.AddColumn(&domain.Prediction{}, "ModelType"); err != nil {
				return fmt.Errorf("failed to add model_type column: %w", err)
			}
			if err := tx.Model(&domain.Prediction{}).
				Where("model_type IS NULL OR model_type = ''").
				Update("model_type", domain.LegacyModelKind).Error; err != nil {
				return fmt.Errorf("failed to backfill model_type: %w", err)
			}
		}

		for _, model := range []any{
			&domain.Prediction{},
			&domain.Feedback{},
			&domain.ContactMessage{},
			&domain.SchemaMeta{},
		} {
			if m.HasTable(model) {
				continue
			}
			if err := m.CreateTable(model); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
		}

		for _, idx := range []string{"idx_predictions_timestamp", "idx_predictions_model_type"} {
			if m.HasIndex(&domain.Prediction{}, idx) {
				continue
			}
			if err := m.CreateIndex(&domain.Prediction{}, idx); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx, err)
			}
		}

		meta := domain.SchemaMeta{ID: schemaMetaID, Version: domain.CurrentSchema}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "updated_at"}),
		}).Create(&meta).Error
	})
}
