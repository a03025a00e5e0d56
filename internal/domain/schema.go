package domain

import "time"

// SchemaVersion enumerates the historical shapes of the predictions table.
type SchemaVersion int

const (
	// SchemaV1 predictions rows have no model_type column.
	SchemaV1 SchemaVersion = 1
	// SchemaV2 adds model_type.
	SchemaV2 SchemaVersion = 2

	CurrentSchema = SchemaV2
)

// HasModelKind reports whether rows of this shape carry a model kind.
func (v SchemaVersion) HasModelKind() bool {
	return v >= SchemaV2
}

// SchemaMeta is the single-row marker recording the store's schema version.
type SchemaMeta struct {
	ID        int           `gorm:"primaryKey"`
	Version   SchemaVersion `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName returns the database table name for SchemaMeta.
func (SchemaMeta) TableName() string {
	return "schema_meta"
}
