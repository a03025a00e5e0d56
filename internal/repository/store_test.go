package repository

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/timmy/cropguard/internal/config"
	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "test.sqlite"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), openTestDB(t), true)
	require.NoError(t, err)
	return store
}

// createLegacyTables builds the v1 layout: predictions without model_type.
func createLegacyTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE predictions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			predicted_class TEXT,
			confidence REAL,
			class_index INTEGER,
			filename TEXT,
			user_ip TEXT
		)`,
		`CREATE TABLE feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prediction_id INTEGER,
			rating INTEGER CHECK(rating >= 1 AND rating <= 5),
			is_correct BOOLEAN,
			comment TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (prediction_id) REFERENCES predictions (id)
		)`,
		`INSERT INTO predictions (timestamp, predicted_class, confidence, class_index, filename, user_ip)
			VALUES ('2024-01-01 10:00:00', 'Potato___Late_blight', 0.8, 3, 'a.png', '10.0.0.1')`,
		`INSERT INTO predictions (timestamp, predicted_class, confidence, class_index, filename, user_ip)
			VALUES ('2024-01-02 10:00:00', 'Tomato_healthy', 0.6, 9, 'b.png', '10.0.0.2')`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
}

func TestNewStoreFresh(t *testing.T) {
	db := openTestDB(t)

	_, err := NewStore(context.Background(), db, false)
	assert.Error(t, err, "empty database without auto_migrate")

	store, err := NewStore(context.Background(), db, true)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrentSchema, store.SchemaVersion())

	var meta domain.SchemaMeta
	require.NoError(t, db.First(&meta, schemaMetaID).Error)
	assert.Equal(t, domain.CurrentSchema, meta.Version)

	// reopening is idempotent and reads the marker
	again, err := NewStore(context.Background(), db, false)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrentSchema, again.SchemaVersion())
}

func TestSchemaInitLogLine(t *testing.T) {
	testCases := []struct {
		name    string
		legacy  bool
		want    string
		notWant string
	}{
		{name: "fresh database", want: "Schema v2 created", notWant: "upgraded"},
		{name: "legacy database", legacy: true, want: "Schema upgraded from v1 to v2", notWant: "created"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := openTestDB(t)
			if tc.legacy {
				createLegacyTables(t, db)
			}

			var buf bytes.Buffer
			ctx := logger.New(&logger.Config{Level: "info", Format: "text", Output: &buf}).WithContext(context.Background())

			_, err := NewStore(ctx, db, true)
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tc.want)
			assert.NotContains(t, buf.String(), tc.notWant)
		})
	}
}

func TestLegacyStoreReadMode(t *testing.T) {
	db := openTestDB(t)
	createLegacyTables(t, db)

	store, err := NewStore(context.Background(), db, false)
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaV1, store.SchemaVersion())

	ctx := context.Background()
	preds := NewPredictionRepository(store)

	p := &domain.Prediction{ModelType: domain.ModelKindFruit, PredictedClass: "Apple_Scab", Confidence: 0.7, ClassIndex: 2, UserIP: "10.0.0.3"}
	require.NoError(t, preds.Create(ctx, p))
	assert.NotZero(t, p.ID)

	got, err := preds.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModelKindLeaf, got.ModelType)

	all, err := preds.History(ctx, domain.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, e := range all {
		assert.Equal(t, domain.ModelKindLeaf, e.ModelType)
	}

	leaf, err := preds.History(ctx, domain.HistoryQuery{ModelType: domain.ModelKindLeaf})
	require.NoError(t, err)
	assert.Len(t, leaf, 3)

	fruit, err := preds.History(ctx, domain.HistoryQuery{ModelType: domain.ModelKindFruit})
	require.NoError(t, err)
	assert.Empty(t, fruit)
}

func TestLegacyStoreUpgrade(t *testing.T) {
	db := openTestDB(t)
	createLegacyTables(t, db)

	store, err := NewStore(context.Background(), db, true)
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaV2, store.SchemaVersion())
	assert.True(t, db.Migrator().HasColumn(&domain.Prediction{}, "model_type"))
	assert.True(t, db.Migrator().HasTable(&domain.ContactMessage{}))

	var kinds []string
	require.NoError(t, db.Model(&domain.Prediction{}).Pluck("model_type", &kinds).Error)
	assert.Equal(t, []string{"leaf", "leaf"}, kinds)

	ctx := context.Background()
	preds := NewPredictionRepository(store)
	require.NoError(t, preds.Create(ctx, &domain.Prediction{ModelType: domain.ModelKindFruit, PredictedClass: "MANGO", Confidence: 0.9}))

	fruit, err := preds.History(ctx, domain.HistoryQuery{ModelType: domain.ModelKindFruit})
	require.NoError(t, err)
	require.Len(t, fruit, 1)
	assert.Equal(t, "MANGO", fruit[0].PredictedClass)

	// the marker now pins v2 even without auto_migrate
	reopened, err := NewStore(context.Background(), db, false)
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaV2, reopened.SchemaVersion())
}

func TestConcurrentInsertsGetDistinctIDs(t *testing.T) {
	store := newTestStore(t)
	preds := NewPredictionRepository(store)

	const n = 20
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &domain.Prediction{ModelType: domain.ModelKindLeaf, PredictedClass: "Tomato_healthy", Confidence: 0.5}
			if assert.NoError(t, preds.Create(context.Background(), p)) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, id := range ids {
		assert.NotZero(t, id)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}

func TestPredictionTimestampAssigned(t *testing.T) {
	store := newTestStore(t)
	preds := NewPredictionRepository(store)

	before := time.Now().UTC().Add(-time.Second)
	p := &domain.Prediction{ModelType: domain.ModelKindFruit, PredictedClass: "APPLE", Confidence: 0.99}
	require.NoError(t, preds.Create(context.Background(), p))
	assert.True(t, p.Timestamp.After(before))
}
