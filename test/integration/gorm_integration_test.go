package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"datachat-be/internal/repository/implementation"
	"datachat-be/pkg/database"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	ctx := context.Background()

	t.Run("Check Dataset Repository", func(t *testing.T) {
		datasets := implementation.NewDatasetRepository(gormDB)

		models := datasets.Models()
		assert.Contains(t, models, "projects")
		assert.Contains(t, models, "organisations")

		records, err := datasets.FindRecords(ctx, "projects", nil, nil, 5)
		assert.NoError(t, err)
		t.Logf("Project records: %d", len(records))
	})

	t.Run("Check Regions Synthesized Model", func(t *testing.T) {
		datasets := implementation.NewDatasetRepository(gormDB)

		records, err := datasets.FindRecords(ctx, "regions", nil, nil, 10)
		assert.NoError(t, err)
		t.Logf("Region buckets: %d", len(records))
	})

	t.Run("Check Glossary Repository", func(t *testing.T) {
		glossary := implementation.NewGlossaryRepository(gormDB)

		notes, err := glossary.Lookup(ctx, []string{"active", "emea"})
		assert.NoError(t, err)
		t.Logf("Glossary notes: %d", len(notes))

		// Unknown terms are not an error, just a non-hit
		_, _, ok, err := glossary.ResolveTerm(ctx, "definitely-not-a-term")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Check Relation Repository", func(t *testing.T) {
		relations := implementation.NewRelationRepository(gormDB)

		hits, err := relations.Traverse(ctx, "projects", nil, 10)
		assert.NoError(t, err)
		t.Logf("Relation edges: %d", len(hits))
	})

	t.Run("Check Turn Repository", func(t *testing.T) {
		turns := implementation.NewTurnRepository(gormDB)

		count, err := turns.Count(ctx)
		assert.NoError(t, err)
		t.Logf("Persisted turns: %d", count)
	})
}
