package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"datachat-be/internal/config"
	"datachat-be/internal/entity"
	"datachat-be/internal/repository/implementation"
	"datachat-be/pkg/database"
	"datachat-be/pkg/embedding"

	"github.com/pgvector/pgvector-go"
)

// Backfills project_embeddings from the projects table. Safe to re-run;
// each project's previous embeddings are replaced.
func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Error: Failed to connect to database: %v", err)
	}

	provider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
		cfg.Ai.GeminiAPIKey,
	)
	if err != nil {
		log.Fatalf("Error: Failed to initialize embedding provider: %v", err)
	}

	embeddings := implementation.NewEmbeddingRepository(db)
	ctx := context.Background()

	var projects []entity.Project
	if err := db.Find(&projects).Error; err != nil {
		log.Fatalf("Error: Failed to load projects: %v", err)
	}
	log.Printf("Embedding %d projects...", len(projects))

	failed := 0
	for _, p := range projects {
		doc := projectDocument(p)

		vec, err := provider.Generate(doc, "RETRIEVAL_DOCUMENT")
		if err != nil {
			log.Printf("Warn: Failed to embed project %s: %v", p.Name, err)
			failed++
			continue
		}

		if err := embeddings.DeleteByProjectId(ctx, p.Id); err != nil {
			log.Printf("Warn: Failed to clear old embeddings for %s: %v", p.Name, err)
		}

		row := &entity.ProjectEmbedding{
			Document:       doc,
			EmbeddingValue: pgvector.NewVector(vec.Values),
			ProjectId:      p.Id,
			ChunkIndex:     0,
		}
		if err := embeddings.CreateBulk(ctx, []*entity.ProjectEmbedding{row}); err != nil {
			log.Printf("Warn: Failed to store embedding for %s: %v", p.Name, err)
			failed++
		}
	}

	if failed > 0 {
		log.Printf("Completed with %d failures", failed)
		os.Exit(1)
	}
	log.Println("✅ Embedding backfill completed")
}

func projectDocument(p entity.Project) string {
	doc := fmt.Sprintf("%s. Status: %s. Region: %s. Budget: %.0f.", p.Name, p.Status, p.Region, p.Budget)
	if len(p.Attrs) > 0 {
		doc += " Attributes: " + string(p.Attrs)
	}
	return doc
}
