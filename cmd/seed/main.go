package main

import (
	"log"
	"os"
	"time"

	"datachat-be/internal/entity"
	"datachat-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	seedGlossary(db)
	seedDemoData(db)

	log.Println("✅ Seeding completed")
}

func seedGlossary(db *gorm.DB) {
	log.Println("Seeding Glossary Terms...")

	terms := []entity.GlossaryTerm{
		{Term: "active", Field: "status", Value: "active", Definition: "Projects currently in delivery"},
		{Term: "ongoing", Field: "status", Value: "active", Definition: "Alias for active projects"},
		{Term: "finished", Field: "status", Value: "completed", Definition: "Projects that have been delivered"},
		{Term: "done", Field: "status", Value: "completed", Definition: "Alias for completed projects"},
		{Term: "stalled", Field: "status", Value: "on_hold", Definition: "Projects paused pending a decision"},
		{Term: "cancelled", Field: "status", Value: "cancelled", Definition: "Projects terminated before delivery"},
		{Term: "emea", Field: "region", Value: "EMEA", Definition: "Europe, Middle East and Africa"},
		{Term: "apac", Field: "region", Value: "APAC", Definition: "Asia Pacific"},
		{Term: "americas", Field: "region", Value: "AMER", Definition: "North and South America"},
		{Term: "signed", Field: "status", Value: "signed", Definition: "Contracts that have been executed"},
		{Term: "overdue", Field: "status", Value: "overdue", Definition: "Milestones past their due date"},
	}

	for _, t := range terms {
		var existing entity.GlossaryTerm
		if err := db.Where("term = ?", t.Term).First(&existing).Error; err == nil {
			log.Printf("Glossary term '%s' already exists, skipping...", t.Term)
			continue
		}

		t.Id = uuid.New()
		t.CreatedAt = time.Now()
		if err := db.Create(&t).Error; err != nil {
			log.Printf("Warn: Failed to seed glossary term '%s': %v", t.Term, err)
		}
	}
}

func seedDemoData(db *gorm.DB) {
	var count int64
	db.Model(&entity.Project{}).Count(&count)
	if count > 0 {
		log.Println("Projects already present, skipping demo data...")
		return
	}

	log.Println("Seeding Demo Projects...")

	orgs := []entity.Organisation{
		{Id: uuid.New(), Name: "Northwind Infrastructure", Sector: "construction", Region: "EMEA", CreatedAt: time.Now()},
		{Id: uuid.New(), Name: "Pacific Grid Co", Sector: "energy", Region: "APAC", CreatedAt: time.Now()},
		{Id: uuid.New(), Name: "Andes Transit Group", Sector: "transport", Region: "AMER", CreatedAt: time.Now()},
	}
	for i := range orgs {
		if err := db.Create(&orgs[i]).Error; err != nil {
			log.Fatalf("Error: Failed to seed organisation: %v", err)
		}
	}

	started := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	projects := []entity.Project{
		{Id: uuid.New(), Name: "Harbour Expansion", Status: "active", Region: "EMEA", OrganisationId: orgs[0].Id, Budget: 4_200_000, Attrs: datatypes.JSON([]byte(`{"phase":"construction","risk":"medium"}`)), StartedAt: started, CreatedAt: time.Now()},
		{Id: uuid.New(), Name: "Solar Farm Delta", Status: "active", Region: "APAC", OrganisationId: orgs[1].Id, Budget: 2_750_000, Attrs: datatypes.JSON([]byte(`{"phase":"commissioning","risk":"low"}`)), StartedAt: started.AddDate(0, 1, 0), CreatedAt: time.Now()},
		{Id: uuid.New(), Name: "Metro Line 4", Status: "on_hold", Region: "AMER", OrganisationId: orgs[2].Id, Budget: 9_800_000, Attrs: datatypes.JSON([]byte(`{"phase":"design","risk":"high"}`)), StartedAt: started.AddDate(0, 2, 0), CreatedAt: time.Now()},
		{Id: uuid.New(), Name: "Grid Modernisation", Status: "completed", Region: "APAC", OrganisationId: orgs[1].Id, Budget: 1_300_000, Attrs: datatypes.JSON([]byte(`{"phase":"closed","risk":"low"}`)), StartedAt: started.AddDate(-1, 0, 0), CreatedAt: time.Now()},
	}
	for i := range projects {
		if err := db.Create(&projects[i]).Error; err != nil {
			log.Fatalf("Error: Failed to seed project: %v", err)
		}
	}

	contracts := []entity.Contract{
		{Id: uuid.New(), ProjectId: projects[0].Id, OrganisationId: orgs[0].Id, Status: "signed", Value: 3_900_000, SignedAt: started, CreatedAt: time.Now()},
		{Id: uuid.New(), ProjectId: projects[1].Id, OrganisationId: orgs[1].Id, Status: "signed", Value: 2_500_000, SignedAt: started.AddDate(0, 1, 0), CreatedAt: time.Now()},
		{Id: uuid.New(), ProjectId: projects[2].Id, OrganisationId: orgs[2].Id, Status: "draft", Value: 9_000_000, SignedAt: time.Time{}, CreatedAt: time.Now()},
	}
	for i := range contracts {
		if err := db.Create(&contracts[i]).Error; err != nil {
			log.Fatalf("Error: Failed to seed contract: %v", err)
		}
	}

	milestones := []entity.Milestone{
		{Id: uuid.New(), ProjectId: projects[0].Id, Name: "Pier foundations", Status: "in_progress", DueAt: started.AddDate(0, 6, 0), CreatedAt: time.Now()},
		{Id: uuid.New(), ProjectId: projects[0].Id, Name: "Crane installation", Status: "pending", DueAt: started.AddDate(0, 9, 0), CreatedAt: time.Now()},
		{Id: uuid.New(), ProjectId: projects[1].Id, Name: "Panel array east", Status: "completed", DueAt: started.AddDate(0, 4, 0), CreatedAt: time.Now()},
		{Id: uuid.New(), ProjectId: projects[2].Id, Name: "Environmental review", Status: "overdue", DueAt: started.AddDate(0, 3, 0), CreatedAt: time.Now()},
	}
	for i := range milestones {
		if err := db.Create(&milestones[i]).Error; err != nil {
			log.Fatalf("Error: Failed to seed milestone: %v", err)
		}
	}

	relations := []entity.ProjectRelation{
		{Id: uuid.New(), SourceModel: "projects", SourceId: projects[0].Id, TargetModel: "organisations", TargetId: orgs[0].Id, Field: "organisation_id", Label: "delivered by", CreatedAt: time.Now()},
		{Id: uuid.New(), SourceModel: "projects", SourceId: projects[1].Id, TargetModel: "organisations", TargetId: orgs[1].Id, Field: "organisation_id", Label: "delivered by", CreatedAt: time.Now()},
		{Id: uuid.New(), SourceModel: "projects", SourceId: projects[2].Id, TargetModel: "organisations", TargetId: orgs[2].Id, Field: "organisation_id", Label: "delivered by", CreatedAt: time.Now()},
		{Id: uuid.New(), SourceModel: "contracts", SourceId: contracts[0].Id, TargetModel: "projects", TargetId: projects[0].Id, Field: "project_id", Label: "covers", CreatedAt: time.Now()},
	}
	for i := range relations {
		if err := db.Create(&relations[i]).Error; err != nil {
			log.Fatalf("Error: Failed to seed relation: %v", err)
		}
	}
}
