package main

import (
	"context"
	"log"

	"datachat-be/internal/bootstrap"
	"datachat-be/internal/config"
	"datachat-be/internal/server"
	"datachat-be/internal/tracer"
	"datachat-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Turn Persistence Worker...")
		if err := container.WorkerService.Consume(context.Background()); err != nil {
			log.Printf("Background Worker Error: %v", err)
		}
	}()
	go func() {
		log.Println("Background: Starting Metrics Consumer...")
		if err := container.MetricsService.Consume(context.Background()); err != nil {
			log.Printf("Background Metrics Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
