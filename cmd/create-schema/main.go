package main

import (
	"context"
	"flag"
	"log"

	"factorymind-backend/config"
	"factorymind-backend/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	drop := flag.Bool("drop", false, "drop the reports table before creating it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if *drop {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS reports"); err != nil {
			log.Fatalf("Failed to drop table: %v", err)
		}
		log.Println("✓ Dropped existing reports table (if any)")
	}

	if _, err := pool.Exec(ctx, repository.ReportsSchema); err != nil {
		log.Fatalf("Failed to create reports table: %v", err)
	}
	log.Println("✓ reports table ready")

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM reports").Scan(&count); err != nil {
		log.Fatalf("Failed to verify table: %v", err)
	}
	log.Printf("✓ reports table contains %d rows", count)
}
