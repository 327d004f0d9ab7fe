package main

import (
	"context"
	"flag"
	"log"
	"time"

	"mediserve/pkg/config"
	"mediserve/pkg/database/postgresql"
	"mediserve/seeders"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply migrations before seeding")
	flag.Parse()

	cfg := config.New()
	log.Println("seeding database:", cfg.Postgres.DSN)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgresql.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if *migrate {
		if err := postgresql.Migrate(pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}

	if err := seeders.SeedDemoData(ctx, pool); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("seeding complete")
}
