//go:build ignore

// seed_data.go seeds the charges table with local-dev fixture data.
// Run with: go run scripts/seed_data.go
package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/kubo-market/pix-charge-platform/internal/seed"
)

func main() {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "postgres://postgres@localhost:5432/pix_charges?sslmode=disable"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}

	log.Println("connected, seeding charges...")

	db.Exec("TRUNCATE charges CASCADE")

	if _, err := db.Exec(seed.GenerateSQL()); err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Println("seed data loaded successfully")
}
