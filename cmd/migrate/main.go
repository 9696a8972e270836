package main

import (
	"fmt"
	"os"

	"github.com/Rrens/ddoksori/internal/config"
	"github.com/Rrens/ddoksori/internal/repository/postgres"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Migrating kv_store at %s:%d/%s...\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	if err := postgres.RunMigrations(cfg.Database.DSN()); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("kv_store schema is up to date")
}
