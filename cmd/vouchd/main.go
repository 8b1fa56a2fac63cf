package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/glupper/vouch"
	fiberadapter "github.com/glupper/vouch/adapters/fiber"
	pgxadapter "github.com/glupper/vouch/adapters/pgx"
)

func main() {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()

	if err := pgxadapter.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	app := fiber.New()
	app.Use(logger.New())

	if _, err := vouch.New(vouch.Config{
		Database: pgxadapter.New(pool),
		HTTP:     fiberadapter.New(app),
	}); err != nil {
		log.Fatalf("could not create vouch instance: %v", err)
	}

	if err := app.Listen(listenAddr); err != nil {
		log.Fatalf("app.Listen: %v", err)
	}
}
