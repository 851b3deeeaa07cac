// Command migrate applies the embedded schema migrations and exits.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mindcare-tw/mindcare-backend/internal/migrations"
)

func main() {
	dsn := flag.String("database", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall migration timeout")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *dsn == "" {
		logger.Fatal("Missing database URL. Set DATABASE_URL or pass -database")
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	if err := migrations.Apply(ctx, migrations.FromSQL(db), logger); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Migrations applied")
}
