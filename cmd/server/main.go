package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/config"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/database"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/router"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)
	r := router.New(cfg, queries, pool)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
