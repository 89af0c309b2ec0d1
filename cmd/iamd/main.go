package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/animalia-app/iam-service/migrate"
	"github.com/animalia-app/iam-service/seed"
	"github.com/animalia-app/iam-service/server"
)

func main() {
	if err := migrate.RunFromEnv(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := seed.RunFromEnv(); err != nil {
		log.Fatalf("seed: %v", err)
	}

	cfg := server.GetConfig()
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("server: %v", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go srv.Sweeper.Run(ctx)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":9096"
	}
	engine := server.NewGinEngine(srv)
	log.Printf("iam service listening on %s (env=%s)", addr, cfg.Env)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("http: %v", err)
	}
}
