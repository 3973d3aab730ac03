package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sudo-init-do/carhub/internal/config"
	"github.com/sudo-init-do/carhub/internal/db"
	"github.com/sudo-init-do/carhub/internal/store"
	"github.com/sudo-init-do/carhub/internal/user"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote to admin")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/promote_admin -email user@example.com")
	}

	// Initialize DB from environment variables; schema is created if missing
	cfg := config.Load()
	db.Init(cfg.DatabaseURL)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u, err := user.NewService(store.NewPostgres(db.Conn), nil).PromoteAdmin(ctx, *email)
	if err != nil {
		log.Fatalf("failed to promote user to admin: %v", err)
	}

	fmt.Printf("User %s (%s) promoted to admin.\n", u.Username, u.Email)
}
