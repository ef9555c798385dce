// Command seed fills a development database with two users sharing a plan and
// prints their access tokens and the WebSocket URLs to try.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"hangout/config"
	"hangout/internal/auth"
	"hangout/internal/database"
	"hangout/internal/models"
	"hangout/internal/repository"

	"github.com/mama165/sdk-go/logs"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logs.GetLoggerFromString(cfg.Log.Level)
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx := context.Background()
	leader, err := findOrCreateUser(ctx, db, "leader")
	if err != nil {
		return err
	}
	guest, err := findOrCreateUser(ctx, db, "guest")
	if err != nil {
		return err
	}
	eventTime := time.Now().Add(48 * time.Hour)
	plan, err := database.CreatePlan(db, "Sunset hike", leader.ID, &eventTime)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	if err := database.AddParticipant(db, plan.ID, guest.ID); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	log.Info("Seeded plan", "plan_id", plan.ID, "leader_id", leader.ID, "guest_id", guest.ID)

	for _, u := range []*models.User{leader, guest} {
		token, err := auth.GenerateAccessToken(&cfg.JWT, u.ID, u.Username)
		if err != nil {
			return fmt.Errorf("token for %s: %w", u.Username, err)
		}
		fmt.Printf("%s (password %q)\n", u.Username, "password")
		fmt.Printf("  chat:          ws://localhost:%s/ws/plan/%d/?token=%s\n", cfg.Server.Port, plan.ID, token)
		fmt.Printf("  notifications: ws://localhost:%s/ws/notifications/?token=%s\n", cfg.Server.Port, token)
	}
	return nil
}

func findOrCreateUser(ctx context.Context, db *gorm.DB, username string) (*models.User, error) {
	u, err := repository.NewUserRepository(db).GetByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load %s: %w", username, err)
	}
	created, err := database.CreateUser(db, username, "password")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", username, err)
	}
	return created, nil
}
