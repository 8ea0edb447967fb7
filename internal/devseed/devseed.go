// Package devseed populates a development database with sample users and API
// keys so the API is usable immediately after a reset.
package devseed

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/domain/model"
	"github.com/glasskite/darkroom/internal/service"
)

type seedUser struct {
	Name    string
	Email   string
	Plan    model.Plan
	Credits int
}

var seedUsers = []seedUser{
	{Name: "Dev Basic", Email: "basic@darkroom.dev", Plan: model.PlanBasic, Credits: 10},
	{Name: "Dev Pro", Email: "pro@darkroom.dev", Plan: model.PlanPro, Credits: 100},
}

// Run seeds development users and issues one API key each. The plaintext keys
// are logged exactly once; only hashes are stored.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	users := data.NewUserRepo(db)
	keys := data.NewAPIKeyRepo(db)

	for _, s := range seedUsers {
		if exists, err := userExists(ctx, db, s.Email); err != nil {
			return err
		} else if exists {
			logger.InfoContext(ctx, "seed user already present, skipping", "email", s.Email)
			continue
		}

		u := &model.User{Name: s.Name, Email: s.Email, Plan: s.Plan, Credits: s.Credits}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", s.Email, err)
		}

		plaintext, hash, err := service.GenerateAPIKey()
		if err != nil {
			return err
		}
		secret, err := generateWebhookSecret()
		if err != nil {
			return err
		}
		key := &model.APIKey{
			UserID:        u.ID,
			KeyHash:       hash,
			Name:          "dev seed key",
			WebhookSecret: secret,
			Active:        true,
		}
		if err := keys.Create(ctx, key); err != nil {
			return fmt.Errorf("seed api key for %s: %w", s.Email, err)
		}

		// Plaintext is shown once at issuance; it is not recoverable later.
		logger.InfoContext(ctx, "seeded user",
			"email", s.Email,
			"plan", s.Plan,
			"credits", s.Credits,
			"api_key", plaintext,
			"webhook_secret", secret)
	}
	return nil
}

func userExists(ctx context.Context, db *sql.DB, email string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`,
		email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check seed user %s: %w", email, err)
	}
	return exists, nil
}

func generateWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}
