// Command darkroom-admin is an operator CLI for database and account chores
// that should not run inside the API process.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/glasskite/darkroom/config"
	"github.com/glasskite/darkroom/internal/bootstrap"
	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/devseed"
	"github.com/glasskite/darkroom/internal/domain/model"
	"github.com/glasskite/darkroom/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const commandTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger(false)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Apply pending database migrations",
			run:         runMigrate,
		},
		"seed": {
			name:        "seed",
			description: "Seed development users and API keys",
			run:         runSeed,
		},
		"issue-key": {
			name:        "issue-key",
			description: "Issue a new API key for an existing user",
			run:         runIssueKey,
		},
		"sweep-idempotency": {
			name:        "sweep-idempotency",
			description: "Delete expired idempotency records",
			run:         runSweep,
		},
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: darkroom-admin <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands() {
		fmt.Fprintf(os.Stderr, "  %-18s %s\n", c.name, c.description)
	}
}

func runMigrate(c *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(c.Ctx, commandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(c.Config.Postgres, c.Logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return bootstrap.RunMigrations(ctx, db, c.Logger)
}

func runSeed(c *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(c.Ctx, commandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(c.Config.Postgres, c.Logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return devseed.Run(ctx, db, c.Logger)
}

func runIssueKey(c *commandContext, args []string) error {
	fs := flag.NewFlagSet("issue-key", flag.ContinueOnError)
	userID := fs.String("user", "", "user id to issue the key for")
	name := fs.String("name", "admin issued key", "human-readable key name")
	secret := fs.String("webhook-secret", "", "webhook signing secret (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("issue-key: -user is required")
	}

	ctx, cancel := context.WithTimeout(c.Ctx, commandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(c.Config.Postgres, c.Logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err = data.NewUserRepo(db).GetByID(ctx, *userID); err != nil {
		return fmt.Errorf("issue-key: %w", err)
	}

	plaintext, hash, err := service.GenerateAPIKey()
	if err != nil {
		return err
	}
	webhookSecret := *secret
	if webhookSecret == "" {
		buf := make([]byte, 32)
		if _, randErr := rand.Read(buf); randErr != nil {
			return fmt.Errorf("generate webhook secret: %w", randErr)
		}
		webhookSecret = "whsec_" + hex.EncodeToString(buf)
	}

	key := &model.APIKey{
		UserID:        *userID,
		KeyHash:       hash,
		Name:          *name,
		WebhookSecret: webhookSecret,
		Active:        true,
	}
	if err = data.NewAPIKeyRepo(db).Create(ctx, key); err != nil {
		return err
	}

	// Plaintext is shown once at issuance; it is not recoverable later.
	fmt.Printf("api key:        %s\n", plaintext)
	fmt.Printf("webhook secret: %s\n", webhookSecret)
	fmt.Printf("key id:         %s\n", key.ID)
	return nil
}

func runSweep(c *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(c.Ctx, commandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(c.Config.Postgres, c.Logger)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := data.NewIdempotencyRepo(db, &data.RealTimeProvider{})
	n, err := repo.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	c.Logger.InfoContext(ctx, "idempotency sweep finished", "removed", n)
	return nil
}
