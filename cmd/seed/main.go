// Command seed applies the schema, inserts the built-in templates and can
// issue an API key for an owner.
//
//	seed [-owner alice]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/janisto/device-profile-api/internal/platform/auth"
	"github.com/janisto/device-profile-api/internal/platform/config"
	applog "github.com/janisto/device-profile-api/internal/platform/logging"
	"github.com/janisto/device-profile-api/internal/platform/postgres"
	templatesvc "github.com/janisto/device-profile-api/internal/service/template"
)

func main() {
	owner := flag.String("owner", "", "issue an API key for this owner id")
	flag.Parse()

	defer func() { _ = applog.Sync() }()

	if err := run(context.Background(), *owner); err != nil {
		applog.LogError(context.Background(), "seed failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, owner string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	n, err := templatesvc.Seed(ctx, templatesvc.NewPostgresStore(pool))
	if err != nil {
		return err
	}
	applog.LogInfo(ctx, "templates seeded", zap.Int("inserted", n))

	if owner == "" {
		return nil
	}
	key, err := auth.NewAPIKeyVerifier(pool, cfg.Auth.APIKeyPepper).Issue(ctx, owner)
	if err != nil {
		return err
	}
	applog.LogInfo(ctx, "api key issued", zap.String("owner_id", owner))
	// The raw key is only shown once; it goes to stdout, not the log.
	fmt.Println(key)
	return nil
}
