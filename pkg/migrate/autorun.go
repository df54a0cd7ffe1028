package migrate

import (
	"context"
	"fmt"

	"github.com/yardtrackpro/yardtrack-backend/pkg/config"
	"github.com/yardtrackpro/yardtrack-backend/pkg/db"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// auto-migrate is enabled. It forces the lazy database connection open.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, provider db.Provider) error {
	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}

	client, err := provider.Conn(ctx)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "source": "embedded"}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "migrate.autorun.start")

	if err := Run(ctx, sqlDB, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "migrate.autorun.complete")
	return nil
}
