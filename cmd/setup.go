package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetodo/internal/shared"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if err := r.openStore(); err != nil {
		return err
	}

	applied, err := shared.AppliedMigrations(r.db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready (%d migrations applied)\n", len(applied))
}

// SetupConfig writes the embedded example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	return r.writePlain("Set credentials.youtube.api_key or run 'tubetodo settings set-key <key>' to use the Data API.\n")
}
