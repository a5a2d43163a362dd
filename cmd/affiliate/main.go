package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/neturelabs/affiliate/internal/catalog"
	"github.com/neturelabs/affiliate/internal/click"
	"github.com/neturelabs/affiliate/internal/clock"
	"github.com/neturelabs/affiliate/internal/commission"
	"github.com/neturelabs/affiliate/internal/config"
	"github.com/neturelabs/affiliate/internal/conversion"
	"github.com/neturelabs/affiliate/internal/metrics"
	"github.com/neturelabs/affiliate/internal/migration"
	"github.com/neturelabs/affiliate/internal/observability"
	"github.com/neturelabs/affiliate/internal/partner"
	"github.com/neturelabs/affiliate/internal/pipeline"
	"github.com/neturelabs/affiliate/internal/policy"
	"github.com/neturelabs/affiliate/internal/redis"
	"github.com/neturelabs/affiliate/internal/seed"
	"github.com/neturelabs/affiliate/internal/server"
	"github.com/neturelabs/affiliate/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "affiliate",
		Short: "Affiliate attribution and commission pipeline",
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracking and commission API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	return app.Stop(context.Background())
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		metrics.Module,

		partner.Module,
		catalog.Module,
		click.Module,
		conversion.Module,
		policy.Module,
		commission.Module,
		pipeline.Module,
		seed.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
