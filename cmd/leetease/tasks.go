package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leetease/catalog-engine/internal/config"
	"github.com/leetease/catalog-engine/internal/importer"
	"github.com/leetease/catalog-engine/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Storage.Driver != config.DriverPostgres {
			return fmt.Errorf("migrate requires the %s driver", config.DriverPostgres)
		}

		ctx, cancel := signalContext()
		defer cancel()

		applied, err := storage.MigrateFromDSN(ctx, cfg.Database.DSN, cfg.Database.MigrationsDir)
		if err != nil {
			return err
		}
		slog.Info("migrations complete", "applied", applied)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file|dir>",
	Short: "Import a CSV/XLSX file or a dataset directory of company folders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}

			var res *importer.Result
			if info.IsDir() {
				res, err = a.services.Importer.LoadDir(ctx, path)
			} else {
				res, err = importFile(ctx, a.services.Importer, path)
			}
			if err != nil {
				return err
			}

			slog.Info("import complete", "path", path, "imported", res.Imported, "skipped", res.Skipped)
			return nil
		})
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill-tags",
	Short: "Fetch topic tags from the external judge",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			_, err := a.services.Catalog.BackfillTags(ctx, !all)
			return err
		})
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Reconcile every user with stored judge credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			summary, err := a.scheduler.SyncAll(ctx)
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				slog.Warn("some users failed to sync", "failed", summary.Failed, "users", summary.Users)
			}
			return nil
		})
	},
}

func init() {
	backfillCmd.Flags().Bool("all", false, "Refresh tags of questions that already have some")
}

func importFile(ctx context.Context, im *importer.Importer, path string) (*importer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return im.ImportFile(ctx, filepath.Base(path), f)
}

// withApp wires the services, runs fn, and releases everything afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
