// cmd/seeder/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ammerola/warehouse-crm/internal/adapters/db"
	"github.com/ammerola/warehouse-crm/internal/adapters/spreadsheet"
	"github.com/ammerola/warehouse-crm/internal/bootstrap"
	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
	"github.com/ammerola/warehouse-crm/internal/pkg/config"
	"github.com/ammerola/warehouse-crm/internal/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type seedOptions struct {
	count int
	seed  uint64
	file  string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "seeder",
		Short:        "Populate and migrate the warehouse catalog",
		SilenceUsage: true,
	}
	root.AddCommand(newSeedCmd(), newMigrateCmd())
	return root
}

func newSeedCmd() *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert generated or spreadsheet catalog records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			inputs := generateInputs(opts.count, opts.seed)
			if opts.file != "" {
				if inputs, err = readWorkbook(opts.file, log); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			backend, err := bootstrap.OpenCatalogStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer backend.Close(ctx)

			service := bootstrap.NewCatalogService(cfg, backend.Store, nil, log)
			return seed(ctx, service, inputs, log)
		},
	}
	cmd.Flags().IntVarP(&opts.count, "count", "n", 50, "number of generated records")
	cmd.Flags().Uint64Var(&opts.seed, "seed", uint64(time.Now().UnixNano()), "random seed for generated records")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "seed from an .xlsx catalog instead of generating")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL catalog schema",
	}

	withMigrator := func(fn func(ctx context.Context, m *db.Migrator, log *slog.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := db.NewMigrator(bootstrap.MigrationConfig(cfg), log)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(cmd.Context(), m, log)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withMigrator(func(ctx context.Context, m *db.Migrator, _ *slog.Logger) error {
				return m.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: withMigrator(func(ctx context.Context, m *db.Migrator, _ *slog.Logger) error {
				return m.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: withMigrator(func(ctx context.Context, m *db.Migrator, log *slog.Logger) error {
				version, dirty, err := m.Version(ctx)
				if err != nil {
					return err
				}
				log.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
				return nil
			}),
		},
	)
	return cmd
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	log := logger.SetupLogger("info", "text").Logger
	cfg, err := config.Load(log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat).Logger, nil
}

func readWorkbook(path string, log *slog.Logger) ([]domain.CatalogInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	rows, rowErrs, err := spreadsheet.ReadCatalog(data)
	if err != nil {
		return nil, err
	}
	for _, re := range rowErrs {
		log.Warn("skipping row", slog.Int("row", re.Row), slog.String("error", re.Message))
	}

	inputs := make([]domain.CatalogInput, 0, len(rows))
	for _, row := range rows {
		inputs = append(inputs, row.Input)
	}
	return inputs, nil
}

// seed creates every input, skipping SKUs that already exist
func seed(ctx context.Context, service ports.CatalogService, inputs []domain.CatalogInput, log *slog.Logger) error {
	var created, skipped int
	for _, in := range inputs {
		_, err := service.Create(ctx, in)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrDuplicateKey):
			skipped++
		default:
			return fmt.Errorf("failed to create %s: %w", in.SKU, err)
		}
	}

	log.Info("catalog seeded",
		slog.Int("created", created),
		slog.Int("skipped_duplicates", skipped))
	return nil
}
