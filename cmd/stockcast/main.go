// cmd/stockcast/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/brazaops/stockcast/internal/cache"
	"github.com/brazaops/stockcast/internal/config"
	"github.com/brazaops/stockcast/internal/ingest"
	"github.com/brazaops/stockcast/internal/pipeline"
	"github.com/brazaops/stockcast/internal/repository/postgres"
	"github.com/brazaops/stockcast/internal/service"
	"github.com/brazaops/stockcast/internal/storage"
	"github.com/brazaops/stockcast/pkg/logger"
)

// app bundles the dependencies each command needs.
type app struct {
	cfg     *config.Config
	db      *postgres.DB
	service *service.ForecastService
}

func buildApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	repo := postgres.NewForecastRepository(db)
	runner := pipeline.NewRunner(repo,
		pipeline.WithWorkers(cfg.App.WorkerCount),
		pipeline.WithHorizon(cfg.App.HorizonDays),
	)
	forecastCache := cache.NewRedisCache(ctx, &cfg.Cache)
	archiver, err := storage.NewArchiver(ctx, &cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive storage: %w", err)
	}

	return &app{
		cfg:     cfg,
		db:      db,
		service: service.NewForecastService(repo, runner, forecastCache, archiver),
	}, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func runMigrate(c *cli.Context) error {
	a, err := buildApp(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	// buildApp already migrates; this command exists so operators can
	// bootstrap the schema without running any pipeline step.
	fmt.Println("schema up to date")
	return nil
}

func runIngestSales(c *cli.Context) error {
	a, err := buildApp(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	root := filepath.Join(a.cfg.App.InputDir, a.cfg.App.SalesDir)
	loader := ingest.NewSalesLoader(root, a.cfg.App.Accounts)

	summary, err := a.service.IngestSales(c.Context, loader)
	if err != nil {
		return err
	}
	fmt.Println(summary.String())
	return nil
}

func runIngestStock(c *cli.Context) error {
	a, err := buildApp(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	root := filepath.Join(a.cfg.App.InputDir, a.cfg.App.StockDir)
	loader := ingest.NewStockLoader(root, a.cfg.App.Accounts)

	summary, err := a.service.IngestStock(c.Context, loader)
	if err != nil {
		return err
	}
	fmt.Println(summary.String())
	return nil
}

func runForecast(c *cli.Context) error {
	a, err := buildApp(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	if skuCode := c.String("sku"); skuCode != "" {
		result, err := a.service.ForecastSKU(c.Context, skuCode, c.String("account"))
		if err != nil {
			return err
		}
		fmt.Printf("forecast stored for %s across %d group(s), %d points each\n",
			result.SKU, len(result.Groups), len(result.Predicted))
		return nil
	}

	summary, err := a.service.RunForecasts(c.Context)
	if err != nil {
		return err
	}

	failed := summary.Failed()
	fmt.Printf("forecast run: %d key(s), %d failed, took %s\n",
		len(summary.Results), len(failed), summary.Duration.Round(10*time.Millisecond))
	for _, f := range failed {
		fmt.Printf("  failed %s/%s: %v\n", f.Key.SKU, f.Key.Account, f.Err)
	}
	return nil
}

func runProject(c *cli.Context) error {
	a, err := buildApp(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	skuCode := c.String("sku")
	points, err := a.service.GetProjection(c.Context, skuCode)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Printf("no forecast on record for %s\n", skuCode)
		return nil
	}

	fmt.Printf("projection for %s (%d days):\n", skuCode, len(points))
	for _, p := range points {
		fmt.Printf("  %s  %10.2f\n", p.Date.Format("2006-01-02"), p.RemainingUnits)
		if p.RemainingUnits == 0 {
			fmt.Printf("  stock exhausted on %s\n", p.Date.Format("2006-01-02"))
			break
		}
	}
	return nil
}

// runStatus pings the database over a raw connection string and prints table
// counts. Useful from cron jobs and CI where the full env config is absent.
func runStatus(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	for _, table := range []string{"sales", "stock", "forecasts"} {
		var count int64
		if err := db.QueryRowContext(c.Context,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return fmt.Errorf("failed to count %s rows: %w", table, err)
		}
		fmt.Printf("%-10s %d rows\n", table, count)
	}
	return nil
}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cliApp := &cli.App{
		Name:  "stockcast",
		Usage: "Ingest retail extracts, forecast demand and project stock depletion",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: runMigrate,
			},
			{
				Name:   "ingest-sales",
				Usage:  "Load sales extracts from the configured input directory",
				Action: runIngestSales,
			},
			{
				Name:   "ingest-stock",
				Usage:  "Load stock extracts and replace the stored snapshot",
				Action: runIngestStock,
			},
			{
				Name:  "forecast",
				Usage: "Fit demand curves and store the 360-day forecast",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "sku",
						Usage: "Limit the run to one SKU",
					},
					&cli.StringFlag{
						Name:  "account",
						Usage: "Limit a single-SKU run to one account",
					},
				},
				Action: runForecast,
			},
			{
				Name:  "project",
				Usage: "Project stock depletion for a SKU",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "sku",
						Usage:    "SKU to project",
						Required: true,
					},
				},
				Action: runProject,
			},
			{
				Name:  "status",
				Usage: "Ping the database and print table sizes",
				Flags: []cli.Flag{
					newDBURLFlag(),
				},
				Action: runStatus,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
