package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/apex-pos/api/internal/config"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/logger"
	"github.com/apex-pos/api/internal/report"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "comandactl",
		Short:   "Inspect closed comandas and daily summaries",
		Version: Version,
	}
	rootCmd.PersistentFlags().String("company", "", "Company ID (required)")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres URL (defaults to DATABASE_URL)")

	rootCmd.AddCommand(dailyCmd())
	rootCmd.AddCommand(listCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dailyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Print the daily summary for one day",
		RunE:  runDaily,
	}
	cmd.Flags().String("date", "", "Day to summarize, YYYY-MM-DD (defaults to today, UTC)")
	cmd.Flags().String("format", "table", "Output format: table or csv")
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List closed comandas, newest first",
		RunE:  runList,
	}
	cmd.Flags().Int("page", 1, "Page number")
	cmd.Flags().Int("limit", report.DefaultLimit, "Page size")
	cmd.Flags().String("from", "", "Closed on or after this day, YYYY-MM-DD")
	cmd.Flags().String("to", "", "Closed on or before this day, YYYY-MM-DD")
	return cmd
}

func runDaily(cmd *cobra.Command, _ []string) error {
	dateFlag, _ := cmd.Flags().GetString("date")
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "csv" {
		return fmt.Errorf("unknown format %q (want table or csv)", format)
	}

	date := time.Now().UTC()
	if dateFlag != "" {
		d, err := time.Parse(time.DateOnly, dateFlag)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		date = d
	}

	return withReporter(cmd, func(ctx context.Context, r *report.Reporter, companyID uuid.UUID) error {
		d, err := r.Daily(ctx, companyID, date)
		if err != nil {
			return err
		}
		if format == "csv" {
			return report.WriteCSV(cmd.OutOrStdout(), d)
		}
		return report.RenderTables(cmd.OutOrStdout(), d)
	})
}

func runList(cmd *cobra.Command, _ []string) error {
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	params := report.ListParams{Page: page, Limit: limit}
	if from != "" {
		start, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		params.Start = &start
	}
	if to != "" {
		end, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		end = report.EndOfDay(end)
		params.End = &end
	}

	return withReporter(cmd, func(ctx context.Context, r *report.Reporter, companyID uuid.UUID) error {
		params.CompanyID = companyID
		p, err := r.ListClosed(ctx, params)
		if err != nil {
			return err
		}
		if err := report.RenderComandas(cmd.OutOrStdout(), p.Comandas); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d comandas)\n",
			p.Pagination.Page, p.Pagination.TotalPages, p.Pagination.Total)
		return nil
	})
}

// withReporter opens a pool for the duration of fn.
func withReporter(cmd *cobra.Command, fn func(ctx context.Context, r *report.Reporter, companyID uuid.UUID) error) error {
	companyFlag, _ := cmd.Flags().GetString("company")
	companyID, err := uuid.Parse(companyFlag)
	if err != nil {
		return fmt.Errorf("--company must be a UUID: %w", err)
	}

	cfg := config.Load()
	if dbURL, _ := cmd.Flags().GetString("database-url"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Debug("connected", zap.String("company_id", companyID.String()))

	return fn(ctx, report.New(database.New(pool), cfg.ReportLocation()), companyID)
}
