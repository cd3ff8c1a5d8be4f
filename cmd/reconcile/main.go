package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pharmacy-reconciliation-backend/internal/config"
	"pharmacy-reconciliation-backend/internal/database"
	"pharmacy-reconciliation-backend/internal/logger"
	"pharmacy-reconciliation-backend/internal/models"
	"pharmacy-reconciliation-backend/internal/repository"
	service "pharmacy-reconciliation-backend/internal/services/reconciliation"
	"pharmacy-reconciliation-backend/internal/services/statement"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Bank statement reconciliation tooling",
	}

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(seedPaymentsCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads .env plus config and opens the database, the pieces every
// subcommand needs.
func bootstrap() (*gorm.DB, *zap.Logger, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	zlog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, zlog, nil
}

func buildService(db *gorm.DB, zlog *zap.Logger) *service.Service {
	return service.NewService(
		repository.NewPaymentTransactionRepository(db),
		repository.NewReconciliationRecordRepository(db),
		repository.NewUnmatchedBankTransactionRepository(db),
		repository.NewStatementImportRepository(db),
		repository.NewAuditLogRepository(db),
		statement.NewParser(zlog),
		zlog,
	)
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a bank statement and match it against payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			formatStr, _ := cmd.Flags().GetString("format")
			tenantStr, _ := cmd.Flags().GetString("tenant")
			by, _ := cmd.Flags().GetString("by")

			if file == "" {
				return fmt.Errorf("--file is required")
			}
			tenantID, err := uuid.Parse(tenantStr)
			if err != nil {
				return fmt.Errorf("--tenant must be a valid uuid: %w", err)
			}
			format, err := statement.ParseFormat(formatStr)
			if err != nil {
				return err
			}

			db, zlog, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			svc := buildService(db, zlog)
			if !svc.ImportBankStatementFile(context.Background(), f, format, tenantID, filepath.Base(file), by) {
				return fmt.Errorf("import failed, see logs for details")
			}
			fmt.Println("Import completed.")
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to the statement file")
	cmd.Flags().String("format", "csv", "Statement format (csv or ofx)")
	cmd.Flags().String("tenant", "", "Tenant id (uuid)")
	cmd.Flags().String("by", "cli", "Name recorded as the importer")
	return cmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-run matching for stored unmatched bank transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantStr, _ := cmd.Flags().GetString("tenant")
			tenantID, err := uuid.Parse(tenantStr)
			if err != nil {
				return fmt.Errorf("--tenant must be a valid uuid: %w", err)
			}

			db, zlog, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)

			result, err := buildService(db, zlog).RunAutoReconciliation(context.Background(), tenantID)
			if err != nil {
				return err
			}

			fmt.Printf("Processed %d unmatched transactions: %d auto-approved, %d queued for review.\n",
				result.Processed, result.AutoMatched, result.ManualReview)
			for _, e := range result.Errors {
				fmt.Printf("  error: %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().String("tenant", "", "Tenant id (uuid)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export reconciled records for a date range as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantStr, _ := cmd.Flags().GetString("tenant")
			startStr, _ := cmd.Flags().GetString("start")
			endStr, _ := cmd.Flags().GetString("end")
			out, _ := cmd.Flags().GetString("out")

			tenantID, err := uuid.Parse(tenantStr)
			if err != nil {
				return fmt.Errorf("--tenant must be a valid uuid: %w", err)
			}
			start, err := time.Parse("2006-01-02", startStr)
			if err != nil {
				return fmt.Errorf("--start must be YYYY-MM-DD: %w", err)
			}
			end, err := time.Parse("2006-01-02", endStr)
			if err != nil {
				return fmt.Errorf("--end must be YYYY-MM-DD: %w", err)
			}
			// include the whole end day
			end = end.AddDate(0, 0, 1).Add(-time.Second)

			db, zlog, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := buildService(db, zlog).GenerateReconciliationReport(context.Background(), tenantID, start, end, f); err != nil {
				return err
			}
			fmt.Printf("Report written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().String("tenant", "", "Tenant id (uuid)")
	cmd.Flags().String("start", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Range end (YYYY-MM-DD)")
	cmd.Flags().String("out", "reconciliation_report.csv", "Output file path")
	return cmd
}

func seedPaymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-payments",
		Short: "Bulk-load payment transactions from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			tenantStr, _ := cmd.Flags().GetString("tenant")

			if file == "" {
				return fmt.Errorf("--file is required")
			}
			tenantID, err := uuid.Parse(tenantStr)
			if err != nil {
				return fmt.Errorf("--tenant must be a valid uuid: %w", err)
			}

			db, _, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			reader := csv.NewReader(f)
			reader.FieldsPerRecord = -1
			if _, err := reader.Read(); err != nil {
				return fmt.Errorf("cannot read CSV header: %w", err)
			}

			payments := repository.NewPaymentTransactionRepository(db)
			inserted, skipped := 0, 0
			rowNum := 1
			for {
				record, err := reader.Read()
				rowNum++
				if err == io.EOF {
					break
				}
				if err != nil {
					fmt.Printf("row %d: skipped (%v)\n", rowNum, err)
					skipped++
					continue
				}
				payment, err := paymentFromRow(tenantID, record)
				if err != nil {
					fmt.Printf("row %d: skipped (%v)\n", rowNum, err)
					skipped++
					continue
				}
				if err := payments.Create(context.Background(), payment); err != nil {
					fmt.Printf("row %d: insert failed (%v)\n", rowNum, err)
					skipped++
					continue
				}
				inserted++
			}

			fmt.Printf("Inserted %d payments, skipped %d rows.\n", inserted, skipped)
			return nil
		},
	}
	cmd.Flags().String("file", "", "CSV with customer_name,amount,date,reference[,description[,status]]")
	cmd.Flags().String("tenant", "", "Tenant id (uuid)")
	return cmd
}

// paymentFromRow maps one CSV row onto a payment, mirroring the HTTP bulk
// upload columns.
func paymentFromRow(tenantID uuid.UUID, record []string) (*models.PaymentTransaction, error) {
	if len(record) < 4 {
		return nil, fmt.Errorf("expected at least 4 columns, got %d", len(record))
	}
	name := strings.TrimSpace(record[0])
	if name == "" {
		return nil, fmt.Errorf("empty customer name")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("invalid amount %q", record[1])
	}
	dateStr := strings.TrimSpace(record[2])
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		date, err = time.Parse("02-01-2006", dateStr)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", dateStr)
	}

	payment := &models.PaymentTransaction{
		TenantID:        tenantID,
		CustomerName:    name,
		Amount:          amount,
		TransactionDate: date,
		Status:          models.PaymentStatusCompleted,
		Reference:       strings.TrimSpace(record[3]),
	}
	if len(record) > 4 {
		payment.Description = strings.TrimSpace(record[4])
	}
	if len(record) > 5 && strings.TrimSpace(record[5]) != "" {
		payment.Status = strings.TrimSpace(record[5])
	}
	return payment, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Println("Schema is up to date.")
			return nil
		},
	}
}
