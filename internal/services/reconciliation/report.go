package reconciliation

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pharmacy-reconciliation-backend/internal/models"
)

// reportDateLayout is the timestamp format used in CSV exports.
const reportDateLayout = "2006-01-02 15:04:05"

var hundred = decimal.NewFromInt(100)

var reportHeader = []string{
	"Reconciliation ID",
	"Bank Transaction ID",
	"Payment Transaction ID",
	"Customer Name",
	"Expected Amount",
	"Actual Amount",
	"Difference",
	"Match Type",
	"Status",
	"Reconciled Date",
}

// PendingMatch pairs a record awaiting review with the payment display data
// the review screen needs.
type PendingMatch struct {
	Record           models.ReconciliationRecord `json:"record"`
	CustomerName     string                      `json:"customer_name"`
	PaymentReference string                      `json:"payment_reference"`
	PaymentDate      time.Time                   `json:"payment_date"`
}

// Discrepancy is a matched pair whose amounts disagree, annotated with the
// difference as a percentage of the payment amount.
type Discrepancy struct {
	models.ReconciliationRecord
	DifferencePercent float64 `json:"difference_percent"`
}

// GetPendingMatches lists records in pending_approval with their payment
// display data. A payment that has vanished leaves the display fields blank
// rather than failing the listing.
func (s *Service) GetPendingMatches(ctx context.Context, tenantID uuid.UUID) ([]PendingMatch, error) {
	recs, err := s.records.FindPending(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	matches := make([]PendingMatch, 0, len(recs))
	for _, rec := range recs {
		m := PendingMatch{Record: rec}
		payment, err := s.payments.GetPayment(ctx, rec.PaymentTransactionID)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			m.CustomerName = payment.CustomerName
			m.PaymentReference = payment.Reference
			m.PaymentDate = payment.TransactionDate
		} else {
			s.logger.Warn("pending match without payment",
				zap.String("reconciliation_id", rec.ID.String()),
				zap.String("payment_id", rec.PaymentTransactionID.String()))
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// GetDiscrepancies lists records with a non-zero amount difference, largest
// first, each annotated with difference/paymentAmount as a percentage (zero
// when the payment amount is zero).
func (s *Service) GetDiscrepancies(ctx context.Context, tenantID uuid.UUID) ([]Discrepancy, error) {
	recs, err := s.records.FindDiscrepancies(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	discrepancies := make([]Discrepancy, 0, len(recs))
	for _, rec := range recs {
		d := Discrepancy{ReconciliationRecord: rec}
		if !rec.PaymentAmount.IsZero() {
			d.DifferencePercent = rec.Difference.
				Div(rec.PaymentAmount).
				Mul(hundred).
				InexactFloat64()
		}
		discrepancies = append(discrepancies, d)
	}
	return discrepancies, nil
}

// GenerateReconciliationReport streams a CSV export of every record
// reconciled inside the date range. Currency columns are grouped per English
// locale rules; embedded commas and quotes are escaped by the writer.
func (s *Service) GenerateReconciliationReport(ctx context.Context, tenantID uuid.UUID, start, end time.Time, w io.Writer) error {
	recs, err := s.records.FindByDateRange(ctx, tenantID, start, end)
	if err != nil {
		return err
	}

	printer := message.NewPrinter(language.English)
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for _, rec := range recs {
		customerName := ""
		if payment, err := s.payments.GetPayment(ctx, rec.PaymentTransactionID); err != nil {
			return err
		} else if payment != nil {
			customerName = payment.CustomerName
		}

		row := []string{
			rec.ID.String(),
			rec.BankTransactionID,
			rec.PaymentTransactionID.String(),
			customerName,
			printer.Sprintf("%.2f", rec.PaymentAmount.InexactFloat64()),
			printer.Sprintf("%.2f", rec.BankAmount.InexactFloat64()),
			printer.Sprintf("%.2f", rec.Difference.InexactFloat64()),
			rec.MatchType,
			rec.Status,
			rec.ReconciledAt.Format(reportDateLayout),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// GetImportHistory lists statement imports for the tenant, newest first.
func (s *Service) GetImportHistory(ctx context.Context, tenantID uuid.UUID) ([]models.StatementImport, error) {
	return s.imports.FindByTenant(ctx, tenantID)
}

// GetAuditTrail returns the audit entries for one record in the order they
// were written.
func (s *Service) GetAuditTrail(ctx context.Context, reconciliationID uuid.UUID) ([]models.ReconciliationAuditLog, error) {
	rec, err := s.records.GetByID(ctx, reconciliationID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	return s.audits.FindByReconciliation(ctx, reconciliationID)
}

// ListUnmatched lists the statement lines still waiting for a match.
func (s *Service) ListUnmatched(ctx context.Context, tenantID uuid.UUID) ([]models.UnmatchedBankTransaction, error) {
	return s.unmatched.FindByTenant(ctx, tenantID)
}
