package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pharmacy-reconciliation-backend/internal/models"
	"pharmacy-reconciliation-backend/internal/repository"
	"pharmacy-reconciliation-backend/internal/services/matching"
	"pharmacy-reconciliation-backend/internal/services/statement"
)

var (
	// ErrRecordNotFound is returned when a reconciliation id resolves to nothing.
	ErrRecordNotFound = errors.New("reconciliation record not found")

	// ErrAlreadyFinal is returned when approving a record that is already
	// approved or rejected.
	ErrAlreadyFinal = errors.New("reconciliation record already finalized")

	// ErrPaymentNotFound is returned when the payment referenced by a record
	// no longer exists.
	ErrPaymentNotFound = errors.New("payment transaction not found")

	// ErrPaymentAlreadyReconciled is returned when another reconciliation
	// claimed the payment first.
	ErrPaymentAlreadyReconciled = errors.New("payment transaction already reconciled")
)

// CandidateSource is the payment-transaction capability the engine needs:
// candidate lookup for scoring, and a conditional claim that only succeeds
// while the payment is still unreconciled. Implemented by the payment
// repository; tests substitute fakes.
type CandidateSource interface {
	FindCandidates(ctx context.Context, tenantID uuid.UUID, around time.Time) ([]models.PaymentTransaction, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error)
	MarkReconciled(ctx context.Context, paymentID, reconciliationID uuid.UUID, at time.Time) (bool, error)
}

var _ CandidateSource = (*repository.PaymentTransactionRepository)(nil)

// Service drives statement reconciliation: batch import, manual
// approve/reject, and the auto-sweep over previously unmatched lines.
type Service struct {
	payments  CandidateSource
	records   *repository.ReconciliationRecordRepository
	unmatched *repository.UnmatchedBankTransactionRepository
	imports   *repository.StatementImportRepository
	audits    *repository.AuditLogRepository
	parser    *statement.Parser
	logger    *zap.Logger
}

func NewService(
	payments CandidateSource,
	records *repository.ReconciliationRecordRepository,
	unmatched *repository.UnmatchedBankTransactionRepository,
	imports *repository.StatementImportRepository,
	audits *repository.AuditLogRepository,
	parser *statement.Parser,
	logger *zap.Logger,
) *Service {
	return &Service{
		payments:  payments,
		records:   records,
		unmatched: unmatched,
		imports:   imports,
		audits:    audits,
		parser:    parser,
		logger:    logger,
	}
}

// ReconcileResult aggregates one batch import.
type ReconcileResult struct {
	Total     int                           `json:"total"`
	Matched   int                           `json:"matched"`
	Unmatched int                           `json:"unmatched"`
	Records   []models.ReconciliationRecord `json:"records"`
}

// AutoReconcileResult aggregates one auto-sweep run.
type AutoReconcileResult struct {
	Processed    int      `json:"processed"`
	AutoMatched  int      `json:"auto_matched"`
	ManualReview int      `json:"manual_review"`
	Errors       []string `json:"errors"`
}

// ReconcileBankStatement scores every statement line against the tenant's
// open payments and persists the outcome line by line. A failure on one line
// is logged and counted as unmatched; the batch never aborts.
func (s *Service) ReconcileBankStatement(ctx context.Context, tenantID uuid.UUID, txs []models.BankTransaction, importedBy string) (*ReconcileResult, error) {
	result := &ReconcileResult{Total: len(txs)}
	// payments matched earlier in this batch must not match again
	claimed := make(map[uuid.UUID]bool)

	for _, tx := range txs {
		rec, err := s.reconcileOne(ctx, tenantID, tx, importedBy, claimed)
		if err != nil {
			s.logger.Error("reconcile statement line",
				zap.String("tenant_id", tenantID.String()),
				zap.String("external_id", tx.ExternalID),
				zap.Error(err))
			result.Unmatched++
			continue
		}
		if rec == nil {
			result.Unmatched++
			continue
		}
		result.Matched++
		result.Records = append(result.Records, *rec)
	}

	s.logger.Info("statement reconciled",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("total", result.Total),
		zap.Int("matched", result.Matched),
		zap.Int("unmatched", result.Unmatched))
	return result, nil
}

func (s *Service) reconcileOne(ctx context.Context, tenantID uuid.UUID, tx models.BankTransaction, importedBy string, claimed map[uuid.UUID]bool) (*models.ReconciliationRecord, error) {
	candidates, err := s.payments.FindCandidates(ctx, tenantID, tx.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	free := make([]models.PaymentTransaction, 0, len(candidates))
	for _, c := range candidates {
		if !claimed[c.ID] {
			free = append(free, c)
		}
	}

	match := matching.FindBestMatch(tx, free)
	if match == nil {
		row := models.UnmatchedBankTransaction{
			TenantID:        tenantID,
			ExternalID:      tx.ExternalID,
			TransactionDate: tx.TransactionDate,
			Description:     tx.Description,
			Amount:          tx.Amount,
			Reference:       tx.Reference,
			AccountNumber:   tx.AccountNumber,
			ImportedBy:      importedBy,
			ImportedAt:      time.Now().UTC(),
		}
		if err := s.unmatched.Create(ctx, &row); err != nil {
			return nil, fmt.Errorf("store unmatched line: %w", err)
		}
		return nil, nil
	}

	rec := newRecord(tenantID, tx, match, importedBy, models.ReconciliationStatusPendingApproval)
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store reconciliation record: %w", err)
	}
	claimed[match.Payment.ID] = true
	s.audit(ctx, rec, models.AuditActionCreated, "", rec.Status, importedBy, "")
	return rec, nil
}

// ApproveMatch finalizes a pending record. Rejection only updates the record;
// approval claims the payment first and finalizes the record after the claim
// wins, so a lost claim leaves the record pending for another look.
func (s *Service) ApproveMatch(ctx context.Context, id uuid.UUID, approved bool, notes, reviewedBy string) (*models.ReconciliationRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	if rec.Final() {
		return nil, ErrAlreadyFinal
	}
	previous := rec.Status

	if !approved {
		rec.Status = models.ReconciliationStatusRejected
		rec.Notes = notes
		if err := s.records.Update(ctx, rec); err != nil {
			return nil, err
		}
		s.audit(ctx, rec, models.AuditActionRejected, previous, rec.Status, reviewedBy, notes)
		return rec, nil
	}

	payment, err := s.payments.GetPayment(ctx, rec.PaymentTransactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	// A crash between claim and finalize leaves the payment pointing at this
	// record; let the retry finish instead of reporting a conflict.
	ours := payment.IsReconciled && payment.ReconciliationID != nil && *payment.ReconciliationID == rec.ID
	if !ours {
		claimedNow, err := s.payments.MarkReconciled(ctx, payment.ID, rec.ID, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if !claimedNow {
			return nil, ErrPaymentAlreadyReconciled
		}
	}

	rec.Status = models.ReconciliationStatusApproved
	rec.Notes = notes
	rec.ReconciledBy = reviewedBy
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.audit(ctx, rec, models.AuditActionApproved, previous, rec.Status, reviewedBy, notes)
	return rec, nil
}

// RunAutoReconciliation re-scores every unmatched line for the tenant.
// Scores at or above matching.AutoApproveScore approve and claim in one
// transaction; scores between the threshold and that bound move the line to
// the manual-review queue; everything else stays for a later sweep. Per-row
// failures land in the error list and never stop the run.
func (s *Service) RunAutoReconciliation(ctx context.Context, tenantID uuid.UUID) (*AutoReconcileResult, error) {
	rows, err := s.unmatched.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result := &AutoReconcileResult{Processed: len(rows)}
	claimed := make(map[uuid.UUID]bool)

	for _, row := range rows {
		tx := row.AsBankTransaction()

		candidates, err := s.payments.FindCandidates(ctx, tenantID, tx.TransactionDate)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: find candidates: %v", row.ExternalID, err))
			s.logger.Error("auto-sweep candidate lookup", zap.String("external_id", row.ExternalID), zap.Error(err))
			continue
		}
		free := make([]models.PaymentTransaction, 0, len(candidates))
		for _, c := range candidates {
			if !claimed[c.ID] {
				free = append(free, c)
			}
		}

		match := matching.FindBestMatch(tx, free)
		if match == nil {
			continue
		}

		auto := match.Score >= matching.AutoApproveScore
		status := models.ReconciliationStatusPendingApproval
		if auto {
			status = models.ReconciliationStatusApproved
		}
		rec := newRecord(tenantID, tx, match, models.SystemReconciler, status)

		promoted, err := s.records.PromoteUnmatched(ctx, rec, row.ID, auto)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: promote: %v", row.ExternalID, err))
			s.logger.Error("auto-sweep promotion", zap.String("external_id", row.ExternalID), zap.Error(err))
			continue
		}
		if !promoted {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: payment %s already reconciled", row.ExternalID, match.Payment.ID))
			continue
		}
		claimed[match.Payment.ID] = true

		if auto {
			result.AutoMatched++
			s.audit(ctx, rec, models.AuditActionAutoApproved, "", rec.Status, models.SystemReconciler, "")
		} else {
			result.ManualReview++
			s.audit(ctx, rec, models.AuditActionCreated, "", rec.Status, models.SystemReconciler, "")
		}
	}

	s.logger.Info("auto-sweep finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("processed", result.Processed),
		zap.Int("auto_matched", result.AutoMatched),
		zap.Int("manual_review", result.ManualReview),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// ImportStatement parses a statement stream, reconciles it, and records the
// import for the history view.
func (s *Service) ImportStatement(ctx context.Context, r io.Reader, format statement.Format, tenantID uuid.UUID, filename, importedBy string) (*ReconcileResult, error) {
	started := time.Now().UTC()

	data, err := io.ReadAll(r)
	if err != nil {
		s.recordImport(ctx, tenantID, filename, format, importedBy, started, nil)
		return nil, fmt.Errorf("read statement: %w", err)
	}
	txs, err := s.parser.Parse(data, format)
	if err != nil {
		s.recordImport(ctx, tenantID, filename, format, importedBy, started, nil)
		return nil, err
	}

	result, err := s.ReconcileBankStatement(ctx, tenantID, txs, importedBy)
	if err != nil {
		s.recordImport(ctx, tenantID, filename, format, importedBy, started, nil)
		return nil, err
	}

	s.recordImport(ctx, tenantID, filename, format, importedBy, started, result)
	return result, nil
}

// ImportBankStatementFile is the fire-and-forget variant for background jobs:
// any failure is logged and collapsed into false.
func (s *Service) ImportBankStatementFile(ctx context.Context, r io.Reader, format statement.Format, tenantID uuid.UUID, filename, importedBy string) bool {
	if _, err := s.ImportStatement(ctx, r, format, tenantID, filename, importedBy); err != nil {
		s.logger.Error("statement import failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("filename", filename),
			zap.Error(err))
		return false
	}
	return true
}

func newRecord(tenantID uuid.UUID, tx models.BankTransaction, match *matching.Match, reconciledBy, status string) *models.ReconciliationRecord {
	details, _ := json.Marshal(match.Components)
	return &models.ReconciliationRecord{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		BankTransactionID:    tx.ExternalID,
		PaymentTransactionID: match.Payment.ID,
		MatchType:            match.MatchType,
		MatchScore:           match.Score,
		Status:               status,
		ReconciledBy:         reconciledBy,
		ReconciledAt:         time.Now().UTC(),
		BankAmount:           tx.Amount,
		PaymentAmount:        match.Payment.Amount,
		Difference:           tx.Amount.Sub(match.Payment.Amount).Abs(),
		ScoreDetails:         details,
	}
}

// audit writes a trail entry. Trail failures are logged, never surfaced: the
// reconciliation itself already committed.
func (s *Service) audit(ctx context.Context, rec *models.ReconciliationRecord, action, previous, current, performedBy, reason string) {
	entry := models.ReconciliationAuditLog{
		TenantID:         rec.TenantID,
		ReconciliationID: rec.ID,
		Action:           action,
		PreviousStatus:   previous,
		NewStatus:        current,
		PerformedBy:      performedBy,
		Reason:           reason,
	}
	if err := s.audits.Create(ctx, &entry); err != nil {
		s.logger.Warn("write audit trail",
			zap.String("reconciliation_id", rec.ID.String()),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *Service) recordImport(ctx context.Context, tenantID uuid.UUID, filename string, format statement.Format, importedBy string, started time.Time, result *ReconcileResult) {
	imp := models.StatementImport{
		TenantID:   tenantID,
		Filename:   filename,
		Format:     string(format),
		Status:     models.ImportStatusFailed,
		ImportedBy: importedBy,
		StartedAt:  started,
	}
	if result != nil {
		now := time.Now().UTC()
		imp.Status = models.ImportStatusCompleted
		imp.TotalCount = result.Total
		imp.MatchedCount = result.Matched
		imp.UnmatchedCount = result.Unmatched
		imp.CompletedAt = &now
	}
	if err := s.imports.Create(ctx, &imp); err != nil {
		s.logger.Error("record statement import",
			zap.String("tenant_id", tenantID.String()),
			zap.String("filename", filename),
			zap.Error(err))
	}
}
