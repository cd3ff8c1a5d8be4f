package handler

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	service "pharmacy-reconciliation-backend/internal/services/reconciliation"
	"pharmacy-reconciliation-backend/internal/services/statement"
)

// queryDateLayout is the date format for start_date/end_date parameters.
const queryDateLayout = "2006-01-02"

type ReconciliationHandler struct {
	service *service.Service
}

func NewReconciliationHandler(s *service.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

// Upload receives a statement file and reconciles it synchronously, returning
// the batch counts.
func (h *ReconciliationHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	format, err := statement.ParseFormat(c.PostForm("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID, err := uuid.Parse(c.PostForm("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}
	importedBy := c.PostForm("imported_by")
	if importedBy == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imported_by required"})
		return
	}

	result, err := h.service.ImportStatement(c.Request.Context(), file, format, tenantID, header.Filename, importedBy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// AutoRun sweeps the tenant's unmatched statement lines.
func (h *ReconciliationHandler) AutoRun(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	result, err := h.service.RunAutoReconciliation(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ReconciliationHandler) GetPending(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	matches, err := h.service.GetPendingMatches(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": matches})
}

func (h *ReconciliationHandler) GetDiscrepancies(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	discrepancies, err := h.service.GetDiscrepancies(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": discrepancies})
}

func (h *ReconciliationHandler) GetUnmatched(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	rows, err := h.service.ListUnmatched(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *ReconciliationHandler) GetImports(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	imports, err := h.service.GetImportHistory(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": imports})
}

// Report renders the CSV export for a reconciled-date range. end_date is
// inclusive through the end of the day.
func (h *ReconciliationHandler) Report(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}
	start, err := time.Parse(queryDateLayout, c.Query("start_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(queryDateLayout, c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, expected YYYY-MM-DD"})
		return
	}
	end = end.AddDate(0, 0, 1).Add(-time.Second)

	var buf bytes.Buffer
	if err := h.service.GenerateReconciliationReport(c.Request.Context(), tenantID, start, end, &buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reconciliation_report.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// Approve finalizes a pending match as approved or rejected.
func (h *ReconciliationHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reconciliation ID"})
		return
	}

	var payload struct {
		Approved   *bool  `json:"approved"`
		Notes      string `json:"notes"`
		ReviewedBy string `json:"reviewed_by"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.Approved == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approved required"})
		return
	}

	rec, err := h.service.ApproveMatch(c.Request.Context(), id, *payload.Approved, payload.Notes, payload.ReviewedBy)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	msg := "match approved"
	if !*payload.Approved {
		msg = "match rejected"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "record": rec})
}

// Audit returns the audit trail for one reconciliation record.
func (h *ReconciliationHandler) Audit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reconciliation ID"})
		return
	}

	trail, err := h.service.GetAuditTrail(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trail})
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRecordNotFound), errors.Is(err, service.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyFinal), errors.Is(err, service.ErrPaymentAlreadyReconciled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
