package handler

import (
	"encoding/csv"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacy-reconciliation-backend/internal/models"
	"pharmacy-reconciliation-backend/internal/repository"
)

type PaymentHandler struct {
	payments *repository.PaymentTransactionRepository
	logger   *zap.Logger
}

func NewPaymentHandler(payments *repository.PaymentTransactionRepository, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// Create records a single payment transaction.
func (h *PaymentHandler) Create(c *gin.Context) {
	var payload struct {
		TenantID        string          `json:"tenant_id"`
		CustomerName    string          `json:"customer_name"`
		Amount          decimal.Decimal `json:"amount"`
		TransactionDate string          `json:"transaction_date"`
		Reference       string          `json:"reference"`
		Description     string          `json:"description"`
		Status          string          `json:"status"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}
	if payload.CustomerName == "" || !payload.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer name or amount"})
		return
	}
	date, err := time.Parse("2006-01-02", payload.TransactionDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction_date, expected YYYY-MM-DD"})
		return
	}
	status := payload.Status
	if status == "" {
		status = models.PaymentStatusCompleted
	}

	payment := models.PaymentTransaction{
		TenantID:        tenantID,
		CustomerName:    payload.CustomerName,
		Amount:          payload.Amount,
		TransactionDate: date,
		Status:          status,
		Reference:       payload.Reference,
		Description:     payload.Description,
	}
	if err := h.payments.Create(c.Request.Context(), &payment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "payment created", "payment": payment})
}

// Upload bulk-loads payments from a CSV with columns
// customer_name,amount,date,reference[,description[,status]]. Bad rows are
// logged and skipped; the response reports how many were inserted.
func (h *PaymentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	tenantID, err := uuid.Parse(c.PostForm("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// header row
	if _, err := reader.Read(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read CSV header"})
		return
	}

	inserted := 0
	rowNum := 0
	for {
		record, err := reader.Read()
		rowNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			h.logger.Warn("skipping malformed payment row", zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		if len(record) < 4 {
			h.logger.Warn("skipping payment row with too few columns", zap.Int("row", rowNum))
			continue
		}

		customerName := strings.TrimSpace(record[0])
		amountStr := strings.TrimSpace(record[1])
		dateStr := strings.TrimSpace(record[2])
		reference := strings.TrimSpace(record[3])

		amount, err := decimal.NewFromString(amountStr)
		if err != nil || !amount.IsPositive() {
			h.logger.Warn("skipping payment row with invalid amount", zap.Int("row", rowNum), zap.String("amount", amountStr))
			continue
		}
		if customerName == "" {
			h.logger.Warn("skipping payment row with empty customer name", zap.Int("row", rowNum))
			continue
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			date, err = time.Parse("02-01-2006", dateStr)
		}
		if err != nil {
			h.logger.Warn("skipping payment row with invalid date", zap.Int("row", rowNum), zap.String("date", dateStr))
			continue
		}

		payment := models.PaymentTransaction{
			TenantID:        tenantID,
			CustomerName:    customerName,
			Amount:          amount,
			TransactionDate: date,
			Status:          models.PaymentStatusCompleted,
			Reference:       reference,
		}
		if len(record) > 4 {
			payment.Description = strings.TrimSpace(record[4])
		}
		if len(record) > 5 && strings.TrimSpace(record[5]) != "" {
			payment.Status = strings.TrimSpace(record[5])
		}

		if err := h.payments.Create(c.Request.Context(), &payment); err != nil {
			h.logger.Error("inserting payment row", zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		inserted++
	}

	c.JSON(http.StatusOK, gin.H{
		"file":           header.Filename,
		"payments_added": inserted,
	})
}

// Unreconciled lists completed payments still waiting for a bank-statement
// match.
func (h *PaymentHandler) Unreconciled(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	payments, err := h.payments.FindUnreconciled(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}
