package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pharmacy-reconciliation-backend/internal/models"
	"pharmacy-reconciliation-backend/internal/repository"
)

type BankAccountHandler struct {
	accounts *repository.BankAccountRepository
}

func NewBankAccountHandler(accounts *repository.BankAccountRepository) *BankAccountHandler {
	return &BankAccountHandler{accounts: accounts}
}

// Create registers a bank account for display alongside statement data.
func (h *BankAccountHandler) Create(c *gin.Context) {
	var payload struct {
		TenantID      string `json:"tenant_id"`
		BankName      string `json:"bank_name"`
		AccountName   string `json:"account_name"`
		AccountNumber string `json:"account_number"`
		RoutingNumber string `json:"routing_number"`
		SwiftCode     string `json:"swift_code"`
		Currency      string `json:"currency"`
		IsActive      *bool  `json:"is_active"`
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
	if payload.BankName == "" || payload.AccountNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bank_name and account_number required"})
		return
	}

	account := models.BankAccount{
		TenantID:      tenantID,
		BankName:      payload.BankName,
		AccountName:   payload.AccountName,
		AccountNumber: payload.AccountNumber,
		RoutingNumber: payload.RoutingNumber,
		SwiftCode:     payload.SwiftCode,
		Currency:      payload.Currency,
		IsActive:      true,
	}
	if payload.IsActive != nil {
		account.IsActive = *payload.IsActive
	}

	if err := h.accounts.Create(c.Request.Context(), &account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "bank account created", "account": account})
}

// List returns the tenant's bank accounts.
func (h *BankAccountHandler) List(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	accounts, err := h.accounts.FindByTenant(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": accounts})
}
