package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	handler "pharmacy-reconciliation-backend/internal/handlers"
	"pharmacy-reconciliation-backend/internal/repository"
	service "pharmacy-reconciliation-backend/internal/services/reconciliation"
	"pharmacy-reconciliation-backend/internal/services/statement"
)

// RegisterRoutes wires repositories, services and handlers onto the /api
// group.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, logger *zap.Logger) {
	paymentRepo := repository.NewPaymentTransactionRepository(db)
	recordRepo := repository.NewReconciliationRecordRepository(db)
	unmatchedRepo := repository.NewUnmatchedBankTransactionRepository(db)
	importRepo := repository.NewStatementImportRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	accountRepo := repository.NewBankAccountRepository(db)

	reconService := service.NewService(
		paymentRepo,
		recordRepo,
		unmatchedRepo,
		importRepo,
		auditRepo,
		statement.NewParser(logger),
		logger,
	)

	reconHandler := handler.NewReconciliationHandler(reconService)
	paymentHandler := handler.NewPaymentHandler(paymentRepo, logger)
	accountHandler := handler.NewBankAccountHandler(accountRepo)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	recon := api.Group("/reconciliation")
	recon.POST("/upload", reconHandler.Upload)
	recon.POST("/auto-run", reconHandler.AutoRun)
	recon.GET("/pending", reconHandler.GetPending)
	recon.GET("/discrepancies", reconHandler.GetDiscrepancies)
	recon.GET("/unmatched", reconHandler.GetUnmatched)
	recon.GET("/imports", reconHandler.GetImports)
	recon.GET("/report", reconHandler.Report)
	recon.POST("/:id/approve", reconHandler.Approve)
	recon.GET("/:id/audit", reconHandler.Audit)

	payments := api.Group("/payments")
	{
		payments.POST("", paymentHandler.Create)
		payments.POST("/upload", paymentHandler.Upload)
		payments.GET("/unreconciled", paymentHandler.Unreconciled)
	}

	accounts := api.Group("/bank-accounts")
	{
		accounts.POST("", accountHandler.Create)
		accounts.GET("", accountHandler.List)
	}
}
