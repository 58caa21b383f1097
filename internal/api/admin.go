package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"nedapay-api/internal/logging"
	"nedapay-api/internal/models"
)

// PlatformAnalytics returns the cross-influencer rollup for admin reporting.
func (s *Server) PlatformAnalytics(c *gin.Context) {
	rollup, err := s.Referrals.PlatformRollup()
	if err != nil {
		logging.Sugar().Errorw("failed to compute platform rollup", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}
	c.JSON(http.StatusOK, rollup)
}

type createDisbursementRequest struct {
	InfluencerCode string  `json:"influencerCode" binding:"required"`
	Amount         float64 `json:"amount" binding:"required"`
	Currency       string  `json:"currency" binding:"required"`
	Note           string  `json:"note"`
}

// CreateDisbursement records a manual payout of referral earnings.
func (s *Server) CreateDisbursement(c *gin.Context) {
	var req createDisbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "influencerCode, amount and currency are required", "code": "VALIDATION_ERROR"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive", "code": "VALIDATION_ERROR"})
		return
	}

	var profile models.InfluencerProfile
	if err := s.DB.Where("custom_code = ?", req.InfluencerCode).First(&profile).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "influencer code not found", "code": "NOT_FOUND"})
		return
	}

	disbursement := models.Disbursement{
		ID:             uuid.New().String(),
		InfluencerCode: req.InfluencerCode,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Note:           req.Note,
	}
	if err := s.DB.Create(&disbursement).Error; err != nil {
		logging.Sugar().Errorw("failed to create disbursement", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	c.JSON(http.StatusCreated, disbursement)
}

// ExportTransactions streams all off-ramp transactions as an xlsx workbook
// for finance reporting.
func (s *Server) ExportTransactions(c *gin.Context) {
	var txs []models.OffRampTransaction
	if err := s.DB.Order("created_at ASC").Find(&txs).Error; err != nil {
		logging.Sugar().Errorw("failed to load transactions", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transactions"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Order ID", "Merchant Wallet", "Amount", "Rate", "Fiat Volume", "Currency", "Status", "Created At", "Updated At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, tx := range txs {
		values := []interface{}{
			tx.ID,
			tx.MerchantID,
			tx.Amount,
			tx.Rate,
			tx.Amount * tx.Rate,
			tx.Currency,
			tx.Status,
			tx.CreatedAt.Format(time.RFC3339),
			tx.UpdatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("offramp-transactions-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		logging.Sugar().Errorw("failed to write xlsx", "err", err)
	}
}
