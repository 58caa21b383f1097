package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nedapay-api/internal/kotani"
	"nedapay-api/internal/logging"
)

type mobileMoneyRequest struct {
	PhoneNumber string  `json:"phoneNumber" binding:"required"`
	Amount      float64 `json:"amount" binding:"required"`
	Currency    string  `json:"currency" binding:"required"`
	Network     string  `json:"network" binding:"required"`
}

// CreateMobileMoneyPayout initiates a fiat payout to a mobile-money wallet
// through the payout provider. A provider failure surfaces as a 502; the
// provider's own dashboard is the source of truth for payout state.
func (s *Server) CreateMobileMoneyPayout(c *gin.Context) {
	var req mobileMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber, amount, currency and network are required", "code": "VALIDATION_ERROR"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive", "code": "VALIDATION_ERROR"})
		return
	}

	user, err := s.currentUser(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found, sync wallet first", "code": "NOT_FOUND"})
		return
	}

	payout, err := s.Kotani.CreateMobileMoneyPayout(kotani.MobileMoneyPayoutRequest{
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Network:     req.Network,
		Reference:   uuid.New().String(),
	})
	if err != nil {
		logging.Sugar().Errorw("mobile money payout failed", "wallet", user.Wallet, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payout provider error", "code": "INTERNAL"})
		return
	}

	c.JSON(http.StatusOK, payout)
}
