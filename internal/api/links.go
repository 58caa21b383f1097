package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"nedapay-api/internal/logging"
	"nedapay-api/internal/paymentlink"
)

var supportedCurrencies = map[string]bool{
	"USDC": true,
	"USDT": true,
	"NGN":  true,
	"KES":  true,
	"GHS":  true,
	"TZS":  true,
	"UGX":  true,
	"IDR":  true,
}

type createLinkRequest struct {
	Amount      float64 `json:"amount" binding:"required"`
	Currency    string  `json:"currency" binding:"required"`
	Description string  `json:"description"`
	TTLHours    int     `json:"ttlHours"`
}

// CreatePaymentLink generates a signed pay URL for the caller's wallet.
// Rate-limited per IP by the router.
func (s *Server) CreatePaymentLink(c *gin.Context) {
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount and currency are required", "code": "VALIDATION_ERROR"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive", "code": "VALIDATION_ERROR"})
		return
	}
	if !supportedCurrencies[req.Currency] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported currency", "code": "VALIDATION_ERROR"})
		return
	}

	user, err := s.currentUser(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found, sync wallet first", "code": "NOT_FOUND"})
		return
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	link, url, err := s.Links.Create(user.Wallet, req.Amount, req.Currency, req.Description, ttl)
	if err != nil {
		logging.Sugar().Errorw("failed to create payment link", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"link": link, "url": url})
}

// GetPaymentLink resolves a link for the public pay page, re-verifying its
// signature against the stored fields.
func (s *Server) GetPaymentLink(c *gin.Context) {
	link, err := s.Links.Resolve(c.Param("id"))
	if err != nil {
		s.linkError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link, "url": s.Links.URL(link)})
}

// PaymentLinkQR renders the signed pay URL as a PNG QR code.
func (s *Server) PaymentLinkQR(c *gin.Context) {
	link, err := s.Links.Resolve(c.Param("id"))
	if err != nil {
		s.linkError(c, err)
		return
	}

	png, err := qrcode.Encode(s.Links.URL(link), qrcode.Medium, 256)
	if err != nil {
		logging.Sugar().Errorw("failed to encode qr", "link", link.ID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) linkError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, paymentlink.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment link not found", "code": "NOT_FOUND"})
	case errors.Is(err, paymentlink.ErrTampered):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "payment link signature mismatch", "code": "UNAUTHORIZED"})
	case errors.Is(err, paymentlink.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "payment link expired", "code": "VALIDATION_ERROR"})
	default:
		logging.Sugar().Errorw("failed to resolve payment link", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
	}
}
