package api

import (
	"crypto/rand"
	"errors"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nedapay-api/internal/logging"
	"nedapay-api/internal/models"
	"nedapay-api/internal/referral"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateCode produces a 6-character influencer code. Ambiguous characters
// (0/O, 1/I) are excluded from the alphabet.
func generateCode() (string, error) {
	code := make([]byte, 6)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

type createInfluencerRequest struct {
	DisplayName string `json:"displayName"`
}

// CreateInfluencerProfile creates the caller's influencer profile with a
// generated code. Idempotent: a repeat call returns the existing profile.
func (s *Server) CreateInfluencerProfile(c *gin.Context) {
	user, err := s.currentUser(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found, sync wallet first", "code": "NOT_FOUND"})
		return
	}

	var req createInfluencerRequest
	_ = c.ShouldBindJSON(&req)

	var profile models.InfluencerProfile
	err = s.DB.Where("user_id = ?", user.ID).First(&profile).Error
	if err == nil {
		c.JSON(http.StatusOK, profile)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Sugar().Errorw("failed to load influencer profile", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	code, err := generateCode()
	if err != nil {
		logging.Sugar().Errorw("failed to generate influencer code", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	profile = models.InfluencerProfile{
		UserID:      user.ID,
		CustomCode:  code,
		DisplayName: req.DisplayName,
		IsActive:    true,
	}
	if err := s.DB.Create(&profile).Error; err != nil {
		logging.Sugar().Errorw("failed to create influencer profile", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	c.JSON(http.StatusCreated, profile)
}

type claimReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

// ClaimReferral attaches the caller to an influencer code. First-referrer-wins:
// a user already claimed by any code gets a 409, whatever the code.
func (s *Server) ClaimReferral(c *gin.Context) {
	var req claimReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required", "code": "VALIDATION_ERROR"})
		return
	}

	user, err := s.currentUser(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found, sync wallet first", "code": "NOT_FOUND"})
		return
	}

	var profile models.InfluencerProfile
	if err := s.DB.Where("custom_code = ? AND is_active = ?", req.Code, true).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "influencer code not found", "code": "NOT_FOUND"})
			return
		}
		logging.Sugar().Errorw("failed to load influencer code", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	if profile.UserID == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot claim own code", "code": "VALIDATION_ERROR"})
		return
	}

	var existing models.Referral
	if err := s.DB.Where("user_id = ?", user.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user already referred", "code": "ALREADY_REFERRED"})
		return
	}

	ref := models.Referral{
		InfluencerCode: profile.CustomCode,
		UserID:         user.ID,
	}
	if err := s.DB.Create(&ref).Error; err != nil {
		// Unique index on user_id backstops a concurrent double claim; any
		// other create failure is a real error, not a conflict.
		var race models.Referral
		if s.DB.Where("user_id = ?", user.ID).First(&race).Error == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "user already referred", "code": "ALREADY_REFERRED"})
			return
		}
		logging.Sugar().Errorw("failed to create referral", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	c.JSON(http.StatusCreated, ref)
}

// InfluencerAnalytics returns the caller's referral earnings report.
func (s *Server) InfluencerAnalytics(c *gin.Context) {
	user, err := s.currentUser(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "code": "NOT_FOUND"})
		return
	}

	var profile models.InfluencerProfile
	if err := s.DB.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "influencer profile not found", "code": "NOT_FOUND"})
		return
	}

	analytics, err := s.Referrals.AnalyticsForCode(profile.CustomCode)
	if err != nil {
		if errors.Is(err, referral.ErrInfluencerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "influencer profile not found", "code": "NOT_FOUND"})
			return
		}
		logging.Sugar().Errorw("failed to compute analytics", "code", profile.CustomCode, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	c.JSON(http.StatusOK, analytics)
}
