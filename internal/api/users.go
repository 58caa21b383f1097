package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nedapay-api/internal/logging"
	"nedapay-api/internal/models"
)

type syncUserRequest struct {
	Wallet string `json:"wallet" binding:"required"`
	Email  string `json:"email"`
}

// SyncUser upserts the caller's identity record on wallet sync. The wallet is
// immutable once set: a token presenting a different wallet gets a 409.
func (s *Server) SyncUser(c *gin.Context) {
	var req syncUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet is required", "code": "VALIDATION_ERROR"})
		return
	}

	privyID := c.GetString("privyUserID")
	if privyID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}

	var user models.User
	err := s.DB.Where("privy_user_id = ?", privyID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Wallet:      req.Wallet,
			Email:       req.Email,
			PrivyUserID: privyID,
		}
		if err := s.DB.Create(&user).Error; err != nil {
			logging.Sugar().Errorw("failed to create user", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
			return
		}
		c.JSON(http.StatusCreated, user)
		return
	}
	if err != nil {
		logging.Sugar().Errorw("failed to load user", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	if user.Wallet != req.Wallet {
		c.JSON(http.StatusConflict, gin.H{"error": "wallet already set for this account", "code": "VALIDATION_ERROR"})
		return
	}

	if req.Email != "" && req.Email != user.Email {
		user.Email = req.Email
		if err := s.DB.Save(&user).Error; err != nil {
			logging.Sugar().Errorw("failed to update user", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
			return
		}
	}

	c.JSON(http.StatusOK, user)
}

// currentUser resolves the authenticated user record, if it exists yet.
func (s *Server) currentUser(c *gin.Context) (*models.User, error) {
	privyID := c.GetString("privyUserID")
	if privyID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	if err := s.DB.Where("privy_user_id = ?", privyID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
