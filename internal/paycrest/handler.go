package paycrest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nedapay-api/internal/logging"
	"nedapay-api/internal/models"
	"nedapay-api/internal/monitoring"
	"nedapay-api/internal/utils"
)

type Handler struct {
	DB           *gorm.DB
	ClientSecret string
	AllowedCIDRs []string
}

func NewHandler(db *gorm.DB, clientSecret string, allowedCIDRs []string) *Handler {
	return &Handler{
		DB:           db,
		ClientSecret: clientSecret,
		AllowedCIDRs: allowedCIDRs,
	}
}

// HandleWebhook ingests signed payment-order callbacks from the provider.
// The signature is checked over the raw body before anything is decoded;
// nothing is written to the database on a failed check.
func (h *Handler) HandleWebhook(c *gin.Context) {
	if len(h.AllowedCIDRs) > 0 && !utils.IsAllowedIP(c.ClientIP(), h.AllowedCIDRs) {
		logging.Sugar().Warnw("webhook from disallowed source", "ip", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "FORBIDDEN"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body", "code": "VALIDATION_ERROR"})
		return
	}

	if !VerifySignature(body, c.GetHeader(SignatureHeader), h.ClientSecret) {
		monitoring.WebhookEventsTotal.WithLabelValues("unknown", "bad_signature").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature", "code": "UNAUTHORIZED"})
		return
	}

	var notification WebhookNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		logging.Sugar().Warnw("failed to decode webhook", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request", "code": "VALIDATION_ERROR"})
		return
	}

	status := eventStatus(notification.Event)
	if status == "" {
		// Acknowledge unknown events so the provider stops retrying them.
		logging.Sugar().Infow("ignored webhook event", "event", notification.Event)
		monitoring.WebhookEventsTotal.WithLabelValues(notification.Event, "ignored").Inc()
		c.Status(http.StatusOK)
		return
	}

	if err := h.applyOrderEvent(notification.Data, status); err != nil {
		logging.Sugar().Errorw("failed to process webhook", "event", notification.Event, "order", notification.Data.ID, "err", err)
		monitoring.WebhookEventsTotal.WithLabelValues(notification.Event, "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	monitoring.WebhookEventsTotal.WithLabelValues(notification.Event, "ok").Inc()
	c.Status(http.StatusOK)
}

var errMissingOrderID = errors.New("webhook data missing order id")

// applyOrderEvent upserts the off-ramp transaction for a provider order,
// keyed on the provider order id. Statuses move forward only: a terminal
// row is never demoted by a late or replayed pending delivery.
func (h *Handler) applyOrderEvent(order OrderPayload, status string) error {
	if order.ID == "" {
		return errMissingOrderID
	}

	amount, err := strconv.ParseFloat(order.Amount, 64)
	if err != nil {
		return err
	}
	rate, err := strconv.ParseFloat(order.Rate, 64)
	if err != nil {
		return err
	}

	return h.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.OffRampTransaction
		err := tx.Where("id = ?", order.ID).First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.OffRampTransaction{
				ID:         order.ID,
				MerchantID: order.FromAddress,
				Amount:     amount,
				Rate:       rate,
				Currency:   order.Recipient.Currency,
				Status:     status,
			}).Error
		}
		if err != nil {
			return err
		}

		if models.IsTerminalStatus(existing.Status) && status == models.OrderStatusPending {
			return nil
		}

		return tx.Model(&existing).Updates(map[string]interface{}{
			"merchant_id": order.FromAddress,
			"amount":      amount,
			"rate":        rate,
			"currency":    order.Recipient.Currency,
			"status":      status,
		}).Error
	})
}
