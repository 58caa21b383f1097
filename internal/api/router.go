package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"nedapay-api/internal/config"
	"nedapay-api/internal/kotani"
	"nedapay-api/internal/middleware"
	"nedapay-api/internal/paycrest"
	"nedapay-api/internal/paymentlink"
	"nedapay-api/internal/referral"
)

type Server struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Referrals *referral.Service
	Links     *paymentlink.Service
	Kotani    *kotani.Client
	Webhook   *paycrest.Handler
}

func NewServer(cfg *config.Config, db *gorm.DB, rdb *redis.Client, kotaniClient *kotani.Client) *Server {
	return &Server{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Referrals: referral.NewService(db),
		Links:     paymentlink.NewService(db, cfg.HMACSecret, cfg.AppBaseURL),
		Kotani:    kotaniClient,
		Webhook:   paycrest.NewHandler(db, cfg.PaycrestClientSecret, cfg.PaycrestAllowedCIDRs),
	}
}

func (s *Server) Router() *gin.Engine {
	if s.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "x-admin-access-key"},
	}
	if len(s.Config.CORSOrigins) == 1 && s.Config.CORSOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.Config.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider callbacks authenticate via HMAC signature, not bearer tokens.
	r.POST("/api/paycrest/webhook", s.Webhook.HandleWebhook)

	// Public link resolution: the pay page fetches these without auth.
	r.GET("/api/payment-links/:id", s.GetPaymentLink)
	r.GET("/api/payment-links/:id/qr", s.PaymentLinkQR)

	authed := r.Group("/api", middleware.AuthMiddleware(s.Config.JWTVerifySecret))
	{
		authed.POST("/users/sync", s.SyncUser)
		authed.POST("/referral/claim", s.ClaimReferral)
		authed.POST("/referral/influencer", s.CreateInfluencerProfile)
		authed.GET("/referral/analytics/influencer", s.InfluencerAnalytics)

		linkLimiter := middleware.NewRateLimiter(s.Redis, "ratelimit:payment-links", s.Config.LinkRateLimit, s.Config.LinkRateWindow)
		authed.POST("/payment-links", linkLimiter.Middleware(), s.CreatePaymentLink)

		authed.POST("/offramp/mobile-money", s.CreateMobileMoneyPayout)
	}

	admin := r.Group("/api/admin", middleware.AdminMiddleware(s.Config.AdminAccessKey))
	{
		admin.GET("/analytics/platform", s.PlatformAnalytics)
		admin.POST("/disbursements", s.CreateDisbursement)
		admin.GET("/export/transactions", s.ExportTransactions)
	}

	return r
}
