package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nedapay-api/internal/config"
	"nedapay-api/internal/database"
	"nedapay-api/internal/kotani"
	"nedapay-api/internal/logging"
	"nedapay-api/internal/middleware"
	"nedapay-api/internal/models"
)

const (
	testJWTSecret = "test-jwt-secret"
	testAdminKey  = "test-admin-key"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logging.InitLogger(false); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Env:                  "test",
		AppBaseURL:           "https://pay.example.com",
		CORSOrigins:          []string{"*"},
		HMACSecret:           "test-hmac-secret",
		JWTVerifySecret:      testJWTSecret,
		AdminAccessKey:       testAdminKey,
		PaycrestClientSecret: "test-client-secret",
		LinkRateLimit:        10,
		LinkRateWindow:       time.Minute,
	}

	srv := NewServer(cfg, db, rdb, kotani.NewClient("http://localhost:0", "unused"))
	return srv, srv.Router()
}

func bearerToken(t *testing.T, privyID, wallet string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AccessClaims{
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   privyID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(r *gin.Engine, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func syncUser(t *testing.T, r *gin.Engine, privyID, wallet string) string {
	t.Helper()
	auth := bearerToken(t, privyID, wallet)
	w := doJSON(r, http.MethodPost, "/api/users/sync", auth, gin.H{"wallet": wallet})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return auth
}

func TestUserSyncWalletImmutable(t *testing.T) {
	_, r := newTestServer(t)
	auth := syncUser(t, r, "did:privy:u1", "0xAA")

	// Repeat sync with the same wallet is fine.
	w := doJSON(r, http.MethodPost, "/api/users/sync", auth, gin.H{"wallet": "0xAA"})
	assert.Equal(t, http.StatusOK, w.Code)

	// A different wallet for the same account is rejected.
	w = doJSON(r, http.MethodPost, "/api/users/sync", auth, gin.H{"wallet": "0xBB"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReferralClaimFirstReferrerWins(t *testing.T) {
	srv, r := newTestServer(t)

	influencerAuth := syncUser(t, r, "did:privy:inf", "0xINF")
	w := doJSON(r, http.MethodPost, "/api/referral/influencer", influencerAuth, gin.H{"displayName": "Asha"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var profile models.InfluencerProfile
	require.NoError(t, srv.DB.First(&profile).Error)
	require.Len(t, profile.CustomCode, 6)

	secondAuth := syncUser(t, r, "did:privy:inf2", "0xINF2")
	w = doJSON(r, http.MethodPost, "/api/referral/influencer", secondAuth, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var second models.InfluencerProfile
	require.NoError(t, srv.DB.Where("custom_code != ?", profile.CustomCode).First(&second).Error)

	referredAuth := syncUser(t, r, "did:privy:ref", "0xREF")
	w = doJSON(r, http.MethodPost, "/api/referral/claim", referredAuth, gin.H{"code": profile.CustomCode})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Second claim, even for a different code, is rejected.
	w = doJSON(r, http.MethodPost, "/api/referral/claim", referredAuth, gin.H{"code": second.CustomCode})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ALREADY_REFERRED")

	var count int64
	require.NoError(t, srv.DB.Model(&models.Referral{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReferralClaimStorageFailureIsNotAConflict(t *testing.T) {
	srv, r := newTestServer(t)

	influencerAuth := syncUser(t, r, "did:privy:inf", "0xINF")
	w := doJSON(r, http.MethodPost, "/api/referral/influencer", influencerAuth, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var profile models.InfluencerProfile
	require.NoError(t, srv.DB.First(&profile).Error)

	referredAuth := syncUser(t, r, "did:privy:ref", "0xREF")

	// A broken referrals table must surface as 500, not as ALREADY_REFERRED.
	require.NoError(t, srv.DB.Exec("DROP TABLE referrals").Error)

	w = doJSON(r, http.MethodPost, "/api/referral/claim", referredAuth, gin.H{"code": profile.CustomCode})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL")
	assert.NotContains(t, w.Body.String(), "ALREADY_REFERRED")
}

func TestReferralClaimUnknownCode(t *testing.T) {
	_, r := newTestServer(t)
	auth := syncUser(t, r, "did:privy:u1", "0xAA")

	w := doJSON(r, http.MethodPost, "/api/referral/claim", auth, gin.H{"code": "NOPE99"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInfluencerAnalyticsEndpoint(t *testing.T) {
	srv, r := newTestServer(t)

	influencerAuth := syncUser(t, r, "did:privy:inf", "0xINF")

	// No profile yet.
	w := doJSON(r, http.MethodGet, "/api/referral/analytics/influencer", influencerAuth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/referral/influencer", influencerAuth, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var profile models.InfluencerProfile
	require.NoError(t, srv.DB.First(&profile).Error)

	referredAuth := syncUser(t, r, "did:privy:ref", "0xREF")
	w = doJSON(r, http.MethodPost, "/api/referral/claim", referredAuth, gin.H{"code": profile.CustomCode})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, srv.DB.Create(&models.OffRampTransaction{
		ID: "order-1", MerchantID: "0xREF", Amount: 100, Rate: 1500,
		Currency: "NGN", Status: models.OrderStatusSettled,
	}).Error)

	w = doJSON(r, http.MethodGet, "/api/referral/analytics/influencer", influencerAuth, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ReferralsCount     int `json:"referralsCount"`
		EarningsByCurrency []struct {
			Currency string  `json:"currency"`
			Amount   float64 `json:"amount"`
		} `json:"earningsByCurrency"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ReferralsCount)
	require.Len(t, resp.EarningsByCurrency, 1)
	assert.Equal(t, "NGN", resp.EarningsByCurrency[0].Currency)
	assert.InDelta(t, 15000.0, resp.EarningsByCurrency[0].Amount, 1e-9)
}

func TestPaymentLinkCreationAndRateLimit(t *testing.T) {
	_, r := newTestServer(t)
	auth := syncUser(t, r, "did:privy:m1", "0xMERCHANT")

	var lastBody []byte
	for i := 0; i < 10; i++ {
		w := doJSON(r, http.MethodPost, "/api/payment-links", auth, gin.H{"amount": 25.5, "currency": "USDC"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		lastBody = w.Body.Bytes()
	}

	// 11th request within the window trips the limiter.
	w := doJSON(r, http.MethodPost, "/api/payment-links", auth, gin.H{"amount": 25.5, "currency": "USDC"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var created struct {
		Link models.PaymentLink `json:"link"`
		URL  string             `json:"url"`
	}
	require.NoError(t, json.Unmarshal(lastBody, &created))
	assert.Contains(t, created.URL, "/pay/"+created.Link.ID)
	assert.Contains(t, created.URL, "sig=")

	// Public resolution does not need auth.
	w = doJSON(r, http.MethodGet, "/api/payment-links/"+created.Link.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/payment-links/"+created.Link.ID+"/qr", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestPaymentLinkValidation(t *testing.T) {
	_, r := newTestServer(t)
	auth := syncUser(t, r, "did:privy:m1", "0xMERCHANT")

	w := doJSON(r, http.MethodPost, "/api/payment-links", auth, gin.H{"amount": -5, "currency": "USDC"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/payment-links", auth, gin.H{"amount": 10, "currency": "DOGE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminEndpointsRequireAccessKey(t *testing.T) {
	_, r := newTestServer(t)

	w := doJSON(r, http.MethodGet, "/api/admin/analytics/platform", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/analytics/platform", nil)
	req.Header.Set("x-admin-access-key", testAdminKey)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminDisbursement(t *testing.T) {
	srv, r := newTestServer(t)

	influencerAuth := syncUser(t, r, "did:privy:inf", "0xINF")
	w := doJSON(r, http.MethodPost, "/api/referral/influencer", influencerAuth, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var profile models.InfluencerProfile
	require.NoError(t, srv.DB.First(&profile).Error)

	body, _ := json.Marshal(gin.H{"influencerCode": profile.CustomCode, "amount": 5000, "currency": "NGN", "note": "march payout"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/disbursements", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-admin-access-key", testAdminKey)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var count int64
	require.NoError(t, srv.DB.Model(&models.Disbursement{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Unknown code is rejected.
	body, _ = json.Marshal(gin.H{"influencerCode": "NOPE99", "amount": 5000, "currency": "NGN"})
	req = httptest.NewRequest(http.MethodPost, "/api/admin/disbursements", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-admin-access-key", testAdminKey)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	_, r := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/api/users/sync", "", gin.H{"wallet": "0xAA"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/api/referral/analytics/influencer", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
