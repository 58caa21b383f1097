package referral

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nedapay-api/internal/database"
	"nedapay-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedInfluencer(t *testing.T, db *gorm.DB, code, wallet string) models.User {
	t.Helper()
	owner := models.User{Wallet: wallet, PrivyUserID: "privy-" + code}
	require.NoError(t, db.Create(&owner).Error)
	require.NoError(t, db.Create(&models.InfluencerProfile{
		UserID:     owner.ID,
		CustomCode: code,
		IsActive:   true,
	}).Error)
	return owner
}

func seedReferral(t *testing.T, db *gorm.DB, code, wallet string) models.User {
	t.Helper()
	referred := models.User{Wallet: wallet, PrivyUserID: "privy-" + wallet}
	require.NoError(t, db.Create(&referred).Error)
	require.NoError(t, db.Create(&models.Referral{InfluencerCode: code, UserID: referred.ID}).Error)
	return referred
}

func TestAnalyticsFirstSettledScenario(t *testing.T) {
	db := newTestDB(t)
	seedInfluencer(t, db, "ABC123", "0xINFLUENCER")
	seedReferral(t, db, "ABC123", "0xAA")

	base := time.Now().Add(-48 * time.Hour)
	// A pending order created before the settled one must not be selected.
	require.NoError(t, db.Create(&models.OffRampTransaction{
		ID: "order-1", MerchantID: "0xAA", Amount: 50, Rate: 1500,
		Currency: "NGN", Status: models.OrderStatusPending, CreatedAt: base,
	}).Error)
	require.NoError(t, db.Create(&models.OffRampTransaction{
		ID: "order-2", MerchantID: "0xAA", Amount: 100, Rate: 1500,
		Currency: "NGN", Status: models.OrderStatusSettled, CreatedAt: base.Add(time.Hour),
	}).Error)

	svc := NewService(db)
	analytics, err := svc.AnalyticsForCode("ABC123")
	require.NoError(t, err)

	assert.Equal(t, "ABC123", analytics.Influencer.Code)
	assert.Equal(t, 1, analytics.ReferralsCount)
	require.Len(t, analytics.ReferredUsers, 1)

	ru := analytics.ReferredUsers[0]
	require.NotNil(t, ru.FirstSettledTx)
	assert.Equal(t, "order-2", ru.FirstSettledTx.ID)
	assert.InDelta(t, 150000.0, ru.FirstSettledTx.Amount, 1e-9)
	require.NotNil(t, ru.Earning)
	assert.InDelta(t, 15000.0, ru.Earning.Amount, 1e-9)
	assert.Equal(t, "NGN", ru.Earning.Currency)

	require.Len(t, analytics.EarningsByCurrency, 1)
	assert.Equal(t, "NGN", analytics.EarningsByCurrency[0].Currency)
	assert.InDelta(t, 15000.0, analytics.EarningsByCurrency[0].Amount, 1e-9)
	assert.Equal(t, 1, analytics.Totals.WithEarnings)
}

func TestAnalyticsNoSettledTransactions(t *testing.T) {
	db := newTestDB(t)
	seedInfluencer(t, db, "XYZ999", "0xINFLUENCER")
	seedReferral(t, db, "XYZ999", "0xBB")

	require.NoError(t, db.Create(&models.OffRampTransaction{
		ID: "order-3", MerchantID: "0xBB", Amount: 20, Rate: 130,
		Currency: "KES", Status: models.OrderStatusPending,
	}).Error)

	svc := NewService(db)
	analytics, err := svc.AnalyticsForCode("XYZ999")
	require.NoError(t, err)

	assert.Equal(t, 1, analytics.ReferralsCount)
	require.Len(t, analytics.ReferredUsers, 1)
	assert.Nil(t, analytics.ReferredUsers[0].FirstSettledTx)
	assert.Nil(t, analytics.ReferredUsers[0].Earning)
	assert.Empty(t, analytics.EarningsByCurrency)
	assert.Equal(t, 0, analytics.Totals.WithEarnings)
}

func TestAnalyticsUnknownCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.AnalyticsForCode("NOPE")
	assert.ErrorIs(t, err, ErrInfluencerNotFound)
}

func TestFirstSettledPicksEarliest(t *testing.T) {
	base := time.Now()
	txs := []models.OffRampTransaction{
		{ID: "a", Status: models.OrderStatusSettled, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "b", Status: models.OrderStatusExpired, CreatedAt: base},
		{ID: "c", Status: models.OrderStatusSettled, CreatedAt: base.Add(time.Hour)},
	}

	first := FirstSettled(txs)
	require.NotNil(t, first)
	assert.Equal(t, "c", first.ID)

	assert.Nil(t, FirstSettled(nil))
	assert.Nil(t, FirstSettled([]models.OffRampTransaction{{ID: "d", Status: models.OrderStatusRefunded}}))
}

func TestRound8(t *testing.T) {
	assert.Equal(t, 0.12345679, Round8(0.123456789))
	assert.Equal(t, 15000.0, Round8(CommissionRate*100*1500))
}

func TestComputeEarningsMultiCurrency(t *testing.T) {
	users := []models.User{
		{ID: 1, Wallet: "0x01"},
		{ID: 2, Wallet: "0x02"},
		{ID: 3, Wallet: "0x03"},
	}
	referrals := []models.Referral{
		{InfluencerCode: "C", UserID: 1, User: users[0]},
		{InfluencerCode: "C", UserID: 2, User: users[1]},
		{InfluencerCode: "C", UserID: 3, User: users[2]},
	}
	txs := []models.OffRampTransaction{
		{ID: "t1", MerchantID: "0x01", Amount: 100, Rate: 1500, Currency: "NGN", Status: models.OrderStatusSettled},
		{ID: "t2", MerchantID: "0x02", Amount: 10, Rate: 130, Currency: "KES", Status: models.OrderStatusSettled},
		// wallet 0x03 never settles
		{ID: "t3", MerchantID: "0x03", Amount: 5, Rate: 100, Currency: "NGN", Status: models.OrderStatusRefunded},
	}

	referred, byCurrency, totals := computeEarnings(referrals, txs)

	assert.Len(t, referred, 3)
	require.Len(t, byCurrency, 2)
	assert.Equal(t, "KES", byCurrency[0].Currency)
	assert.InDelta(t, 130.0, byCurrency[0].Amount, 1e-9)
	assert.Equal(t, "NGN", byCurrency[1].Currency)
	assert.InDelta(t, 15000.0, byCurrency[1].Amount, 1e-9)

	assert.Equal(t, 3, totals.Referrals)
	assert.Equal(t, 2, totals.WithEarnings)
}

func TestPlatformRollupExcludesUnmappedWallets(t *testing.T) {
	db := newTestDB(t)
	seedInfluencer(t, db, "AAA111", "0xINF1")
	seedReferral(t, db, "AAA111", "0xREF1")

	// Organic merchant with no referral mapping.
	require.NoError(t, db.Create(&models.User{Wallet: "0xORGANIC", PrivyUserID: "privy-organic"}).Error)

	require.NoError(t, db.Create(&models.OffRampTransaction{
		ID: "o1", MerchantID: "0xREF1", Amount: 100, Rate: 1500,
		Currency: "NGN", Status: models.OrderStatusSettled,
	}).Error)
	require.NoError(t, db.Create(&models.OffRampTransaction{
		ID: "o2", MerchantID: "0xORGANIC", Amount: 999, Rate: 1500,
		Currency: "NGN", Status: models.OrderStatusSettled,
	}).Error)

	svc := NewService(db)
	rollup, err := svc.PlatformRollup()
	require.NoError(t, err)

	require.Len(t, rollup.Influencers, 1)
	assert.Equal(t, "AAA111", rollup.Influencers[0].Code)
	require.Len(t, rollup.Volume, 1)
	assert.Equal(t, 1, rollup.Volume[0].Count)
	assert.InDelta(t, 150000.0, rollup.Volume[0].Volume, 1e-9)

	require.Len(t, rollup.Commission, 1)
	assert.InDelta(t, 15000.0, rollup.Commission[0].Amount, 1e-9)
}
