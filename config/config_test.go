package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("REFERRAL_BONUS_FC", "")
	t.Setenv("FC_EXCHANGE_RATE", "")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, int64(100), cfg.ReferralBonusFC)
	assert.True(t, cfg.FCExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 3, cfg.TxMaxRetries)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("REFERRAL_BONUS_FC", "250")
	t.Setenv("FC_EXCHANGE_RATE", "0.75")
	t.Setenv("LIST_PAGE_SIZE", "10")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, int64(250), cfg.ReferralBonusFC)
	assert.True(t, cfg.FCExchangeRate.Equal(decimal.RequireFromString("0.75")))
	assert.Equal(t, 10, cfg.ListPageSize)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	t.Run("negative referral bonus", func(t *testing.T) {
		t.Setenv("REFERRAL_BONUS_FC", "-5")
		_, err := load()
		assert.Error(t, err)
	})

	t.Run("non numeric exchange rate", func(t *testing.T) {
		t.Setenv("REFERRAL_BONUS_FC", "")
		t.Setenv("FC_EXCHANGE_RATE", "abc")
		_, err := load()
		assert.Error(t, err)
	})
}

func TestLoad_RequiresDatabaseURLOutsideTests(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestGetDatabaseURL(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://u:p@localhost:5432", DatabaseName: "fortune"}
	assert.Equal(t, "postgres://u:p@localhost:5432/fortune?sslmode=disable", cfg.GetDatabaseURL())
}
