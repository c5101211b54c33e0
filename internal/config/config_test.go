package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communahq/communa/internal/money"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_USER", "communa")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "communa")
}

func TestNewDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(500), cfg.Fees.PlatformFeeBps)
	assert.Equal(t, int64(290), cfg.Fees.ProcessorFeeBps)
	assert.Equal(t, int64(30), cfg.Fees.ProcessorFeeFixed)
	assert.Equal(t, money.USD, cfg.Fees.DefaultCurrency)
}

func TestNewFeeOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PLATFORM_FEE_BPS", "750")
	t.Setenv("PROCESSOR_FEE_FIXED", "0")
	t.Setenv("DEFAULT_CURRENCY", "JPY")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, int64(750), cfg.Fees.PlatformFeeBps)
	assert.Equal(t, int64(0), cfg.Fees.ProcessorFeeFixed)
	assert.Equal(t, money.JPY, cfg.Fees.DefaultCurrency)
}

func TestNewRejectsUnknownCurrency(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DEFAULT_CURRENCY", "XXX")

	_, err := New()
	assert.Error(t, err)
}

func TestNewRejectsMissingPostgresUser(t *testing.T) {
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "communa")

	_, err := New()
	assert.Error(t, err)
}
