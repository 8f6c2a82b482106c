package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresGatewaySecrets(t *testing.T) {
	t.Setenv("ESEWA_PRODUCT_CODE", "")
	t.Setenv("ESEWA_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ESEWA_PRODUCT_CODE")

	t.Setenv("ESEWA_PRODUCT_CODE", "EPAYTEST")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ESEWA_SECRET_KEY")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ESEWA_PRODUCT_CODE", "EPAYTEST")
	t.Setenv("ESEWA_SECRET_KEY", "8gBm/:&EnhH.1/q")
	t.Setenv("APP_ENV", "development")
	t.Setenv("PAYMENT_TIMEOUT_MINUTES", "")
	t.Setenv("ESEWA_STATUS_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "EPAYTEST", cfg.Esewa.ProductCode)
	assert.Equal(t, 30, cfg.Jobs.PaymentTimeoutMinutes)
	assert.Equal(t, 5*time.Second, cfg.Esewa.StatusTimeout)
}

func TestValidate_ProductionNeedsRealJWTSecret(t *testing.T) {
	cfg := &Config{
		App:   AppConfig{Environment: "production"},
		JWT:   JWTConfig{Secret: "your-secret-key-change-in-production"},
		Esewa: EsewaConfig{ProductCode: "EPAYTEST", SecretKey: "k"},
		Jobs:  JobConfig{PaymentTimeoutMinutes: 30},
	}

	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "real"
	cfg.Database.Password = "pw"
	assert.NoError(t, cfg.Validate())
}
