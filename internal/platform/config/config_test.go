package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"MEDBRIDGE_ADDR", "REFERRAL_CODE", "EMAIL_CODE_TTL", "EMAIL_RESEND_COOLDOWN",
		"EMAIL_INSTITUTIONAL_SUFFIX", "SESSION_TTL", "KAFKA_BROKERS", "BIOMETRIC_POLICY",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "DeenDevelopers", cfg.ReferralCode)
	assert.Equal(t, 10*time.Minute, cfg.Email.CodeTTL)
	assert.Equal(t, 60*time.Second, cfg.Email.ResendCooldown)
	assert.Equal(t, 5, cfg.Email.MaxCodeAttempts)
	assert.Equal(t, "nhs.net", cfg.Email.InstitutionalSuffix)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "always_pass", cfg.Biometric.Policy)
	assert.Equal(t, int64(8<<20), cfg.OCR.MaxImageBytes)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MEDBRIDGE_ADDR", ":9999")
	t.Setenv("EMAIL_CODE_TTL", "5m")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("BIOMETRIC_PASS_RATIO", "0.25")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Email.CodeTTL)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.InDelta(t, 0.25, cfg.Biometric.PassRatio, 0.0001)
}
