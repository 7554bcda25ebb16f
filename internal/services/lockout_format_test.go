package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLockoutTime_English(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{-5, "0 seconds"},
		{0, "0 seconds"},
		{1, "1 second"},
		{45, "45 seconds"},
		{59, "59 seconds"},
		{60, "1 minute"},
		{61, "2 minutes"},
		{120, "2 minutes"},
		{900, "15 minutes"},
		{3540, "59 minutes"},
		{3541, "1 hour"},
		{3600, "1 hour"},
		{3601, "2 hours"},
		{7200, "2 hours"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLockoutTime(tt.seconds, "en"), "seconds=%d", tt.seconds)
	}
}

func TestFormatLockoutTime_LocaleFallback(t *testing.T) {
	assert.Equal(t, "2 minutes", FormatLockoutTime(120, ""))
	assert.Equal(t, "2 minutes", FormatLockoutTime(120, "not a locale!"))
	assert.Equal(t, "2 minutes", FormatLockoutTime(120, "en-GB"))
}

func TestFormatLockoutTime_Arabic(t *testing.T) {
	assert.Equal(t, "ثانية واحدة", FormatLockoutTime(1, "ar"))
	assert.Equal(t, "دقيقتان", FormatLockoutTime(120, "ar"))
	assert.Equal(t, "ساعة واحدة", FormatLockoutTime(3600, "ar-EG"))

	assert.Contains(t, FormatLockoutTime(5*60, "ar"), "دقائق")
	assert.Contains(t, FormatLockoutTime(15*60, "ar"), "دقيقة")
}

func TestTooManyRequestsMessage(t *testing.T) {
	assert.Equal(t, "Too many requests. Please wait 30 seconds.", TooManyRequestsMessage(30, "en"))
	assert.Equal(t, "Too many failed login attempts. Please wait 15 minutes.", TooManyAttemptsMessage(900, "en"))
	assert.Contains(t, TooManyRequestsMessage(60, "ar"), "دقيقة واحدة")
}

func TestAccountLockedMessage(t *testing.T) {
	assert.Equal(t, "Account temporarily locked. Try again in 15 minutes.", AccountLockedMessage(900, "en"))
	assert.Contains(t, AccountLockedMessage(900, "ar"), "الحساب مقفل مؤقتاً")
}
