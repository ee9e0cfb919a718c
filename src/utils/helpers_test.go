package utils

import (
	"testing"
	"time"
	"vbs/src/models"
	"vbs/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMpesaPhone(t *testing.T) {
	assert.True(t, IsMpesaPhone("254712345678"))
	assert.True(t, IsMpesaPhone("254110000000"))
	for _, phone := range []string{"0712345678", "+254712345678", "25471234567", "2547123456789", "255712345678", "254 12345678"} {
		assert.False(t, IsMpesaPhone(phone), phone)
	}
}

func TestDepartureFormats(t *testing.T) {
	assert.True(t, IsDepartureDate("2026-10-17"))
	assert.False(t, IsDepartureDate("17-10-2026"))
	assert.True(t, IsDepartureTime("08:30"))
	assert.False(t, IsDepartureTime("25:00"))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
}

func TestJWT(t *testing.T) {
	user := &models.User{ID: 42, Email: "wanjiru@example.com", Role: types.ROLE_ADMIN}
	token, err := GenerateJWT("s3cret", user, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "wanjiru@example.com", claims.Email)
	assert.Equal(t, types.ROLE_ADMIN, claims.Role)

	_, err = ParseJWT("other", token)
	assert.Error(t, err)

	expired, err := GenerateJWT("s3cret", user, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT("s3cret", expired)
	assert.Error(t, err)
}
