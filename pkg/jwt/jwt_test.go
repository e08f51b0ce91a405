package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewJWTManager(t *testing.T) {
	secret := "test-secret-key-for-testing-purposes"
	accessExpiry := 15 * time.Minute

	manager := NewJWTManager(secret, accessExpiry)

	assert.NotNil(t, manager)
	assert.Equal(t, secret, manager.secretKey)
	assert.Equal(t, accessExpiry, manager.accessTokenDuration)
}

func TestGenerateAccessToken(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)

	token, err := manager.GenerateAccessToken(42, "sgt.pepper", "user")

	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestValidateToken_ValidToken(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)

	token, err := manager.GenerateAccessToken(42, "sgt.pepper", "user")
	assert.NoError(t, err)

	claims, err := manager.ValidateToken(token)

	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "sgt.pepper", claims.Username)
	assert.Equal(t, "user", claims.Role)
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	// Create manager with very short expiry
	manager := NewJWTManager("test-secret", 1*time.Nanosecond)

	token, err := manager.GenerateAccessToken(42, "sgt.pepper", "user")
	assert.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	claims, err := manager.ValidateToken(token)

	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)
	otherManager := NewJWTManager("other-secret", 15*time.Minute)

	token, err := manager.GenerateAccessToken(42, "sgt.pepper", "user")
	assert.NoError(t, err)

	claims, err := otherManager.ValidateToken(token)

	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidateToken_Garbage(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)

	claims, err := manager.ValidateToken("not-a-token")

	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestExtractUserID(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)

	token, err := manager.GenerateAccessToken(7, "cpl.hicks", "user")
	assert.NoError(t, err)

	userID, err := manager.ExtractUserID(token)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}
