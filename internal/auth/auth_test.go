package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/vehicle-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestUser() *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Username: "testuser",
	}
}

func TestNewService(t *testing.T) {
	service := NewService("", 0)
	assert.NotNil(t, service)
	assert.NotEmpty(t, service.jwtSecret)
	assert.Equal(t, 24*time.Hour, service.tokenExp)

	service = NewService("s3cret", time.Hour)
	assert.Equal(t, []byte("s3cret"), service.jwtSecret)
	assert.Equal(t, time.Hour, service.tokenExp)
}

func TestService_HashPassword(t *testing.T) {
	service := NewService("", 0)

	password := "testpassword123"
	hash, err := service.HashPassword(password)

	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)
	assert.True(t, service.CheckPassword(password, hash))
	assert.False(t, service.CheckPassword("wrongpassword", hash))
}

func TestService_ValidateToken(t *testing.T) {
	service := NewService("", 0)
	user := newTestUser()

	token, err := service.GenerateToken(user)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, "testuser", claims.OwnerID())

	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)
}

func TestService_ValidateToken_WrongSecret(t *testing.T) {
	issuer := NewService("issuer-secret", time.Hour)
	verifier := NewService("other-secret", time.Hour)

	token, err := issuer.GenerateToken(newTestUser())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	service := NewService("", time.Hour)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return issued }

	token, err := service.GenerateToken(newTestUser())
	require.NoError(t, err)

	service.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ValidateToken_MissingUsername(t *testing.T) {
	service := NewService("", time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "abc",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(service.jwtSecret)
	require.NoError(t, err)

	_, err = service.ValidateToken(signed)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := NewService("", 0)

	extracted, err := service.ExtractTokenFromHeader("Bearer valid-token")
	assert.NoError(t, err)
	assert.Equal(t, "valid-token", extracted)

	for _, header := range []string{"", "InvalidFormat", "Bearer ", "Basic abc"} {
		_, err = service.ExtractTokenFromHeader(header)
		assert.Equal(t, ErrInvalidToken, err, header)
	}
}

func TestService_ValidatePassword(t *testing.T) {
	service := NewService("", 0)

	assert.NoError(t, service.ValidatePassword("validpassword123"))

	err := service.ValidatePassword("short")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8 characters")
}

func TestService_ValidateEmail(t *testing.T) {
	service := NewService("", 0)

	assert.NoError(t, service.ValidateEmail("test@example.com"))

	for _, bad := range []string{"testexample.com", "test@", "test", "@example.com", "a.b@example"} {
		err := service.ValidateEmail(bad)
		assert.Error(t, err, bad)
	}
}

func TestService_ValidateUsername(t *testing.T) {
	service := NewService("", 0)

	assert.NoError(t, service.ValidateUsername("testuser"))

	err := service.ValidateUsername("ab")
	assert.Contains(t, err.Error(), "at least 3 characters")

	err = service.ValidateUsername(strings.Repeat("a", 51))
	assert.Contains(t, err.Error(), "less than 50 characters")

	for _, bad := range []string{"has_underscore", "has/slash", "has space"} {
		assert.Error(t, service.ValidateUsername(bad), bad)
	}
}

func TestService_GenerateRefreshToken(t *testing.T) {
	service := NewService("", 0)

	token, err := service.GenerateRefreshToken()
	assert.NoError(t, err)
	assert.Len(t, token, 44) // base64 of 32 bytes

	other, err := service.GenerateRefreshToken()
	assert.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestService_TokenExpiration(t *testing.T) {
	service := NewService("", 0)

	token, _ := service.GenerateToken(newTestUser())

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)

	now := time.Now().Unix()
	assert.Greater(t, claims.Exp, now)
	assert.LessOrEqual(t, claims.Exp, now+int64(service.tokenExp.Seconds())+1)
}
