package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	service := NewAuthService(AuthConfig{Secret: "test-secret", Issuer: "campus-booking"}, nil)

	token, expiresAt, err := service.IssueToken(models.NewLecturerActor("user-1", "lect-1"))
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleLecturer, claims.Role)
	assert.Equal(t, "lect-1", claims.ProfileID)

	actor := claims.Actor()
	require.NotNil(t, actor.Lecturer)
	assert.Equal(t, "lect-1", actor.Lecturer.LecturerID)
}

func TestAuthServiceValidateRejectsWrongSecret(t *testing.T) {
	minter := NewAuthService(AuthConfig{Secret: "other-secret"}, nil)
	service := NewAuthService(AuthConfig{Secret: "test-secret"}, nil)

	token, _, err := minter.IssueToken(models.NewStudentActor("user-1", "student-1"))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceValidateRejectsExpiredToken(t *testing.T) {
	service := NewAuthService(AuthConfig{Secret: "test-secret"}, nil)

	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	require.Error(t, err)
}

func TestAuthServiceValidateRejectsUnknownRole(t *testing.T) {
	service := NewAuthService(AuthConfig{Secret: "test-secret"}, nil)

	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   "JANITOR",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
