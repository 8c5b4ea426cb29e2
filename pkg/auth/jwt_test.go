package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	cfg := JWTConfig{SecretKey: secret, Issuer: "romulus", RolesClaim: "groups"}
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name      string
		token     func(t *testing.T) string
		wantErr   error
		wantUser  string
		wantRoles []string
	}{
		{
			name: "valid with roles list",
			token: func(t *testing.T) string {
				return "Bearer " + sign(t, secret, jwt.MapClaims{"sub": "5", "iss": "romulus", "exp": future, "groups": []string{"WRITE", "ADMIN"}})
			},
			wantUser:  "5",
			wantRoles: []string{"WRITE", "ADMIN"},
		},
		{
			name: "space separated roles",
			token: func(t *testing.T) string {
				return sign(t, secret, jwt.MapClaims{"sub": "5", "iss": "romulus", "exp": future, "groups": "WRITE ADMIN"})
			},
			wantUser:  "5",
			wantRoles: []string{"WRITE", "ADMIN"},
		},
		{
			name: "no roles",
			token: func(t *testing.T) string {
				return sign(t, secret, jwt.MapClaims{"sub": "5", "iss": "romulus", "exp": future})
			},
			wantUser: "5",
		},
		{
			name:    "missing",
			token:   func(t *testing.T) string { return "Bearer " },
			wantErr: ErrMissingToken,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return sign(t, secret, jwt.MapClaims{"sub": "5", "iss": "romulus", "exp": past})
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "wrong key",
			token: func(t *testing.T) string {
				return sign(t, "other", jwt.MapClaims{"sub": "5", "iss": "romulus", "exp": future})
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				return sign(t, secret, jwt.MapClaims{"sub": "5", "iss": "someone", "exp": future})
			},
			wantErr: ErrInvalidClaims,
		},
		{
			name: "no subject",
			token: func(t *testing.T) string {
				return sign(t, secret, jwt.MapClaims{"iss": "romulus", "exp": future})
			},
			wantErr: ErrInvalidClaims,
		},
		{
			name: "malformed roles",
			token: func(t *testing.T) string {
				return sign(t, secret, jwt.MapClaims{"sub": "5", "iss": "romulus", "exp": future, "groups": []int{1}})
			},
			wantErr: ErrInvalidClaims,
		},
		{
			name:    "garbage",
			token:   func(t *testing.T) string { return "not.a.token" },
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := validator.ValidateToken(tt.token(t))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, claims.UserID)
			assert.Equal(t, tt.wantRoles, claims.Roles)
		})
	}
}

func TestGenerateToken_RoundTrip(t *testing.T) {
	cfg := JWTConfig{SecretKey: secret, Issuer: "romulus", Audience: "taxonomy"}
	generator, err := NewJWTGenerator(cfg, time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	token, err := generator.GenerateToken("7", "seven@example.com", []string{"WRITE"})
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, &Claims{UserID: "7", Email: "seven@example.com", Roles: []string{"WRITE"}}, claims)
}

func TestNewJWTValidator_RequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
	_, err = NewJWTGenerator(JWTConfig{}, time.Hour)
	assert.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	_, err := GetClaimsFromContext(context.Background())
	assert.Error(t, err)

	ctx := SetClaimsInContext(context.Background(), &Claims{UserID: "5"})
	claims, err := GetClaimsFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5", claims.UserID)
}
