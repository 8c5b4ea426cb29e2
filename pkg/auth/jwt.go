package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// DefaultRolesClaim is the claim roles are read from unless configured otherwise
const DefaultRolesClaim = "roles"

// Claims is what the API needs from a token: the caller and their roles
type Claims struct {
	UserID string
	Email  string
	Roles  []string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey  string // HS256 shared secret
	Issuer     string // Expected issuer, checked when set
	Audience   string // Expected audience, checked when set
	RolesClaim string // Claim holding the caller's roles
}

// JWTValidator handles JWT validation
type JWTValidator struct {
	secretKey  []byte
	parser     *jwt.Parser
	rolesClaim string
}

// NewJWTValidator creates a new HS256 JWT validator
func NewJWTValidator(config JWTConfig) (*JWTValidator, error) {
	if config.SecretKey == "" {
		return nil, errors.New("secret key required for HS256")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTValidator{
		secretKey:  []byte(config.SecretKey),
		parser:     jwt.NewParser(opts...),
		rolesClaim: rolesClaim(config.RolesClaim),
	}, nil
}

// ValidateToken validates a JWT token and returns the claims
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := v.parser.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secretKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	subject, err := mapClaims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%w: missing user ID", ErrInvalidClaims)
	}

	claims := &Claims{UserID: subject}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	roles, err := stringList(mapClaims[v.rolesClaim])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidClaims, v.rolesClaim, err)
	}
	claims.Roles = roles
	return claims, nil
}

// JWTGenerator issues HS256 tokens in the shape JWTValidator accepts
type JWTGenerator struct {
	secretKey  []byte
	issuer     string
	audience   string
	rolesClaim string
	expiryTime time.Duration
}

// NewJWTGenerator creates a new JWT generator
func NewJWTGenerator(config JWTConfig, expiryTime time.Duration) (*JWTGenerator, error) {
	if config.SecretKey == "" {
		return nil, errors.New("secret key required for HS256")
	}
	return &JWTGenerator{
		secretKey:  []byte(config.SecretKey),
		issuer:     config.Issuer,
		audience:   config.Audience,
		rolesClaim: rolesClaim(config.RolesClaim),
		expiryTime: expiryTime,
	}, nil
}

// GenerateToken generates a new JWT token
func (g *JWTGenerator) GenerateToken(userID, email string, roles []string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        userID,
		"iat":        jwt.NewNumericDate(now),
		"nbf":        jwt.NewNumericDate(now),
		"exp":        jwt.NewNumericDate(now.Add(g.expiryTime)),
		"jti":        uuid.NewString(),
		g.rolesClaim: roles,
	}
	if email != "" {
		claims["email"] = email
	}
	if g.issuer != "" {
		claims["iss"] = g.issuer
	}
	if g.audience != "" {
		claims["aud"] = g.audience
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secretKey)
}

// contextKey keys the values this package puts in a context
type contextKey string

const claimsContextKey contextKey = "claims"

// GetClaimsFromContext extracts the caller's claims from context
func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, errors.New("claims not found in context")
	}
	return claims, nil
}

// SetClaimsInContext adds the caller's claims to context
func SetClaimsInContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func rolesClaim(name string) string {
	if name == "" {
		return DefaultRolesClaim
	}
	return name
}

// stringList accepts a JSON array of strings or a single space separated
// string, as some issuers emit scopes that way
func stringList(v interface{}) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Fields(val), nil
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}
