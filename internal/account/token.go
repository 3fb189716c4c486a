package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"issuer-agent/pkg/sentinel"
)

// Claims are the JWT claims carried by session tokens.
type Claims struct {
	AccountID string `json:"account_id"`
	Address   string `json:"address"`
	jwt.RegisteredClaims
}

// TokenService creates and validates JWT session tokens. Sessions are a
// convenience layered over the long-lived bearer token: a caller exchanges
// its bearer token for a short-lived session and signs requests with that.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewTokenService(signingKey string, ttl time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     "issuer-agent",
		ttl:        ttl,
	}
}

// GenerateSessionToken signs a session token for the account.
func (s *TokenService) GenerateSessionToken(a *Account) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: a.ID.String(),
		Address:   a.Address,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ValidateSessionToken parses and verifies a session token.
func (s *TokenService) ValidateSessionToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("session expired: %w", sentinel.ErrUnauthorized)
		}
		return nil, fmt.Errorf("invalid session token: %w", sentinel.ErrUnauthorized)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid session claims: %w", sentinel.ErrUnauthorized)
	}
	return claims, nil
}
