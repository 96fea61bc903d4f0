// Package auth implements the credential primitives of the backend: access
// tokens (JWT, HS256), password hashing (bcrypt) and single-use password
// reset tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the subject of an access token. IssuedAt is always set;
// the password-freshness check compares against it.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// GenerateToken signs an HS256 token for userID issued at now.
func GenerateToken(userID, email string, secretKey []byte, validityDuration time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
		Email:  email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature, algorithm and expiry at now and returns
// the claims. Expired tokens yield common.ErrTokenExpired, every other
// failure wraps common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte, now time.Time) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" || claims.IssuedAt == nil {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// TokenManager issues and verifies access tokens with a fixed secret and
// lifetime.
type TokenManager struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

func NewTokenManager(secret []byte, validity time.Duration, now func() time.Time) *TokenManager {
	if now == nil {
		now = time.Now
	}
	return &TokenManager{secret: secret, validity: validity, now: now}
}

func (m *TokenManager) Issue(userID, email string) (string, error) {
	return GenerateToken(userID, email, m.secret, m.validity, m.now())
}

func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	return ParseToken(tokenString, m.secret, m.now())
}
