package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims binds a counselor id to a signed, time-limited token. The id is the
// sole domain claim; verification is stateless and never consults the store.
type Claims struct {
	CounselorID int `json:"id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 access tokens. The signing key is
// process-wide configuration, loaded once at startup and never mutated.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue produces a signed token for the given counselor, expiring ttl from now.
func (ts *TokenService) Issue(counselorID int) (string, error) {
	now := time.Now()
	claims := Claims{
		CounselorID: counselorID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the counselor id the token
// was issued for.
func (ts *TokenService) Verify(tokenString string) (int, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	if !token.Valid || claims.CounselorID <= 0 {
		return 0, ErrTokenInvalid
	}
	return claims.CounselorID, nil
}
