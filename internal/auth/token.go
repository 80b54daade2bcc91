package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/recruit/pkg/models"
)

// Claims carried by access tokens.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewIssuer(secret string, duration time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), duration: duration, now: time.Now}
}

// Issue returns a signed token for the account.
func (i *Issuer) Issue(a *models.Account) (string, error) {
	if a == nil {
		return "", errors.New("account is nil")
	}
	now := i.now()
	claims := Claims{
		Role: a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", a.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.duration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies token and returns the caller it identifies.
func (i *Issuer) Parse(token string) (Caller, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return Caller{}, err
	}
	if !tok.Valid {
		return Caller{}, errors.New("invalid token")
	}
	if !claims.Role.Valid() {
		return Caller{}, fmt.Errorf("invalid role claim %q", claims.Role)
	}

	var id int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &id); err != nil || id <= 0 {
		return Caller{}, fmt.Errorf("invalid subject claim %q", claims.Subject)
	}

	return Caller{AccountID: id, Role: claims.Role}, nil
}
