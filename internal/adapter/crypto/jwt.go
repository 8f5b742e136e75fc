package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

var _ primary.JWTService = (*JWTServiceImpl)(nil)

const issuer = "offline-judge"

type judgeClaims struct {
	Permission []string `json:"permission"`
	jwt.RegisteredClaims
}

type JWTServiceImpl struct {
	HMACSecretKey string
	DefaultTTL    time.Duration
}

func NewJWTService(jwtConfig *config.JwtConfig) primary.JWTService {
	return &JWTServiceImpl{
		HMACSecretKey: jwtConfig.Secret,
		DefaultTTL:    jwtConfig.DefaultTTL,
	}
}

// GenerateTokenHMAC signs an HS256 token. A zero ttl falls back to the
// configured default.
func (J JWTServiceImpl) GenerateTokenHMAC(_ context.Context, subject string, permissions []string, ttl time.Duration) (string, time.Time, error) {
	if J.HMACSecretKey == "" {
		return "", time.Time{}, fmt.Errorf("%w: no signing secret configured", errs.ErrGeneratingToken)
	}
	if ttl <= 0 {
		ttl = J.DefaultTTL
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := judgeClaims{
		Permission: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(J.HMACSecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", errs.ErrGeneratingToken, err)
	}
	return signed, expiresAt, nil
}

func (J JWTServiceImpl) VerifyTokenHMAC(_ context.Context, token string) (domain.AuthPayload, error) {
	var claims judgeClaims
	parsedToken, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(J.HMACSecretKey), nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return domain.AuthPayload{}, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return domain.AuthPayload{}, errs.ErrInvalidToken
	}

	return domain.AuthPayload{
		Subject:    claims.Subject,
		Permission: claims.Permission,
	}, nil
}
