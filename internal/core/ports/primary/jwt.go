package primary

import (
	"context"
	"time"

	"gitlab.com/offlinejudge.net/internal/domain"
)

type JWTService interface {
	GenerateTokenHMAC(ctx context.Context, subject string, permissions []string, ttl time.Duration) (string, time.Time, error)
	VerifyTokenHMAC(ctx context.Context, token string) (domain.AuthPayload, error)
}
