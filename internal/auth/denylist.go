// internal/auth/denylist.go
// Durable token denylist: Postgres is authoritative so a process restart
// never re-admits revoked tokens; Redis fronts the hot read path with a
// TTL matching the token's remaining lifetime.

package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sangamhq/sangam-backend/internal/common/logger"
)

const denylistKeyPrefix = "revoked:"

type Denylist struct {
	repo  Repository
	redis *redis.Client // optional; nil disables the cache layer
}

func NewDenylist(repo Repository, redisClient *redis.Client) *Denylist {
	return &Denylist{repo: repo, redis: redisClient}
}

// Revoke records the token identifier until the token's own expiry.
// The durable row is written first; the cache entry is best-effort.
func (d *Denylist) Revoke(ctx context.Context, userID int64, tokenID string, expiresAt time.Time) error {
	entry := &RevokedToken{
		TokenID:   tokenID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	if err := d.repo.RevokeToken(ctx, entry); err != nil {
		return err
	}

	if d.redis != nil {
		ttl := time.Until(expiresAt)
		if ttl > 0 {
			if err := d.redis.Set(ctx, denylistKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
				logger.Warn("denylist cache write failed", "token_id", tokenID, "error", err)
			}
		}
	}

	return nil
}

// IsRevoked checks the cache first, then falls back to the store.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	if d.redis != nil {
		n, err := d.redis.Exists(ctx, denylistKeyPrefix+tokenID).Result()
		if err == nil && n > 0 {
			return true, nil
		}
		// cache miss or redis error: fall through to the store
	}

	return d.repo.IsTokenRevoked(ctx, tokenID)
}
