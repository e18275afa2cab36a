package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenRepository issues and redeems single-use delete confirmation tokens
// backed by Redis. Tokens are scoped to one record and one actor so a token
// minted for one deletion cannot confirm another.
type TokenRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenRepository constructs the repository.
func NewTokenRepository(client *redis.Client, ttl time.Duration) *TokenRepository {
	return &TokenRepository{client: client, ttl: ttl}
}

func deleteTokenKey(classID int64, actorID string) string {
	return fmt.Sprintf("lir:delete-token:%d:%s", classID, actorID)
}

// redeemScript deletes the key only when the presented token matches, so a
// wrong guess does not burn the token the owner is still holding.
var redeemScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Issue mints a fresh token for the given record and actor, replacing any
// token already outstanding for the pair.
func (r *TokenRepository) Issue(ctx context.Context, classID int64, actorID string) (string, time.Time, error) {
	token := uuid.NewString()

	if err := r.client.Set(ctx, deleteTokenKey(classID, actorID), token, r.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("store delete token: %w", err)
	}
	return token, time.Now().Add(r.ttl), nil
}

// Redeem consumes the token for the given record and actor. The compare and
// delete happen atomically server-side, so a token confirms at most one
// deletion and a mismatched token leaves the stored one intact.
func (r *TokenRepository) Redeem(ctx context.Context, classID int64, actorID, token string) (bool, error) {
	removed, err := redeemScript.Run(ctx, r.client, []string{deleteTokenKey(classID, actorID)}, token).Int()
	if err != nil {
		return false, fmt.Errorf("redeem delete token: %w", err)
	}
	return removed == 1, nil
}
