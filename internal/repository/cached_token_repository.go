package repository

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/role-auth/internal/model"
)

// CachedTokenRepo is a read-through Redis cache in front of another
// TokenStore.  Only positive lookups are cached.  Every delete goes to
// the backing store first and then drops the affected cache keys, so a
// revoked token stops resolving as soon as the delete returns.
//
// Each user has a Redis set listing the cache keys of their tokens so
// DeleteByOwner can invalidate without scanning.
type CachedTokenRepo struct {
	next   TokenStore
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

func NewCachedTokenRepo(next TokenStore, rdb *redis.Client, ttl time.Duration, prefix string, log *slog.Logger) *CachedTokenRepo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if prefix == "" {
		prefix = "tokens"
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedTokenRepo{next: next, rdb: rdb, ttl: ttl, prefix: prefix, log: log}
}

func (r *CachedTokenRepo) tokenKey(token string) string {
	sum := sha1.Sum([]byte(token))
	return fmt.Sprintf("%s:token:%x", r.prefix, sum[:])
}

func (r *CachedTokenRepo) ownerKey(userID string) string {
	return r.prefix + ":owner:" + userID
}

func (r *CachedTokenRepo) Put(ctx context.Context, token, userID string) (model.AccessToken, error) {
	return r.next.Put(ctx, token, userID)
}

func (r *CachedTokenRepo) Get(ctx context.Context, token string) (model.AccessToken, error) {
	key := r.tokenKey(token)
	bs, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t model.AccessToken
		if json.Unmarshal(bs, &t) == nil && t.Token == token {
			return t, nil
		}
	case !errors.Is(err, redis.Nil):
		r.log.Warn("token cache read failed", "err", err)
	}

	t, err := r.next.Get(ctx, token)
	if err != nil {
		return model.AccessToken{}, err
	}
	if payload, err := json.Marshal(t); err == nil {
		pipe := r.rdb.TxPipeline()
		pipe.SetEx(ctx, key, payload, r.ttl)
		pipe.SAdd(ctx, r.ownerKey(t.UserID), key)
		pipe.Expire(ctx, r.ownerKey(t.UserID), r.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			r.log.Warn("token cache write failed", "err", err)
		}
	}
	return t, nil
}

func (r *CachedTokenRepo) Delete(ctx context.Context, token string) (int64, error) {
	n, err := r.next.Delete(ctx, token)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return n, err
	}
	if cerr := r.rdb.Del(ctx, r.tokenKey(token)).Err(); cerr != nil {
		r.log.Warn("token cache invalidation failed", "err", cerr)
	}
	return n, err
}

func (r *CachedTokenRepo) DeleteByOwner(ctx context.Context, userID string) (int64, error) {
	n, err := r.next.DeleteByOwner(ctx, userID)
	if err != nil {
		return n, err
	}
	owner := r.ownerKey(userID)
	keys, cerr := r.rdb.SMembers(ctx, owner).Result()
	if cerr != nil {
		r.log.Warn("token cache invalidation failed", "user_id", userID, "err", cerr)
		return n, nil
	}
	if cerr := r.rdb.Del(ctx, append(keys, owner)...).Err(); cerr != nil {
		r.log.Warn("token cache invalidation failed", "user_id", userID, "err", cerr)
	}
	return n, nil
}
