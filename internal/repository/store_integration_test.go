//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/role-auth/internal/model"
)

// Integration tests run with -tags integration and need
// ROLE_AUTH_TEST_MONGO_URI and/or ROLE_AUTH_TEST_REDIS_ADDR.

func mongoStores(t *testing.T) Stores {
	t.Helper()
	uri := os.Getenv("ROLE_AUTH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ROLE_AUTH_TEST_MONGO_URI is not set; skipping Mongo integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("role_auth_test_" + uuid.NewString()[:8])
	require.NoError(t, EnsureMongoIndexes(ctx, db))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return NewMongoStores(client, db)
}

func TestMongoStores_UserLifecycle(t *testing.T) {
	s := mongoStores(t)
	ctx := context.Background()

	u, err := s.Users.Create(ctx, model.User{Email: "a@x.io", Name: "Ann", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = s.Users.Create(ctx, model.User{Email: "a@x.io"})
	assert.ErrorIs(t, err, ErrDuplicate)

	stale := u
	u.Roles = []string{"admin"}
	u, err = s.Users.Update(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.Version)

	_, err = s.Users.Update(ctx, stale)
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := s.Users.GetByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, got.Roles)

	_, err = s.Users.GetByID(ctx, "not-an-object-id")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Users.Delete(ctx, u.ID))
	assert.ErrorIs(t, s.Users.Delete(ctx, u.ID), ErrNotFound)
}

func TestMongoStores_Tokens(t *testing.T) {
	s := mongoStores(t)
	ctx := context.Background()

	u, err := s.Users.Create(ctx, model.User{Email: "a@x.io"})
	require.NoError(t, err)

	_, err = s.Tokens.Put(ctx, "t1", u.ID)
	require.NoError(t, err)
	_, err = s.Tokens.Put(ctx, "t2", u.ID)
	require.NoError(t, err)
	_, err = s.Tokens.Put(ctx, "t1", u.ID)
	assert.ErrorIs(t, err, ErrDuplicate)

	n, err := s.Tokens.DeleteByOwner(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.Tokens.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedTokenRepo_RevocationIsImmediate(t *testing.T) {
	addr := os.Getenv("ROLE_AUTH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ROLE_AUTH_TEST_REDIS_ADDR is not set; skipping Redis integration test")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(ctx).Err())
	t.Cleanup(func() { _ = rdb.Close() })

	prefix := "test-" + uuid.NewString()[:8]
	backing := NewMemoryStore().Stores().Tokens
	cached := NewCachedTokenRepo(backing, rdb, time.Minute, prefix, nil)

	_, err := cached.Put(ctx, "t1", "u1")
	require.NoError(t, err)
	_, err = cached.Put(ctx, "t2", "u1")
	require.NoError(t, err)

	// Warm the cache.
	_, err = cached.Get(ctx, "t1")
	require.NoError(t, err)
	_, err = cached.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rdb.Exists(ctx, cached.tokenKey("t1")).Val())

	_, err = cached.Delete(ctx, "t1")
	require.NoError(t, err)
	_, err = cached.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = cached.DeleteByOwner(ctx, "u1")
	require.NoError(t, err)
	_, err = cached.Get(ctx, "t2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, rdb.Exists(ctx, cached.ownerKey("u1")).Val())
}
