package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func newTestManager() (*Manager, *mockStore) {
	store := newMockStore()
	return &Manager{store: store, keyer: store, ttl: time.Hour}, store
}

func TestManagerStartAndRotate(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	userID := uuid.New()

	sess, err := manager.Start(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, sess.UserID)
	assert.Equal(t, userID.String()+"."+sess.RefreshToken, store.data[store.AccessSessionKey(sess.AccessID)])

	_, err = manager.Rotate(ctx, sess.AccessID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	next, err := manager.Rotate(ctx, sess.AccessID, sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, userID, next.UserID)
	assert.NotEqual(t, sess.AccessID, next.AccessID)
	_, exists := store.data[store.AccessSessionKey(sess.AccessID)]
	assert.False(t, exists, "old access key left behind")

	_, err = manager.Rotate(ctx, sess.AccessID, sess.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "a refresh token is single use")
}

func TestManagerRevokeAndHasSession(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()

	sess, err := manager.Start(ctx, uuid.New())
	require.NoError(t, err)

	ok, err := manager.HasSession(ctx, sess.AccessID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, sess.AccessID))
	ok, err = manager.HasSession(ctx, sess.AccessID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = manager.HasSession(ctx, " ")
	assert.Error(t, err)
}

func TestManagerRejectsCorruptValue(t *testing.T) {
	manager, store := newTestManager()
	store.data[store.AccessSessionKey("a1")] = "not-a-session"
	_, err := manager.Rotate(context.Background(), "a1", "not-a-session")
	assert.True(t, errors.Is(err, ErrInvalidRefreshToken))
}

func TestManagerStartRequiresUser(t *testing.T) {
	manager, _ := newTestManager()
	_, err := manager.Start(context.Background(), uuid.Nil)
	assert.Error(t, err)
}
