package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/taskflow-api/internal/database"
	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

// stepClock returns a clock that advances one second per call so rows get
// distinct, ordered timestamps.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestUserService(t *testing.T, db *sql.DB, events EventServiceProvider) *UserService {
	t.Helper()
	s := NewUserService(db, events, WithHashCost(bcrypt.MinCost))
	s.now = stepClock()
	return s
}

func mustCreateUser(t *testing.T, s *UserService, name, email string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, email, "secret1")
	require.NoError(t, err)
	return u
}

type recordedNotification struct {
	userID string
	action string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (f *fakeNotifier) NotifyUser(userID, action string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recordedNotification{userID: userID, action: action})
}

type memoryCache struct {
	entries map[string]models.TaskStats
	evicted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]models.TaskStats{}}
}

func (c *memoryCache) Get(_ context.Context, userID string) (models.TaskStats, bool) {
	s, ok := c.entries[userID]
	return s, ok
}

func (c *memoryCache) Set(_ context.Context, userID string, stats models.TaskStats) {
	c.entries[userID] = stats
}

func (c *memoryCache) Evict(_ context.Context, userID string) {
	delete(c.entries, userID)
	c.evicted = append(c.evicted, userID)
}
