package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"karmafeed/internal/config"
	"karmafeed/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func stubConnect(t *testing.T, fn func(*config.Config) (*gorm.DB, error)) {
	t.Helper()
	prev, prevInterval := connect, retryInitialInterval
	connect, retryInitialInterval = fn, time.Millisecond
	t.Cleanup(func() { connect, retryInitialInterval = prev, prevInterval })
}

func TestConnectWithRetry_RecoversAfterFailures(t *testing.T) {
	calls := 0
	stubConnect(t, func(*config.Config) (*gorm.DB, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return database.Open(sqlite.Open("file::memory:"))
	})

	db, err := ConnectWithRetry(context.Background(), &config.Config{DBConnectRetries: 5})
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, 3, calls)
}

func TestConnectWithRetry_GivesUp(t *testing.T) {
	calls := 0
	stubConnect(t, func(*config.Config) (*gorm.DB, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	_, err := ConnectWithRetry(context.Background(), &config.Config{DBConnectRetries: 1})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestConnectWithRetry_CancelledContext(t *testing.T) {
	calls := 0
	stubConnect(t, func(*config.Config) (*gorm.DB, error) {
		calls++
		return nil, errors.New("unreachable")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConnectWithRetry(ctx, &config.Config{DBConnectRetries: 5})
	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestInitRuntime_SQLite(t *testing.T) {
	cfg := &config.Config{
		Env:          "test",
		DBDriver:     "sqlite",
		DBSQLitePath: t.TempDir() + "/feed.db",
	}

	db, rdb, err := InitRuntime(context.Background(), cfg, Options{ApplySchema: true, SkipRedis: true})
	require.NoError(t, err)
	assert.Nil(t, rdb)
	assert.True(t, db.Migrator().HasTable("karma_events"))
}
