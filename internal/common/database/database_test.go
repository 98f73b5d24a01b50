package database

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_Migrate(t *testing.T) {
	t.Run("commits all statements", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS a").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS b").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		client := NewPostgresFromDB(db)
		err = client.Migrate(context.Background(),
			"CREATE TABLE IF NOT EXISTS a (id TEXT)",
			"CREATE TABLE IF NOT EXISTS b (id TEXT)",
		)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS a").WillReturnError(fmt.Errorf("permission denied"))
		mock.ExpectRollback()

		err = NewPostgresFromDB(db).Migrate(context.Background(), "CREATE TABLE IF NOT EXISTS a (id TEXT)")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "migration statement 0")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestElasticsearchClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{server.URL}, APIKey: "key"})
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestRetryWithBackoff(t *testing.T) {
	log := logger.NewTestLogger(t)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return fmt.Errorf("not yet")
			}
			return nil
		}, 5, time.Millisecond, log, "test op")
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(context.Background(), func() error {
			attempts++
			return fmt.Errorf("down")
		}, 3, time.Millisecond, log, "test op")
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
		assert.Contains(t, err.Error(), "failed after 3 attempts")
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryWithBackoff(ctx, func() error { return fmt.Errorf("down") }, 10, time.Hour, log, "test op")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
