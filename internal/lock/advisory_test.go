package lock

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlmock.Sqlmock, *AdvisoryLock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &mock, NewAdvisoryLock(db, "depcrawl:crawl:test")
}

func expectAcquire(mock sqlmock.Sqlmock, status int64) {
	mock.ExpectQuery("sp_getapplock").
		WithArgs("depcrawl:crawl:test", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{""}).AddRow(status))
}

func expectRelease(mock sqlmock.Sqlmock, status int64) {
	mock.ExpectQuery("sp_releaseapplock").
		WithArgs("depcrawl:crawl:test").
		WillReturnRows(sqlmock.NewRows([]string{""}).AddRow(status))
}

func TestAcquireLock(t *testing.T) {
	mock, lock := newMockDB(t)
	expectAcquire(*mock, 0)

	acquired, err := lock.AcquireLock(context.Background(), TimeoutShort)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, lock.IsHeld())
}

func TestAcquireLock_GrantedAfterWait(t *testing.T) {
	mock, lock := newMockDB(t)
	expectAcquire(*mock, 1)

	acquired, err := lock.AcquireLock(context.Background(), TimeoutMedium)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestAcquireLock_Timeout(t *testing.T) {
	mock, lock := newMockDB(t)
	expectAcquire(*mock, -1)

	acquired, err := lock.AcquireLock(context.Background(), TimeoutImmediate)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.False(t, lock.IsHeld())
}

func TestAcquireLock_DeadlockVictim(t *testing.T) {
	mock, lock := newMockDB(t)
	expectAcquire(*mock, -3)

	_, err := lock.AcquireLock(context.Background(), TimeoutShort)
	assert.Error(t, err)
}

func TestAcquireLock_AlreadyHeldIsIdempotent(t *testing.T) {
	mock, lock := newMockDB(t)
	expectAcquire(*mock, 0)

	_, err := lock.AcquireLock(context.Background(), TimeoutShort)
	require.NoError(t, err)

	// No second query expected.
	acquired, err := lock.AcquireLock(context.Background(), TimeoutShort)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.NoError(t, (*mock).ExpectationsWereMet())
}

func TestReleaseLock(t *testing.T) {
	mock, lock := newMockDB(t)
	expectAcquire(*mock, 0)
	expectRelease(*mock, 0)

	_, err := lock.AcquireLock(context.Background(), TimeoutShort)
	require.NoError(t, err)

	released, err := lock.ReleaseLock(context.Background())
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, lock.IsHeld())
}

func TestReleaseLock_NotHeld(t *testing.T) {
	_, lock := newMockDB(t)

	released, err := lock.ReleaseLock(context.Background())
	require.NoError(t, err)
	assert.False(t, released)
}

func TestAcquireOrFail_Timeout(t *testing.T) {
	mock, lock := newMockDB(t)
	expectAcquire(*mock, -1)

	err := lock.AcquireOrFail(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockTimeout))
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	mock, lock := newMockDB(t)
	expectAcquire(*mock, 0)
	expectRelease(*mock, 0)

	wantErr := errors.New("crawl failed")
	err := lock.WithLock(context.Background(), TimeoutShort, func() error {
		assert.True(t, lock.IsHeld())
		return wantErr
	})
	assert.Equal(t, wantErr, err)
	assert.False(t, lock.IsHeld())
}

func TestWithLock_TimeoutDoesNotRunFn(t *testing.T) {
	mock, lock := newMockDB(t)
	expectAcquire(*mock, -1)

	ran := false
	err := lock.WithLock(context.Background(), TimeoutShort, func() error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockTimeout))
	assert.False(t, ran)
}

func TestGenerateCrawlLockName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "nightly", "depcrawl:crawl:nightly"},
		{"mixed case preserved", "SalesDB-crawl", "depcrawl:crawl:SalesDB-crawl"},
		{"dots sanitized", "sales.orders", "depcrawl:crawl:sales_orders"},
		{"spaces sanitized", "full server", "depcrawl:crawl:full_server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateCrawlLockName(tt.input))
		})
	}
}

func TestLockName(t *testing.T) {
	_, lock := newMockDB(t)
	assert.Equal(t, "depcrawl:crawl:test", lock.LockName())
}
