package redlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestLocker_Lock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "accrual:premium_accrual", "worker-1")

	mock.ExpectSetNX("accrual:premium_accrual", "worker-1", time.Minute).SetVal(true)

	assert.NoError(t, locker.Lock(context.Background(), time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Lock_Held(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "accrual:premium_accrual", "worker-2")

	mock.ExpectSetNX("accrual:premium_accrual", "worker-2", time.Minute).SetVal(false)

	err := locker.Lock(context.Background(), time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Unlock_NotHolder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "accrual:premium_accrual", "worker-1")

	mock.ExpectEval(unlockScript, []string{"accrual:premium_accrual"}, "worker-1").SetVal(int64(0))

	assert.Error(t, locker.Unlock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Run(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "accrual:premium_accrual", "worker-1")

	mock.ExpectSetNX("accrual:premium_accrual", "worker-1", time.Minute).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"accrual:premium_accrual"}, "worker-1").SetVal(int64(1))

	called := false
	err := locker.Run(context.Background(), time.Minute, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Run_ReleasesOnError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "accrual:premium_accrual", "worker-1")
	boom := errors.New("boom")

	mock.ExpectSetNX("accrual:premium_accrual", "worker-1", time.Minute).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"accrual:premium_accrual"}, "worker-1").SetVal(int64(1))

	err := locker.Run(context.Background(), time.Minute, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Run_SkipsWhenHeld(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "accrual:premium_accrual", "worker-2")

	mock.ExpectSetNX("accrual:premium_accrual", "worker-2", time.Minute).SetVal(false)

	called := false
	err := locker.Run(context.Background(), time.Minute, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.False(t, called)
}
