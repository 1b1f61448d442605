/*
Copyright 2024 Boreal Insurance PGI Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package redlock is a best-effort redis lock used to keep worker processes from
// starting the same job twice. It does not replace the job lock row in Postgres.
package redlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrLockHeld is returned by Lock when another holder owns the key.
var ErrLockHeld = errors.New("lock is already held")

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

type Locker struct {
	client redis.UniversalClient
	key    string
	value  string
}

// NewLocker returns a locker for key. value identifies the holder and must be unique
// per holder, since only the holder with the same value can unlock.
func NewLocker(client redis.UniversalClient, key, value string) *Locker {
	return &Locker{
		client: client,
		key:    key,
		value:  value,
	}
}

func (l *Locker) Lock(ctx context.Context, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key, l.value, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: key %s", ErrLockHeld, l.key)
	}
	return nil
}

func (l *Locker) Unlock(ctx context.Context) error {
	result, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("unlock failed for key %s: lock expired or held by another owner", l.key)
	}
	return nil
}

// Run calls fn while holding the lock. When the lock is held elsewhere fn is skipped
// and ErrLockHeld is returned.
func (l *Locker) Run(ctx context.Context, ttl time.Duration, fn func(ctx context.Context) error) error {
	if err := l.Lock(ctx, ttl); err != nil {
		return err
	}
	defer func() {
		if err := l.Unlock(context.Background()); err != nil {
			logrus.Warnf("redis lock release: %v", err)
		}
	}()
	return fn(ctx)
}
