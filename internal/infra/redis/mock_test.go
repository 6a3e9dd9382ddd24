//go:build !integration

package redis

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// fakeClient is an in-memory RedisClient with real TTL behavior, enough to
// exercise the repositories without a server.
type fakeClient struct {
	mu   sync.Mutex
	data map[string]fakeEntry
	now  func() time.Time
}

type fakeEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

var _ RedisClient = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string]fakeEntry), now: time.Now}
}

func (f *fakeClient) live(key string) (fakeEntry, bool) {
	e, ok := f.data[key]
	if !ok {
		return fakeEntry{}, false
	}
	if !e.expiresAt.IsZero() && f.now().After(e.expiresAt) {
		delete(f.data, key)
		return fakeEntry{}, false
	}
	return e, true
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := fakeEntry{value: fmt.Sprintf("%s", value)}
	if expiration > 0 {
		e.expiresAt = f.now().Add(expiration)
	}
	f.data[key] = e
	return nil
}

func (f *fakeClient) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.live(key)
	if !ok {
		return "", Nil
	}
	return e.value, nil
}

func (f *fakeClient) GetDel(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.live(key)
	if !ok {
		return "", Nil
	}
	delete(f.data, key)
	return e.value, nil
}

func (f *fakeClient) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, _ := f.live(key)
	var n int64
	if e.value != "" {
		fmt.Sscanf(e.value, "%d", &n)
	}
	n++
	e.value = fmt.Sprintf("%d", n)
	f.data[key] = e
	return n, nil
}

func (f *fakeClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.live(key)
	if !ok {
		return nil
	}
	e.expiresAt = f.now().Add(expiration)
	f.data[key] = e
	return nil
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }
