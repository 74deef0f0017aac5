package redis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type fakeRedis struct {
	store   map[string]string
	getErr  error
	setErr  error
	setTTL  time.Duration
	deleted []string
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	if f.getErr != nil {
		return goredis.NewStringResult("", f.getErr)
	}
	v, ok := f.store[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	if f.setErr != nil {
		return goredis.NewStatusResult("", f.setErr)
	}
	f.store[key] = value.(string)
	f.setTTL = expiration
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	for _, k := range keys {
		delete(f.store, k)
	}
	f.deleted = append(f.deleted, keys...)
	return goredis.NewIntResult(int64(len(keys)), nil)
}

type mockMallRepo struct {
	calls int
	malls []domain.Mall
	err   error
}

func (m *mockMallRepo) ListMalls(context.Context) ([]domain.Mall, error) {
	m.calls++
	return m.malls, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListMalls_MissThenHit(t *testing.T) {
	lat, lon := -6.2088, 106.8456
	rc := &fakeRedis{store: map[string]string{}}
	repo := &mockMallRepo{malls: []domain.Mall{{ID: "m1", Name: "Plaza", Latitude: &lat, Longitude: &lon}}}
	cache := NewMallCache(rc, repo, time.Minute, discardLogger())

	for i := 0; i < 2; i++ {
		malls, err := cache.ListMalls(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(malls) != 1 || malls[0].ID != "m1" || *malls[0].Latitude != lat {
			t.Fatalf("unexpected malls: %+v", malls)
		}
	}

	if repo.calls != 1 {
		t.Errorf("expected 1 repo call, got %d", repo.calls)
	}
	if rc.setTTL != time.Minute {
		t.Errorf("expected ttl 1m, got %v", rc.setTTL)
	}
}

func TestListMalls_RedisDownFallsThrough(t *testing.T) {
	rc := &fakeRedis{store: map[string]string{}, getErr: errors.New("connection refused"), setErr: errors.New("connection refused")}
	repo := &mockMallRepo{malls: []domain.Mall{{ID: "m1"}}}
	cache := NewMallCache(rc, repo, 0, discardLogger())

	malls, err := cache.ListMalls(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(malls) != 1 {
		t.Fatalf("expected 1 mall, got %d", len(malls))
	}
}

func TestListMalls_CorruptEntryReloads(t *testing.T) {
	rc := &fakeRedis{store: map[string]string{mallsKey: "not json"}}
	repo := &mockMallRepo{malls: []domain.Mall{{ID: "m1"}}}
	cache := NewMallCache(rc, repo, time.Minute, discardLogger())

	if _, err := cache.ListMalls(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("expected repo reload, got %d calls", repo.calls)
	}

	var cached []domain.Mall
	if err := json.Unmarshal([]byte(rc.store[mallsKey]), &cached); err != nil {
		t.Fatalf("expected cache to be rewritten: %v", err)
	}
}

func TestListMalls_RepoError(t *testing.T) {
	rc := &fakeRedis{store: map[string]string{}}
	repo := &mockMallRepo{err: errors.New("db error")}
	cache := NewMallCache(rc, repo, time.Minute, discardLogger())

	if _, err := cache.ListMalls(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := rc.store[mallsKey]; ok {
		t.Error("expected nothing cached on error")
	}
}

func TestInvalidate(t *testing.T) {
	rc := &fakeRedis{store: map[string]string{mallsKey: "[]"}}
	cache := NewMallCache(rc, &mockMallRepo{}, time.Minute, discardLogger())

	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := rc.store[mallsKey]; ok {
		t.Error("expected key removed")
	}
}
