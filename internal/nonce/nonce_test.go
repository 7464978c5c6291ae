package nonce

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart-locker-control/internal/storage"
)

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sql":    func(t *testing.T) Store { return NewSQLStore(storage.NewMemoryProvider()) },
	}
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			defer s.Close()

			n, err := New(ctx, s, time.Minute)
			if err != nil {
				t.Fatal(err)
			}
			if !s.Exists(ctx, n) {
				t.Fatal("new nonce does not exist")
			}
			if ok, err := s.Consume(ctx, n); !ok || err != nil {
				t.Fatalf("first consume = %v, %v", ok, err)
			}
			if ok, err := s.Consume(ctx, n); ok || !errors.Is(err, ErrUnknown) {
				t.Errorf("second consume = %v, %v", ok, err)
			}
			if s.Exists(ctx, n) {
				t.Error("consumed nonce still exists")
			}
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()
	now := time.Now()
	s.now = func() time.Time { return now }

	for _, n := range []string{"a", "b"} {
		if err := s.Put(ctx, n, time.Second); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Put(ctx, "c", time.Hour); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Second)
	if s.Exists(ctx, "a") {
		t.Error("expired nonce exists")
	}
	if ok, err := s.Consume(ctx, "a"); ok || !errors.Is(err, ErrExpired) {
		t.Errorf("consume expired = %v, %v", ok, err)
	}

	if err := s.ExpireNonces(ctx); err != nil {
		t.Fatal(err)
	}
	if n := s.Len(); n != 1 {
		t.Errorf("len after expiry = %d, want 1", n)
	}
	if err := s.Put(ctx, "d", 0); err == nil {
		t.Error("zero ttl accepted")
	}
}

func TestNewStore(t *testing.T) {
	for _, typ := range []string{"memory", "sql"} {
		s, err := NewStore(typ, storage.NewMemoryProvider(), time.Hour)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		s.Close()
		s.Close()
	}
	if _, err := NewStore("sql", nil, time.Hour); err == nil {
		t.Error("sql store without provider accepted")
	}
	if _, err := NewStore("redis", nil, time.Hour); err == nil {
		t.Error("unknown store type accepted")
	}
}
