package kv

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get missing = ok:%v err:%v", ok, err)
	}

	if err := m.Set(ctx, "a", []byte("hello")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := m.Get(ctx, "a")
	if err != nil || !ok || string(v) != "hello" {
		t.Fatalf("Get = %q ok:%v err:%v", v, ok, err)
	}

	// Returned slices must not alias the stored value.
	v[0] = 'X'
	v2, _, _ := m.Get(ctx, "a")
	if string(v2) != "hello" {
		t.Errorf("stored value mutated through returned slice: %q", v2)
	}
}

func TestMemoryLimit(t *testing.T) {
	ctx := context.Background()
	m := &Memory{Limit: 8}

	if err := m.Set(ctx, "a", []byte("12345")); err != nil {
		t.Fatalf("Set within limit failed: %v", err)
	}
	// Overwriting the same key only counts the delta.
	if err := m.Set(ctx, "a", []byte("12345678")); err != nil {
		t.Fatalf("overwrite within limit failed: %v", err)
	}
	err := m.Set(ctx, "b", []byte("x"))
	if !errors.Is(err, ErrStorageFull) {
		t.Fatalf("expected ErrStorageFull, got %v", err)
	}
	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Error("failed write should not be stored")
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type payload struct {
		N int `json:"n"`
	}

	var p payload
	found, err := GetJSON(ctx, m, "p", &p)
	if err != nil || found {
		t.Fatalf("GetJSON missing = found:%v err:%v", found, err)
	}

	if err := SetJSON(ctx, m, "p", payload{N: 7}); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}
	found, err = GetJSON(ctx, m, "p", &p)
	if err != nil || !found || p.N != 7 {
		t.Fatalf("GetJSON = %+v found:%v err:%v", p, found, err)
	}

	_ = m.Set(ctx, "bad", []byte("{not json"))
	if _, err := GetJSON(ctx, m, "bad", &p); err == nil {
		t.Error("expected decode error")
	}
}

func TestSetJSONPropagatesStorageFull(t *testing.T) {
	m := &Memory{Limit: 2}
	err := SetJSON(context.Background(), m, "k", map[string]int{"value": 1})
	if !errors.Is(err, ErrStorageFull) {
		t.Fatalf("expected wrapped ErrStorageFull, got %v", err)
	}
}

// plainStore hides Memory's Updater so Update takes the Get/Set path.
type plainStore struct{ m *Memory }

func (p plainStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.m.Get(ctx, key)
}

func (p plainStore) Set(ctx context.Context, key string, value []byte) error {
	return p.m.Set(ctx, key, value)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	appendX := func(old []byte, found bool) ([]byte, error) {
		return append(old, 'x'), nil
	}

	for name, store := range map[string]Store{"updater": NewMemory(), "get-set": plainStore{NewMemory()}} {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if err := Update(ctx, store, "k", appendX); err != nil {
					t.Fatalf("Update: %v", err)
				}
			}
			v, _, _ := store.Get(ctx, "k")
			if string(v) != "xxx" {
				t.Errorf("value = %q, want xxx", v)
			}

			err := Update(ctx, store, "k", func([]byte, bool) ([]byte, error) { return nil, nil })
			if err != nil {
				t.Fatalf("Update(nil): %v", err)
			}
			v, _, _ = store.Get(ctx, "k")
			if string(v) != "xxx" {
				t.Errorf("nil value should skip the write, got %q", v)
			}
		})
	}
}

func TestMemoryUpdateStorageFull(t *testing.T) {
	m := &Memory{Limit: 4}
	err := m.Update(context.Background(), "k", func([]byte, bool) ([]byte, error) {
		return []byte("too long"), nil
	})
	if !errors.Is(err, ErrStorageFull) {
		t.Fatalf("Update error = %v, want ErrStorageFull", err)
	}
	if _, ok, _ := m.Get(context.Background(), "k"); ok {
		t.Error("failed update must not store a value")
	}
}
