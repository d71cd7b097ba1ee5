package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistryPersistent(t *testing.T) {
	r := NewRegistry()
	a := r.Register(func() string { return "a" })
	b := r.Register(func() string { return "b" })
	if a != 0 || b != 1 {
		t.Fatalf("unexpected indexes: %d %d", a, b)
	}

	for i := 0; i < 2; i++ {
		f, err := r.Resolve(b)
		fatal(err, t)
		ret, err := f(context.Background(), nil)
		fatal(err, t)
		if ret != "b" {
			t.Fatalf("unexpected value: %v", ret)
		}
	}
	if r.Len() != 2 {
		t.Fatalf("unexpected len: %d", r.Len())
	}

	if _, err := r.Resolve(2); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistrySingleUse(t *testing.T) {
	r := NewRegistry(SingleUse())
	idx := r.Register(func() {})
	_, err := r.Resolve(idx)
	fatal(err, t)
	if _, err := r.Resolve(idx); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("unexpected error: %v", err)
	}
	// indexes are never reused
	if next := r.Register(func() {}); next != idx+1 {
		t.Fatalf("unexpected index: %d", next)
	}
}

func TestRegistryExpiring(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRegistry(Expiring(time.Minute))
	r.now = func() time.Time { return now }

	idx := r.Register(func() {})
	now = now.Add(30 * time.Second)
	_, err := r.Resolve(idx)
	fatal(err, t)

	now = now.Add(time.Minute)
	if _, err := r.Resolve(idx); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("unexpected len: %d", r.Len())
	}
}

func TestRegistryNotCallable(t *testing.T) {
	r := NewRegistry()
	idx := r.Register("not a function")
	f, err := r.Resolve(idx)
	fatal(err, t)
	if _, err := f(context.Background(), nil); err == nil {
		t.Fatal("expected an error")
	}
}
