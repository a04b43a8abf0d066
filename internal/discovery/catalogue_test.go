package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/chaz8081/fastpair-seeker/internal/ble"
)

func mustDevice(t *testing.T, f *mockFactory, v uint64) ble.Device {
	t.Helper()
	d, err := ble.NewBLEDevice(context.Background(), f, fastPair(v))
	if err != nil {
		t.Fatalf("NewBLEDevice(%x) error = %v", v, err)
	}
	return d
}

func TestCatalogueAdd(t *testing.T) {
	f := newMockFactory()
	cat := NewCatalogue()

	e, added := cat.Add(mustDevice(t, f, 0x1), "first")
	if !added || e.Index != 0 || e.Name != "first" {
		t.Fatalf("Add() = %+v, %v", e, added)
	}

	// same address, different handle and name: first one wins
	if _, added := cat.Add(mustDevice(t, f, 0x1), "second"); added {
		t.Error("duplicate address was added")
	}

	e, added = cat.Add(mustDevice(t, f, 0x2), "")
	if !added || e.Index != 1 {
		t.Errorf("Add() = %+v, %v; want index 1", e, added)
	}

	got, err := cat.Get(0)
	if err != nil {
		t.Fatalf("Get(0) error = %v", err)
	}
	if got.Name != "first" {
		t.Errorf("Get(0).Name = %q, want first", got.Name)
	}
	if cat.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cat.Len())
	}
}

func TestCatalogueContains(t *testing.T) {
	f := newMockFactory()
	cat := NewCatalogue()
	d := mustDevice(t, f, 0x1)

	if cat.Contains(d.Address()) {
		t.Error("empty catalogue reports Contains")
	}
	cat.Add(d, "")
	if !cat.Contains(d.Address()) {
		t.Error("Contains() = false after Add")
	}
	if cat.Contains(fastPair(0x2).Address) {
		t.Error("Contains() = true for unseen address")
	}
}

func TestCatalogueGetOutOfRange(t *testing.T) {
	cat := NewCatalogue()
	cat.Add(mustDevice(t, newMockFactory(), 0x1), "")

	for _, i := range []int{-1, 1, 100} {
		if _, err := cat.Get(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Get(%d) error = %v, want ErrIndexOutOfRange", i, err)
		}
	}
}

func TestCatalogueListIsSnapshot(t *testing.T) {
	f := newMockFactory()
	cat := NewCatalogue()
	cat.Add(mustDevice(t, f, 0x1), "a")

	snap := cat.List()
	cat.Add(mustDevice(t, f, 0x2), "b")
	snap[0].Name = "changed"

	if len(snap) != 1 {
		t.Errorf("snapshot grew to %d entries", len(snap))
	}
	if e, _ := cat.Get(0); e.Name != "a" {
		t.Errorf("catalogue entry modified through snapshot: %q", e.Name)
	}
}
