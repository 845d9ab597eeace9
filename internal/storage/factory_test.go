package storage

import "testing"

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore("memory", "")
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	if store == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestNewStoreDefaultsToMemory(t *testing.T) {
	store, err := NewStore("", "")
	if err != nil {
		t.Fatalf("new default store: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
	if DefaultStoreKind() != "memory" {
		t.Fatalf("unexpected default kind: %s", DefaultStoreKind())
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	if err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestOpenerForMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	opener, err := OpenerFor(store)
	if err != nil {
		t.Fatalf("opener: %v", err)
	}
	if opener == nil {
		t.Fatal("expected non-nil opener")
	}
}

func TestCloseIfSupportedWithoutCloser(t *testing.T) {
	if err := CloseIfSupported(NewMemoryStore()); err != nil {
		t.Fatalf("close: %v", err)
	}
}
