package storage

import "fmt"

func DefaultStoreKind() string {
	return "memory"
}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// OpenerFor derives the per-task read-handle factory from a store. Every
// built-in backend implements Opener itself: memory stores share the
// instance, sqlite stores open a fresh connection on the same file.
func OpenerFor(store Store) (Opener, error) {
	if o, ok := store.(Opener); ok {
		return o, nil
	}
	return nil, fmt.Errorf("store %T cannot hand out task read handles", store)
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
