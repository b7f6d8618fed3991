package storage

import (
	"tokenvault/internal/core"
	"tokenvault/internal/di"
)

type combinedStore interface {
	core.TokenStore
	core.AuthorizationStore
}

// UseSQLite registers store as the token and authorization store. It takes
// precedence over stores registered earlier.
func UseSQLite(builder *core.Builder, store *SQLiteStore) error {
	if store == nil {
		return di.ArgumentNilError{Param: "store"}
	}
	return use(builder, store)
}

// UseMemory registers store as the token and authorization store. It takes
// precedence over stores registered earlier.
func UseMemory(builder *core.Builder, store *MemoryStore) error {
	if store == nil {
		return di.ArgumentNilError{Param: "store"}
	}
	return use(builder, store)
}

func use(builder *core.Builder, store combinedStore) error {
	if builder == nil {
		return di.ArgumentNilError{Param: "builder"}
	}
	builder.Services().
		Add(di.NewInstance[core.TokenStore](store)).
		Add(di.NewInstance[core.AuthorizationStore](store))
	return nil
}
