// Package middleware wraps a ports.RunStore to transform archived summaries.
package middleware

import "github.com/aretw0/lattice/pkg/ports"

// Middleware allows wrapping a RunStore to add behavior.
type Middleware func(ports.RunStore) ports.RunStore

// Chain applies mws to store so that the first one sees a Save first.
func Chain(store ports.RunStore, mws ...Middleware) ports.RunStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
