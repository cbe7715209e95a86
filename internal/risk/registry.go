package risk

import (
	"fmt"

	"finmodel/internal/apperrors"
	"finmodel/internal/store"
)

// Registry caches damage functions by (peril type, damage target), loading
// each from the store on first request.
type Registry struct {
	store store.DamageFunctionStore
	cache map[string]*DamageFunction
}

// NewRegistry returns an empty, lazily-populated damage function registry.
func NewRegistry(s store.DamageFunctionStore) *Registry {
	return &Registry{store: s, cache: make(map[string]*DamageFunction)}
}

func cacheKey(perilType, damageTarget string) string {
	return perilType + "|" + damageTarget
}

// FunctionForPeril returns the damage function bound to perilType/damageTarget,
// or nil if none is defined (the caller should treat that target as having
// no damage, not as an error).
func (r *Registry) FunctionForPeril(perilType, damageTarget string) (*DamageFunction, error) {
	key := cacheKey(perilType, damageTarget)
	if fn, ok := r.cache[key]; ok {
		return fn, nil
	}

	def, found, err := r.store.GetFunctionForPeril(perilType, damageTarget)
	if err != nil {
		return nil, fmt.Errorf("%w: loading damage function for %s/%s: %v", apperrors.ErrResolution, perilType, damageTarget, err)
	}
	if !found {
		r.cache[key] = nil
		return nil, nil
	}

	fn, err := NewDamageFunction(def)
	if err != nil {
		return nil, err
	}

	r.cache[key] = fn
	return fn, nil
}

// ClearCache drops every cached function, forcing the next lookup to reload
// from the store.
func (r *Registry) ClearCache() {
	r.cache = make(map[string]*DamageFunction)
}
