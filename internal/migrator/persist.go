package migrator

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkgforge/feedbot/internal/store"
)

const specKeyPrefix = "migrator_spec:"

func specKey(key string) store.Key { return store.Key(specKeyPrefix + key) }

// PersistSpecs writes each Spec into the Graph Store under its own key, so
// a process without access to the migrator-registration YAML file (a
// different shard, a daemon tick) can reconstruct the registry from
// whichever backend it's configured against. make-migrators calls this
// after validating the YAML document.
func PersistSpecs(ctx context.Context, st *store.Store, specs []Spec) error {
	for _, spec := range specs {
		data, err := json.Marshal(spec)
		if err != nil {
			return err
		}
		if _, err := st.PutBytes(ctx, specKey(spec.Key), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadPersistedSpecs reads back every Spec PersistSpecs wrote, sorted by
// key for deterministic registration order.
func LoadPersistedSpecs(ctx context.Context, st *store.Store) ([]Spec, error) {
	keys, err := st.KeysPrefix(ctx, specKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	specs := make([]Spec, 0, len(keys))
	for _, key := range keys {
		raw, err := st.GetBytes(ctx, key)
		if err != nil {
			return nil, err
		}
		var spec Spec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
