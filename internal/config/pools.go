package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"poolScope/internal/model"
)

// AllPools selects every configured pool.
const AllPools = "all"

type poolFile struct {
	Pools []model.PoolIdentity `yaml:"pools"`
}

// PoolTable maps pool keys to their static identity.
type PoolTable struct {
	pools []model.PoolIdentity
	byKey map[string]model.PoolIdentity
}

// LoadPools reads the pool table from a YAML file.
func LoadPools(path string) (*PoolTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pools file: %w", err)
	}
	var file poolFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pools file: %w", err)
	}
	return NewPoolTable(file.Pools)
}

// NewPoolTable validates pools and indexes them by key. Order is kept.
func NewPoolTable(pools []model.PoolIdentity) (*PoolTable, error) {
	if len(pools) == 0 {
		return nil, fmt.Errorf("no pools configured")
	}
	table := &PoolTable{
		pools: make([]model.PoolIdentity, 0, len(pools)),
		byKey: make(map[string]model.PoolIdentity, len(pools)),
	}
	for i, pool := range pools {
		pool.Key = strings.TrimSpace(pool.Key)
		switch {
		case pool.Key == "":
			return nil, fmt.Errorf("pool %d: key is required", i)
		case strings.EqualFold(pool.Key, AllPools):
			return nil, fmt.Errorf("pool %d: key %q is reserved", i, pool.Key)
		case pool.CallData == "":
			return nil, fmt.Errorf("pool %s: call_data is required", pool.Key)
		}
		if _, dup := table.byKey[pool.Key]; dup {
			return nil, fmt.Errorf("pool %s: duplicate key", pool.Key)
		}
		if pool.Name == "" {
			pool.Name = pool.Key
		}
		table.pools = append(table.pools, pool)
		table.byKey[pool.Key] = pool
	}
	return table, nil
}

// Lookup returns the pool registered under key.
func (t *PoolTable) Lookup(key string) (model.PoolIdentity, error) {
	pool, ok := t.byKey[strings.TrimSpace(key)]
	if !ok {
		return model.PoolIdentity{}, fmt.Errorf("%w: Invalid pool %q", model.ErrValidation, key)
	}
	return pool, nil
}

// All returns every pool in configuration order.
func (t *PoolTable) All() []model.PoolIdentity {
	out := make([]model.PoolIdentity, len(t.pools))
	copy(out, t.pools)
	return out
}
