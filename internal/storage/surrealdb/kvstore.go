package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/cmansell/fairval/internal/common"
)

type systemKeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type KVStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewKVStore(db *surrealdb.DB, logger *common.Logger) *KVStore {
	return &KVStore{
		db:     db,
		logger: logger,
	}
}

// Get returns the value for a key, or empty string when absent.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	kv, err := surrealdb.Select[systemKeyValue](ctx, s.db, surrealmodels.NewRecordID("system_kv", key))
	if err != nil {
		return "", fmt.Errorf("failed to select system KV: %w", err)
	}
	if kv == nil {
		return "", nil
	}
	return kv.Value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	sql := "UPSERT type::record('system_kv', $id) CONTENT $kv"
	vars := map[string]any{"id": key, "kv": systemKeyValue{Key: key, Value: value}}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]systemKeyValue](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to set system KV after retries: %w", err)
		}
	}
	return nil
}
