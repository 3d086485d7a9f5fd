package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

// tableCodec converts a fetch result to and from its cached table form
type tableCodec[R any] struct {
	toTable   func(name string, result R) *entities.Table
	fromTable func(table *entities.Table) (R, error)
}

// cachedFetch implements the cache short-circuit shared by every dataset. With useCache it
// only reads the cache file and never calls fetch. Otherwise it calls fetch, overwrites the
// cache file with the result and records the refresh in the ledger.
func cachedFetch[R any](ctx context.Context, a *Acquirer, key string, useCache bool, codec tableCodec[R], fetch func(context.Context) (R, error)) (R, error) {
	var zero R

	if useCache {
		table, err := a.store.Read(key)
		if err != nil {
			return zero, err
		}
		result, err := codec.fromTable(table)
		if err != nil {
			return zero, fmt.Errorf("failed to decode cached %s: %w", key, err)
		}
		a.logger.Info("loaded dataset from cache", "dataset", key, "rows", len(table.Rows))
		return result, nil
	}

	a.logger.Info("fetching dataset", "dataset", key)
	result, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	table := codec.toTable(key, result)
	path, err := a.store.Write(table)
	if err != nil {
		return zero, fmt.Errorf("failed to cache %s: %w", key, err)
	}

	if a.refreshes != nil {
		record := entities.RefreshRecord{
			Dataset:     key,
			Rows:        len(table.Rows),
			Path:        path,
			RefreshedAt: a.now(),
		}
		if err := a.refreshes.SaveRefresh(record); err != nil {
			return zero, fmt.Errorf("failed to record refresh of %s: %w", key, err)
		}
	}

	a.logger.Info("dataset refreshed", "dataset", key, "rows", len(table.Rows), "path", path)
	return result, nil
}

func isCacheMiss(err error) bool {
	return errors.Is(err, entities.ErrCacheMiss)
}
