package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NeseemGit/sb-squares/internal/domain/pool"
)

type PoolRepository struct {
	mu    sync.RWMutex
	pools map[string]pool.Pool
}

func NewPoolRepository(pools []pool.Pool) *PoolRepository {
	byID := make(map[string]pool.Pool, len(pools))
	for _, item := range pools {
		byID[item.ID] = clonePool(item)
	}

	return &PoolRepository{pools: byID}
}

func (r *PoolRepository) List(_ context.Context) ([]pool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]pool.Pool, 0, len(r.pools))
	for _, item := range r.pools {
		out = append(out, clonePool(item))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (r *PoolRepository) GetByID(_ context.Context, poolID string) (pool.Pool, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.pools[poolID]
	if !ok {
		return pool.Pool{}, false, nil
	}

	return clonePool(item), true, nil
}

func (r *PoolRepository) Create(_ context.Context, item pool.Pool) (pool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pools[item.ID]; exists {
		return pool.Pool{}, fmt.Errorf("pool %s already exists", item.ID)
	}
	r.pools[item.ID] = clonePool(item)

	return clonePool(item), nil
}

func (r *PoolRepository) Update(_ context.Context, item pool.Pool) (pool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pools[item.ID]; !exists {
		return pool.Pool{}, fmt.Errorf("pool %s does not exist", item.ID)
	}
	r.pools[item.ID] = clonePool(item)

	return clonePool(item), nil
}

func (r *PoolRepository) Delete(_ context.Context, poolID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pools, poolID)

	return nil
}

func clonePool(item pool.Pool) pool.Pool {
	out := item
	if item.RowNumbers != nil {
		out.RowNumbers = append([]int(nil), item.RowNumbers...)
	}
	if item.ColNumbers != nil {
		out.ColNumbers = append([]int(nil), item.ColNumbers...)
	}
	if item.WinningSquares != nil {
		out.WinningSquares = append([]pool.WinningSquare(nil), item.WinningSquares...)
	}

	return out
}
