package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/NeseemGit/sb-squares/internal/domain/square"
)

const feedBufferSize = 8

// SquareRepository is an in-memory square store that doubles as the
// snapshot feed: every mutation pushes the affected pool's full grid to its
// subscribers.
type SquareRepository struct {
	mu      sync.RWMutex
	squares map[string]square.Square

	subMu   sync.Mutex
	nextSub int
	subs    map[string]map[int]chan []square.Square
}

func NewSquareRepository(squares []square.Square) *SquareRepository {
	byID := make(map[string]square.Square, len(squares))
	for _, item := range squares {
		byID[item.ID] = cloneSquare(item)
	}

	return &SquareRepository{
		squares: byID,
		subs:    make(map[string]map[int]chan []square.Square),
	}
}

func (r *SquareRepository) GetByID(_ context.Context, squareID string) (square.Square, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.squares[squareID]
	if !ok {
		return square.Square{}, false, nil
	}

	return cloneSquare(item), true, nil
}

// ListByPool pages in (row, col) order; the token is the offset of the next
// item.
func (r *SquareRepository) ListByPool(_ context.Context, poolID, pageToken string, limit int) (square.Page, error) {
	if limit <= 0 {
		limit = 100
	}

	offset := 0
	if pageToken != "" {
		parsed, err := strconv.Atoi(pageToken)
		if err != nil || parsed < 0 {
			return square.Page{}, fmt.Errorf("invalid page token %q", pageToken)
		}
		offset = parsed
	}

	r.mu.RLock()
	all := r.snapshotLocked(poolID)
	r.mu.RUnlock()

	if offset >= len(all) {
		return square.Page{}, nil
	}

	end := offset + limit
	next := ""
	if end < len(all) {
		next = strconv.Itoa(end)
	} else {
		end = len(all)
	}

	return square.Page{Items: all[offset:end], NextToken: next}, nil
}

func (r *SquareRepository) CountByPool(_ context.Context, poolID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, item := range r.squares {
		if item.PoolID == poolID {
			count++
		}
	}

	return count, nil
}

func (r *SquareRepository) Create(_ context.Context, item square.Square) (square.Square, error) {
	r.mu.Lock()
	if _, exists := r.squares[item.ID]; exists {
		r.mu.Unlock()
		return square.Square{}, fmt.Errorf("square %s already exists", item.ID)
	}
	r.squares[item.ID] = cloneSquare(item)
	snapshot := r.snapshotLocked(item.PoolID)
	r.mu.Unlock()

	r.broadcast(item.PoolID, snapshot)

	return cloneSquare(item), nil
}

func (r *SquareRepository) Update(_ context.Context, item square.Square) (square.Square, error) {
	r.mu.Lock()
	if _, exists := r.squares[item.ID]; !exists {
		r.mu.Unlock()
		return square.Square{}, fmt.Errorf("square %s does not exist", item.ID)
	}
	r.squares[item.ID] = cloneSquare(item)
	snapshot := r.snapshotLocked(item.PoolID)
	r.mu.Unlock()

	r.broadcast(item.PoolID, snapshot)

	return cloneSquare(item), nil
}

func (r *SquareRepository) ClaimIfUnowned(_ context.Context, item square.Square) (square.Square, bool, error) {
	r.mu.Lock()
	stored, exists := r.squares[item.ID]
	if !exists {
		r.mu.Unlock()
		return square.Square{}, false, fmt.Errorf("square %s does not exist", item.ID)
	}
	if stored.OwnerID != "" && stored.OwnerID != item.OwnerID {
		r.mu.Unlock()
		return square.Square{}, false, nil
	}
	r.squares[item.ID] = cloneSquare(item)
	snapshot := r.snapshotLocked(item.PoolID)
	r.mu.Unlock()

	r.broadcast(item.PoolID, snapshot)

	return cloneSquare(item), true, nil
}

func (r *SquareRepository) DeleteByID(_ context.Context, squareID string) error {
	r.mu.Lock()
	item, exists := r.squares[squareID]
	if !exists {
		r.mu.Unlock()
		return nil
	}
	delete(r.squares, squareID)
	snapshot := r.snapshotLocked(item.PoolID)
	r.mu.Unlock()

	r.broadcast(item.PoolID, snapshot)

	return nil
}

func (r *SquareRepository) DeleteByPool(_ context.Context, poolID string) error {
	r.mu.Lock()
	for id, item := range r.squares {
		if item.PoolID == poolID {
			delete(r.squares, id)
		}
	}
	snapshot := r.snapshotLocked(poolID)
	r.mu.Unlock()

	r.broadcast(poolID, snapshot)

	return nil
}

// Subscribe registers a snapshot channel for the pool. The current grid is
// delivered immediately; slow consumers drop intermediate snapshots rather
// than block writers.
func (r *SquareRepository) Subscribe(_ context.Context, poolID string) (<-chan []square.Square, func(), error) {
	ch := make(chan []square.Square, feedBufferSize)

	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	if r.subs[poolID] == nil {
		r.subs[poolID] = make(map[int]chan []square.Square)
	}
	r.subs[poolID][id] = ch
	r.subMu.Unlock()

	r.mu.RLock()
	initial := r.snapshotLocked(poolID)
	r.mu.RUnlock()
	ch <- initial

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs[poolID], id)
			r.subMu.Unlock()
			close(ch)
		})
	}

	return ch, cancel, nil
}

func (r *SquareRepository) broadcast(poolID string, snapshot []square.Square) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for _, ch := range r.subs[poolID] {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// snapshotLocked clones the pool's squares sorted by (row, col). Callers
// hold r.mu.
func (r *SquareRepository) snapshotLocked(poolID string) []square.Square {
	out := make([]square.Square, 0)
	for _, item := range r.squares {
		if item.PoolID == poolID {
			out = append(out, cloneSquare(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})

	return out
}

func cloneSquare(item square.Square) square.Square {
	out := item
	if item.RowNumber != nil {
		v := *item.RowNumber
		out.RowNumber = &v
	}
	if item.ColNumber != nil {
		v := *item.ColNumber
		out.ColNumber = &v
	}
	if item.ClaimedAt != nil {
		t := *item.ClaimedAt
		out.ClaimedAt = &t
	}

	return out
}
