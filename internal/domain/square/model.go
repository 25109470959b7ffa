package square

import (
	"fmt"
	"time"
)

// Square is one cell of a pool's grid, identified by (pool, row, col).
// The canonical unclaimed representation is OwnerID == "" and ClaimedAt nil;
// RowNumber/ColNumber are denormalized display values, the permutations on
// the pool are authoritative.
type Square struct {
	ID        string
	PoolID    string
	Row       int
	Col       int
	RowNumber *int
	ColNumber *int
	OwnerID   string
	OwnerName string
	ClaimedAt *time.Time
}

func (s Square) Claimed() bool {
	return s.OwnerID != ""
}

func (s Square) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("square id is required")
	}
	if s.PoolID == "" {
		return fmt.Errorf("square pool id is required")
	}
	if s.Row < 0 || s.Col < 0 {
		return fmt.Errorf("square row and col must be non-negative")
	}

	return nil
}

// CellKey is the unique (row, col) key of a cell within one pool.
func CellKey(row, col int) string {
	return fmt.Sprintf("%d:%d", row, col)
}
