package pool

import (
	"fmt"
	"time"
)

// Status is the admin-driven lifecycle state of a pool. Transitions are
// unordered; only OPEN permits self-service claims.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCompleted Status = "COMPLETED"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusDraft, StatusOpen, StatusClosed, StatusCompleted:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown pool status %q", raw)
	}
}

const (
	MinGridSize = 5
	MaxGridSize = 20

	// WinnerSlots is one slot per quarter: Q1, Halftime, Q3, Final.
	WinnerSlots = 4
)

// WinningSquare references one grid cell. An unset slot carries the
// out-of-range sentinel (-1,-1).
type WinningSquare struct {
	Row int
	Col int
}

func UnsetWinner() WinningSquare {
	return WinningSquare{Row: -1, Col: -1}
}

func (w WinningSquare) IsSet() bool {
	return w.Row >= 0 && w.Col >= 0
}

// Pool is one sports-event squares contest with its own grid, numbering,
// and status.
type Pool struct {
	ID             string
	Name           string
	Description    string
	EventDate      string
	GridSize       int
	PricePerSquare float64
	Status         Status
	RowNumbers     []int
	ColNumbers     []int
	NumbersRevealed bool
	WinningSquares []WinningSquare
	TeamRowName    string
	TeamColName    string
	CommishNotes   string
	PrizePayouts   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p Pool) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("pool id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("pool name is required")
	}
	if p.EventDate == "" {
		return fmt.Errorf("pool event date is required")
	}
	if p.GridSize < MinGridSize || p.GridSize > MaxGridSize {
		return fmt.Errorf("pool grid size must be between %d and %d", MinGridSize, MaxGridSize)
	}
	if p.PricePerSquare < 0 {
		return fmt.Errorf("pool price per square cannot be negative")
	}
	if _, err := ParseStatus(string(p.Status)); err != nil {
		return err
	}
	if p.RowNumbers != nil {
		if err := ValidatePermutation(p.RowNumbers, p.GridSize); err != nil {
			return fmt.Errorf("row numbers: %w", err)
		}
	}
	if p.ColNumbers != nil {
		if err := ValidatePermutation(p.ColNumbers, p.GridSize); err != nil {
			return fmt.Errorf("col numbers: %w", err)
		}
	}
	if len(p.WinningSquares) > WinnerSlots {
		return fmt.Errorf("at most %d winning squares are allowed", WinnerSlots)
	}
	for _, w := range p.WinningSquares {
		if !w.IsSet() {
			continue
		}
		if w.Row >= p.GridSize || w.Col >= p.GridSize {
			return fmt.Errorf("winning square (%d,%d) is outside the grid", w.Row, w.Col)
		}
	}

	return nil
}

// ValidatePermutation reports whether values is a permutation of 0..size-1.
func ValidatePermutation(values []int, size int) error {
	if len(values) != size {
		return fmt.Errorf("expected %d values, got %d", size, len(values))
	}

	seen := make([]bool, size)
	for _, v := range values {
		if v < 0 || v >= size {
			return fmt.Errorf("value %d is out of range [0,%d)", v, size)
		}
		if seen[v] {
			return fmt.Errorf("duplicate value %d", v)
		}
		seen[v] = true
	}

	return nil
}
