package postgres

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/NeseemGit/sb-squares/internal/domain/pool"
)

type poolTableModel struct {
	ID              string     `db:"id"`
	Name            string     `db:"name"`
	Description     string     `db:"description"`
	EventDate       string     `db:"event_date"`
	GridSize        int        `db:"grid_size"`
	PricePerSquare  float64    `db:"price_per_square"`
	Status          string     `db:"status"`
	RowNumbers      []byte     `db:"row_numbers"`
	ColNumbers      []byte     `db:"col_numbers"`
	NumbersRevealed bool       `db:"numbers_revealed"`
	WinningSquares  []byte     `db:"winning_squares"`
	TeamRowName     string     `db:"team_row_name"`
	TeamColName     string     `db:"team_col_name"`
	CommishNotes    string     `db:"commish_notes"`
	PrizePayouts    string     `db:"prize_payouts"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at"`
}

type poolInsertModel struct {
	ID              string  `db:"id"`
	Name            string  `db:"name"`
	Description     string  `db:"description"`
	EventDate       string  `db:"event_date"`
	GridSize        int     `db:"grid_size"`
	PricePerSquare  float64 `db:"price_per_square"`
	Status          string  `db:"status"`
	RowNumbers      []byte  `db:"row_numbers"`
	ColNumbers      []byte  `db:"col_numbers"`
	NumbersRevealed bool    `db:"numbers_revealed"`
	WinningSquares  []byte  `db:"winning_squares"`
	TeamRowName     string  `db:"team_row_name"`
	TeamColName     string  `db:"team_col_name"`
	CommishNotes    string  `db:"commish_notes"`
	PrizePayouts    string  `db:"prize_payouts"`
}

type winningSquareJSON struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func poolFromRow(row poolTableModel) (pool.Pool, error) {
	p := pool.Pool{
		ID:              row.ID,
		Name:            row.Name,
		Description:     row.Description,
		EventDate:       row.EventDate,
		GridSize:        row.GridSize,
		PricePerSquare:  row.PricePerSquare,
		Status:          pool.Status(row.Status),
		NumbersRevealed: row.NumbersRevealed,
		TeamRowName:     row.TeamRowName,
		TeamColName:     row.TeamColName,
		CommishNotes:    row.CommishNotes,
		PrizePayouts:    row.PrizePayouts,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}

	if len(row.RowNumbers) > 0 {
		if err := sonic.Unmarshal(row.RowNumbers, &p.RowNumbers); err != nil {
			return pool.Pool{}, fmt.Errorf("decode row numbers for pool %s: %w", row.ID, err)
		}
	}
	if len(row.ColNumbers) > 0 {
		if err := sonic.Unmarshal(row.ColNumbers, &p.ColNumbers); err != nil {
			return pool.Pool{}, fmt.Errorf("decode col numbers for pool %s: %w", row.ID, err)
		}
	}
	if len(row.WinningSquares) > 0 {
		var winners []winningSquareJSON
		if err := sonic.Unmarshal(row.WinningSquares, &winners); err != nil {
			return pool.Pool{}, fmt.Errorf("decode winning squares for pool %s: %w", row.ID, err)
		}
		p.WinningSquares = make([]pool.WinningSquare, 0, len(winners))
		for _, w := range winners {
			p.WinningSquares = append(p.WinningSquares, pool.WinningSquare{Row: w.Row, Col: w.Col})
		}
	}

	return p, nil
}

func encodeNumbers(values []int) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return sonic.Marshal(values)
}

func encodeWinners(winners []pool.WinningSquare) ([]byte, error) {
	if winners == nil {
		return nil, nil
	}
	out := make([]winningSquareJSON, 0, len(winners))
	for _, w := range winners {
		out = append(out, winningSquareJSON{Row: w.Row, Col: w.Col})
	}
	return sonic.Marshal(out)
}
