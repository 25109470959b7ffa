package postgres

import (
	"database/sql"
	"time"

	"github.com/NeseemGit/sb-squares/internal/domain/square"
)

type squareTableModel struct {
	ID        string         `db:"id"`
	PoolID    string         `db:"pool_id"`
	GridRow   int            `db:"grid_row"`
	GridCol   int            `db:"grid_col"`
	RowNumber sql.NullInt64  `db:"row_number"`
	ColNumber sql.NullInt64  `db:"col_number"`
	OwnerID   sql.NullString `db:"owner_id"`
	OwnerName sql.NullString `db:"owner_name"`
	ClaimedAt *time.Time     `db:"claimed_at"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type squareInsertModel struct {
	ID      string `db:"id"`
	PoolID  string `db:"pool_id"`
	GridRow int    `db:"grid_row"`
	GridCol int    `db:"grid_col"`
}

func squareFromRow(row squareTableModel) square.Square {
	out := square.Square{
		ID:        row.ID,
		PoolID:    row.PoolID,
		Row:       row.GridRow,
		Col:       row.GridCol,
		OwnerID:   row.OwnerID.String,
		OwnerName: row.OwnerName.String,
	}
	if row.RowNumber.Valid {
		v := int(row.RowNumber.Int64)
		out.RowNumber = &v
	}
	if row.ColNumber.Valid {
		v := int(row.ColNumber.Int64)
		out.ColNumber = &v
	}
	if row.ClaimedAt != nil {
		t := *row.ClaimedAt
		out.ClaimedAt = &t
	}

	return out
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullIntFromPtr(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
