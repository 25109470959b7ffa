package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/NeseemGit/sb-squares/internal/domain/square"
	qb "github.com/NeseemGit/sb-squares/internal/platform/querybuilder"
)

type SquareRepository struct {
	db *sqlx.DB
}

func NewSquareRepository(db *sqlx.DB) *SquareRepository {
	return &SquareRepository{db: db}
}

func (r *SquareRepository) GetByID(ctx context.Context, squareID string) (square.Square, bool, error) {
	query, args, err := qb.Select("*").
		From("squares").
		Where(qb.Eq("id", squareID)).
		ToSQL()
	if err != nil {
		return square.Square{}, false, fmt.Errorf("build get square by id query: %w", err)
	}

	var row squareTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return square.Square{}, false, nil
		}
		return square.Square{}, false, fmt.Errorf("get square by id: %w", err)
	}

	return squareFromRow(row), true, nil
}

// ListByPool pages in (grid_row, grid_col) keyset order. The continuation
// token is the "row:col" of the last item on the previous page.
func (r *SquareRepository) ListByPool(ctx context.Context, poolID, pageToken string, limit int) (square.Page, error) {
	if limit <= 0 {
		limit = 100
	}

	builder := qb.Select("*").From("squares")
	if pageToken != "" {
		var afterRow, afterCol int
		if _, err := fmt.Sscanf(pageToken, "%d:%d", &afterRow, &afterCol); err != nil {
			return square.Page{}, fmt.Errorf("invalid page token %q", pageToken)
		}
		builder = builder.Where(
			qb.Eq("pool_id", poolID),
			qb.Expr("(grid_row, grid_col) > (?, ?)", afterRow, afterCol),
		)
	} else {
		builder = builder.Where(qb.Eq("pool_id", poolID))
	}

	query, args, err := builder.
		OrderBy("grid_row ASC", "grid_col ASC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return square.Page{}, fmt.Errorf("build list squares query: %w", err)
	}

	var rows []squareTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return square.Page{}, fmt.Errorf("list squares: %w", err)
	}

	page := square.Page{Items: make([]square.Square, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, squareFromRow(row))
	}
	if len(rows) == limit {
		last := rows[len(rows)-1]
		page.NextToken = fmt.Sprintf("%d:%d", last.GridRow, last.GridCol)
	}

	return page, nil
}

func (r *SquareRepository) CountByPool(ctx context.Context, poolID string) (int, error) {
	query, args, err := qb.Select("COUNT(*)").
		From("squares").
		Where(qb.Eq("pool_id", poolID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count squares query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count squares: %w", err)
	}

	return count, nil
}

func (r *SquareRepository) Create(ctx context.Context, item square.Square) (square.Square, error) {
	insertModel := squareInsertModel{
		ID:      item.ID,
		PoolID:  item.PoolID,
		GridRow: item.Row,
		GridCol: item.Col,
	}

	// Concurrent initializers may race on the same cell; the first insert
	// wins and the rest are no-ops.
	query, args, err := qb.InsertModel("squares", insertModel, "ON CONFLICT (pool_id, grid_row, grid_col) DO NOTHING")
	if err != nil {
		return square.Square{}, fmt.Errorf("build create square query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return square.Square{}, fmt.Errorf("create square: %w", err)
	}

	return item, nil
}

func (r *SquareRepository) Update(ctx context.Context, item square.Square) (square.Square, error) {
	query, args, err := qb.Update("squares").
		Set("row_number", nullIntFromPtr(item.RowNumber)).
		Set("col_number", nullIntFromPtr(item.ColNumber)).
		Set("owner_id", nullString(item.OwnerID)).
		Set("owner_name", nullString(item.OwnerName)).
		Set("claimed_at", item.ClaimedAt).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", item.ID)).
		ToSQL()
	if err != nil {
		return square.Square{}, fmt.Errorf("build update square query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return square.Square{}, fmt.Errorf("update square: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return square.Square{}, fmt.Errorf("rows affected update square: %w", err)
	}
	if affected == 0 {
		return square.Square{}, fmt.Errorf("update square: not found")
	}

	return item, nil
}

// ClaimIfUnowned writes owner fields only while the row is unclaimed or
// already owned by the same user. Zero rows affected on an existing row
// means another owner won the race.
func (r *SquareRepository) ClaimIfUnowned(ctx context.Context, item square.Square) (square.Square, bool, error) {
	query, args, err := qb.Update("squares").
		Set("owner_id", nullString(item.OwnerID)).
		Set("owner_name", nullString(item.OwnerName)).
		Set("claimed_at", item.ClaimedAt).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", item.ID),
			qb.Expr("(owner_id IS NULL OR owner_id = ?)", item.OwnerID),
		).
		ToSQL()
	if err != nil {
		return square.Square{}, false, fmt.Errorf("build claim square query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return square.Square{}, false, fmt.Errorf("claim square: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return square.Square{}, false, fmt.Errorf("rows affected claim square: %w", err)
	}
	if affected == 0 {
		if _, exists, err := r.GetByID(ctx, item.ID); err != nil {
			return square.Square{}, false, err
		} else if !exists {
			return square.Square{}, false, fmt.Errorf("claim square: not found")
		}
		return square.Square{}, false, nil
	}

	return item, true, nil
}

func (r *SquareRepository) DeleteByID(ctx context.Context, squareID string) error {
	query, args, err := qb.DeleteFrom("squares").
		Where(qb.Eq("id", squareID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete square query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete square: %w", err)
	}

	return nil
}

func (r *SquareRepository) DeleteByPool(ctx context.Context, poolID string) error {
	query, args, err := qb.DeleteFrom("squares").
		Where(qb.Eq("pool_id", poolID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete pool squares query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete pool squares: %w", err)
	}

	return nil
}
