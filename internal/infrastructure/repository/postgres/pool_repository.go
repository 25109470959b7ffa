package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/NeseemGit/sb-squares/internal/domain/pool"
	qb "github.com/NeseemGit/sb-squares/internal/platform/querybuilder"
)

type PoolRepository struct {
	db *sqlx.DB
}

func NewPoolRepository(db *sqlx.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

func (r *PoolRepository) List(ctx context.Context) ([]pool.Pool, error) {
	query, args, err := qb.Select("*").
		From("pools").
		Where(qb.IsNull("deleted_at")).
		OrderBy("created_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list pools query: %w", err)
	}

	var rows []poolTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	out := make([]pool.Pool, 0, len(rows))
	for _, row := range rows {
		p, err := poolFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PoolRepository) GetByID(ctx context.Context, poolID string) (pool.Pool, bool, error) {
	query, args, err := qb.Select("*").
		From("pools").
		Where(
			qb.Eq("id", poolID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return pool.Pool{}, false, fmt.Errorf("build get pool by id query: %w", err)
	}

	var row poolTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return pool.Pool{}, false, nil
		}
		return pool.Pool{}, false, fmt.Errorf("get pool by id: %w", err)
	}

	p, err := poolFromRow(row)
	if err != nil {
		return pool.Pool{}, false, err
	}
	return p, true, nil
}

func (r *PoolRepository) Create(ctx context.Context, item pool.Pool) (pool.Pool, error) {
	insertModel, err := poolToInsertModel(item)
	if err != nil {
		return pool.Pool{}, err
	}

	query, args, err := qb.InsertModel("pools", insertModel, "")
	if err != nil {
		return pool.Pool{}, fmt.Errorf("build create pool query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return pool.Pool{}, fmt.Errorf("create pool: %w", err)
	}

	return item, nil
}

func (r *PoolRepository) Update(ctx context.Context, item pool.Pool) (pool.Pool, error) {
	rowNumbers, err := encodeNumbers(item.RowNumbers)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("encode row numbers: %w", err)
	}
	colNumbers, err := encodeNumbers(item.ColNumbers)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("encode col numbers: %w", err)
	}
	winners, err := encodeWinners(item.WinningSquares)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("encode winning squares: %w", err)
	}

	query, args, err := qb.Update("pools").
		Set("name", item.Name).
		Set("description", item.Description).
		Set("event_date", item.EventDate).
		Set("price_per_square", item.PricePerSquare).
		Set("status", string(item.Status)).
		Set("row_numbers", rowNumbers).
		Set("col_numbers", colNumbers).
		Set("numbers_revealed", item.NumbersRevealed).
		Set("winning_squares", winners).
		Set("team_row_name", item.TeamRowName).
		Set("team_col_name", item.TeamColName).
		Set("commish_notes", item.CommishNotes).
		Set("prize_payouts", item.PrizePayouts).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", item.ID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return pool.Pool{}, fmt.Errorf("build update pool query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("update pool: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pool.Pool{}, fmt.Errorf("rows affected update pool: %w", err)
	}
	if affected == 0 {
		return pool.Pool{}, fmt.Errorf("update pool: not found")
	}

	return item, nil
}

func (r *PoolRepository) Delete(ctx context.Context, poolID string) error {
	query, args, err := qb.Update("pools").
		SetExpr("deleted_at", "NOW()").
		Where(
			qb.Eq("id", poolID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete pool query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete pool: %w", err)
	}

	return nil
}

func poolToInsertModel(item pool.Pool) (poolInsertModel, error) {
	rowNumbers, err := encodeNumbers(item.RowNumbers)
	if err != nil {
		return poolInsertModel{}, fmt.Errorf("encode row numbers: %w", err)
	}
	colNumbers, err := encodeNumbers(item.ColNumbers)
	if err != nil {
		return poolInsertModel{}, fmt.Errorf("encode col numbers: %w", err)
	}
	winners, err := encodeWinners(item.WinningSquares)
	if err != nil {
		return poolInsertModel{}, fmt.Errorf("encode winning squares: %w", err)
	}

	return poolInsertModel{
		ID:              item.ID,
		Name:            item.Name,
		Description:     item.Description,
		EventDate:       item.EventDate,
		GridSize:        item.GridSize,
		PricePerSquare:  item.PricePerSquare,
		Status:          string(item.Status),
		RowNumbers:      rowNumbers,
		ColNumbers:      colNumbers,
		NumbersRevealed: item.NumbersRevealed,
		WinningSquares:  winners,
		TeamRowName:     item.TeamRowName,
		TeamColName:     item.TeamColName,
		CommishNotes:    item.CommishNotes,
		PrizePayouts:    item.PrizePayouts,
	}, nil
}
