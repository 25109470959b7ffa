package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/NeseemGit/sb-squares/internal/domain/userprofile"
	qb "github.com/NeseemGit/sb-squares/internal/platform/querybuilder"
)

type UserProfileRepository struct {
	db *sqlx.DB
}

func NewUserProfileRepository(db *sqlx.DB) *UserProfileRepository {
	return &UserProfileRepository{db: db}
}

func (r *UserProfileRepository) GetByUserID(ctx context.Context, userID string) (userprofile.UserProfile, bool, error) {
	query, args, err := qb.Select("*").
		From("user_profiles").
		Where(qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return userprofile.UserProfile{}, false, fmt.Errorf("build get user profile query: %w", err)
	}

	var row userProfileTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return userprofile.UserProfile{}, false, nil
		}
		return userprofile.UserProfile{}, false, fmt.Errorf("get user profile: %w", err)
	}

	return userProfileFromRow(row), true, nil
}

func (r *UserProfileRepository) Upsert(ctx context.Context, item userprofile.UserProfile) (userprofile.UserProfile, error) {
	insertModel := userProfileInsertModel{
		ID:          item.ID,
		UserID:      item.UserID,
		DisplayName: item.DisplayName,
		Email:       item.Email,
	}
	query, args, err := qb.InsertModel("user_profiles", insertModel, `ON CONFLICT (user_id)
DO UPDATE SET
    display_name = EXCLUDED.display_name,
    email = EXCLUDED.email,
    updated_at = NOW()`)
	if err != nil {
		return userprofile.UserProfile{}, fmt.Errorf("build upsert user profile query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return userprofile.UserProfile{}, fmt.Errorf("upsert user profile: %w", err)
	}

	return item, nil
}
