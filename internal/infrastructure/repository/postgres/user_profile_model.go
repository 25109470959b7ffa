package postgres

import (
	"time"

	"github.com/NeseemGit/sb-squares/internal/domain/userprofile"
)

type userProfileTableModel struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	DisplayName string    `db:"display_name"`
	Email       string    `db:"email"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type userProfileInsertModel struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	DisplayName string `db:"display_name"`
	Email       string `db:"email"`
}

func userProfileFromRow(row userProfileTableModel) userprofile.UserProfile {
	return userprofile.UserProfile{
		ID:          row.ID,
		UserID:      row.UserID,
		DisplayName: row.DisplayName,
		Email:       row.Email,
	}
}
