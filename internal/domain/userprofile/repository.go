package userprofile

import "context"

// Repository describes profile persistence needs from use cases. At most
// one profile exists per userId.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (UserProfile, bool, error)
	Upsert(ctx context.Context, item UserProfile) (UserProfile, error)
}
