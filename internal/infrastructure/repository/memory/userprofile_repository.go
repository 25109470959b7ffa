package memory

import (
	"context"
	"sync"

	"github.com/NeseemGit/sb-squares/internal/domain/userprofile"
)

type UserProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]userprofile.UserProfile
}

func NewUserProfileRepository(profiles []userprofile.UserProfile) *UserProfileRepository {
	byUser := make(map[string]userprofile.UserProfile, len(profiles))
	for _, item := range profiles {
		byUser[item.UserID] = item
	}

	return &UserProfileRepository{profiles: byUser}
}

func (r *UserProfileRepository) GetByUserID(_ context.Context, userID string) (userprofile.UserProfile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.profiles[userID]
	if !ok {
		return userprofile.UserProfile{}, false, nil
	}

	return item, true, nil
}

func (r *UserProfileRepository) Upsert(_ context.Context, item userprofile.UserProfile) (userprofile.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[item.UserID] = item

	return item, nil
}
