package pool

import "context"

// Repository describes pool persistence needs from use cases.
type Repository interface {
	List(ctx context.Context) ([]Pool, error)
	GetByID(ctx context.Context, poolID string) (Pool, bool, error)
	Create(ctx context.Context, item Pool) (Pool, error)
	Update(ctx context.Context, item Pool) (Pool, error)
	Delete(ctx context.Context, poolID string) error
}
