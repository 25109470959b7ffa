package square

import "context"

// Page is one page of squares plus the continuation token for the next
// page; an empty NextToken means the listing is exhausted.
type Page struct {
	Items     []Square
	NextToken string
}

// Repository describes square persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, squareID string) (Square, bool, error)
	ListByPool(ctx context.Context, poolID, pageToken string, limit int) (Page, error)
	CountByPool(ctx context.Context, poolID string) (int, error)
	Create(ctx context.Context, item Square) (Square, error)
	Update(ctx context.Context, item Square) (Square, error)
	// ClaimIfUnowned writes the owner fields of item only while the stored
	// record is unclaimed or already owned by item.OwnerID. The second
	// return is false when another owner won the race.
	ClaimIfUnowned(ctx context.Context, item Square) (Square, bool, error)
	DeleteByID(ctx context.Context, squareID string) error
	DeleteByPool(ctx context.Context, poolID string) error
}

// Feed delivers full-result-set snapshots of a pool's squares whenever the
// backing store changes. Snapshot, not delta, semantics.
type Feed interface {
	Subscribe(ctx context.Context, poolID string) (<-chan []Square, func(), error)
}

// ListAll pages through every square of a pool.
func ListAll(ctx context.Context, repo Repository, poolID string, pageSize int) ([]Square, error) {
	var (
		out   []Square
		token string
	)
	for {
		page, err := repo.ListByPool(ctx, poolID, token, pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if page.NextToken == "" {
			return out, nil
		}
		token = page.NextToken
	}
}
