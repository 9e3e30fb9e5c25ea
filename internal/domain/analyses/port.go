package analyses

import "context"

// HistoryLimit is how many records a history listing returns.
const HistoryLimit = 20

// Repository port (interface untuk persistence)
//
// Every operation except Create is addressed by (id, owner). DeleteByIDAndOwner
// must test ownership and delete in one atomic step.
type Repository interface {
	Create(ctx context.Context, r *Record) (*Record, error)
	ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]*Record, error)
	GetByIDAndOwner(ctx context.Context, id ID, ownerID string) (*Record, error)
	DeleteByIDAndOwner(ctx context.Context, id ID, ownerID string) (int64, error)
}

// Archive keeps records whose analysis succeeded but could not be stored, so they
// can be replayed by hand.
type Archive interface {
	Put(ctx context.Context, r *Record, cause error) (string, error)
}
