package ledger

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/numa-app/numa-core/internal/domain"
	"github.com/shopspring/decimal"
)

// Period names a relative or explicit date range for filtering. Start and
// End are always set and are what filtering uses; Name records the
// shorthand the range was resolved from.
type Period struct {
	Name  string // "today", "this_week", "this_month", or "" for explicit range
	Start civil.Date
	End   civil.Date
}

// ListFilter narrows ListByOwner and SumByOwner results. Owner is not part
// of the filter: it is a mandatory, separate parameter on every Store
// method so that forgetting to scope a query is a compile error, not a
// runtime omission.
type ListFilter struct {
	Period   *Period
	Category *domain.Category
	Status   *domain.TransactionStatus
	Type     *domain.TransactionType
}

// Sum is a deterministic aggregation result.
type Sum struct {
	Total decimal.Decimal
	Count int
}

// BucketSummary groups a Sum by transaction direction.
type BucketSummary struct {
	Income  Sum
	Expense Sum
}

// DaySummary is the return shape of Ledger.DailySummary.
type DaySummary struct {
	Validated   BucketSummary
	Provisional BucketSummary
}

// Store is the persistence contract the Ledger drives. Two implementations
// exist: store/memory (mutex-guarded map, default) and store/bigquery
// (streaming inserts + parameterized queries, for a persisted deployment).
type Store interface {
	// InsertProvisional persists a new PROVISIONAL transaction. The
	// transaction's ID is assigned by the caller before this call.
	InsertProvisional(ctx context.Context, t *domain.Transaction) error

	// GetForOwner fetches a transaction by id, scoped to owner. Returns
	// domain.ErrNotOwner both when the row belongs to a different owner
	// and when it does not exist at all, so a caller cannot tell the two
	// apart.
	GetForOwner(ctx context.Context, owner, id string) (*domain.Transaction, error)

	// CompareAndSwapStatus atomically transitions a row from
	// expectedStatus to the mutated *next (the mutator closure may also
	// set other fields, e.g. amount, merchant, verified_at). It returns
	// domain.ErrNotProvisional if the current status does not match
	// expectedStatus, serializing concurrent verify attempts per id.
	CompareAndSwapStatus(ctx context.Context, owner, id string, expectedStatus domain.TransactionStatus, mutate func(*domain.Transaction)) (*domain.Transaction, error)

	// ListByOwner returns transactions for owner matching filter, ordered
	// by CreatedAt ascending.
	ListByOwner(ctx context.Context, owner string, filter ListFilter) ([]*domain.Transaction, error)
}
