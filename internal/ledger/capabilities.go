package ledger

import (
	"context"

	"github.com/numa-app/numa-core/internal/domain"
)

// AutoCategorizer is the capability contract the Ledger uses to assign a
// category on the transition to a terminal status, matching the duck-typed
// classifier client in the design notes as an explicit interface. The
// concrete implementation lives in internal/fim and is injected by
// cmd/api's wiring, not imported directly here, to avoid a ledger/fim
// import cycle.
type AutoCategorizer interface {
	ClassifyCategory(ctx context.Context, concept string, merchant *string) (domain.Category, float64, error)
}
