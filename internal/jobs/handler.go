package jobs

import (
	"context"
	"fmt"
)

// Recategorizer is the narrow Ledger slice the job handler drives — kept as
// an interface so tests substitute a fake Ledger without a Store/FIM pair.
type Recategorizer interface {
	Recategorize(ctx context.Context, owner, id string) error
}

// NewRecategorizeHandler builds the JobHandler the queue invokes per job.
func NewRecategorizeHandler(ledger Recategorizer) JobHandler {
	return func(ctx context.Context, job Job) error {
		rj, ok := job.(*RecategorizeJob)
		if !ok {
			return fmt.Errorf("jobs: unexpected job type %T", job)
		}
		return ledger.Recategorize(ctx, rj.OwnerID, rj.TransactionID)
	}
}
