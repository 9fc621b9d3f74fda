// Package ledger owns Users and Transactions, enforcing the one-way
// verification state machine and the owner-scoping invariant on every
// query.
package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/numa-app/numa-core/internal/domain"
	"github.com/numa-app/numa-core/internal/jobs"
)

// DefaultConfidenceThreshold is the minimum auto-categorization confidence
// accepted at write time (spec §9's resolved open question) when the caller
// does not configure one explicitly. Verification time applies the same
// threshold: below it, or on a provider error, the transaction gets
// domain.CategoryDefault and a recategorization job is enqueued.
const DefaultConfidenceThreshold = 0.7

// Ledger is the single authority over Transaction state.
type Ledger struct {
	store               Store
	categorizer         AutoCategorizer
	log                 zerolog.Logger
	now                 func() time.Time
	retryQueue          jobs.Publisher
	confidenceThreshold float64
}

// New builds a Ledger over store, using categorizer for auto-category
// assignment on write and on verification.
func New(store Store, categorizer AutoCategorizer, log zerolog.Logger) *Ledger {
	return &Ledger{store: store, categorizer: categorizer, log: log, now: time.Now, confidenceThreshold: DefaultConfidenceThreshold}
}

// SetConfidenceThreshold overrides the auto-categorization acceptance
// threshold, wiring in the operator-configured value from internal/config
// instead of DefaultConfidenceThreshold.
func (l *Ledger) SetConfidenceThreshold(threshold float64) {
	l.confidenceThreshold = threshold
}

// SetRetryQueue wires the background recategorization queue. Without it,
// autoCategorize's fallback to domain.CategoryDefault is permanent.
func (l *Ledger) SetRetryQueue(q jobs.Publisher) {
	l.retryQueue = q
}

// CreateProvisionalInput collects create_provisional's optional fields.
type CreateProvisionalInput struct {
	Owner    string
	Amount   decimal.Decimal
	Concept  string
	Type     domain.TransactionType
	Merchant *string
	Category *string
	Date     *civil.Date

	// CategoryConfidence is the FIM-reported confidence for Category, if
	// Category was extracted rather than user-supplied. A nil value is
	// treated as fully confident (caller-supplied data is trusted).
	CategoryConfidence *float64
}

// CreateProvisional implements ledger.create_provisional.
func (l *Ledger) CreateProvisional(ctx context.Context, in CreateProvisionalInput) (*domain.Transaction, error) {
	if in.Amount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if in.Concept == "" {
		return nil, domain.ErrInvalidConcept
	}
	if in.Owner == "" {
		return nil, domain.ErrUserNotFound
	}
	if in.Type == "" {
		in.Type = domain.TransactionExpense
	}

	t := &domain.Transaction{
		ID:              uuid.NewString(),
		OwnerID:         in.Owner,
		Type:            in.Type,
		Amount:          in.Amount,
		Concept:         in.Concept,
		Status:          domain.StatusProvisional,
		TransactionDate: in.Date,
		CreatedAt:       l.now(),
	}

	if in.Merchant != nil && *in.Merchant != "" && *in.Merchant != in.Concept {
		m := *in.Merchant
		t.Merchant = &m
	}

	if in.Category != nil {
		cat := domain.Category(*in.Category)
		confident := in.CategoryConfidence == nil || *in.CategoryConfidence >= l.confidenceThreshold
		if domain.ValidCategory(cat) && confident {
			t.Category = &cat
		}
	}

	if err := l.store.InsertProvisional(ctx, t); err != nil {
		return nil, fmt.Errorf("ledger: create provisional: %w", domain.ErrStorageError)
	}
	return t, nil
}

// VerifyDocumentInput carries the authoritative fields a document analyzer
// extracted from a receipt or statement.
type VerifyDocumentInput struct {
	Owner       string
	ID          string
	Amount      decimal.Decimal
	Merchant    string
	Transaction civil.Date
}

// VerifyWithDocument implements ledger.verify_with_document. The document's
// amount overwrites the provisional amount; concept is preserved.
func (l *Ledger) VerifyWithDocument(ctx context.Context, in VerifyDocumentInput) (*domain.Transaction, error) {
	if in.Merchant == "" {
		return nil, domain.ErrMissingMerchant
	}

	verifiedAt := l.now()
	date := in.Transaction
	result, err := l.store.CompareAndSwapStatus(ctx, in.Owner, in.ID, domain.StatusProvisional, func(t *domain.Transaction) {
		t.Amount = in.Amount
		merchant := in.Merchant
		t.Merchant = &merchant
		t.TransactionDate = &date
		t.Status = domain.StatusVerified
		t.VerifiedAt = &verifiedAt
	})
	if err != nil {
		return nil, err
	}

	l.autoCategorize(ctx, result)
	return result, nil
}

// VerifyManualInput carries the owner/id pair for a manual verification.
type VerifyManualInput struct {
	Owner string
	ID    string
}

// VerifyManual implements ledger.verify_manual.
func (l *Ledger) VerifyManual(ctx context.Context, in VerifyManualInput) (*domain.Transaction, error) {
	existing, err := l.store.GetForOwner(ctx, in.Owner, in.ID)
	if err != nil {
		return nil, err
	}
	if existing.Merchant == nil || *existing.Merchant == "" {
		return nil, domain.ErrMissingMerchant
	}

	verifiedAt := l.now()
	result, err := l.store.CompareAndSwapStatus(ctx, in.Owner, in.ID, domain.StatusProvisional, func(t *domain.Transaction) {
		t.Status = domain.StatusVerifiedManual
		t.VerifiedAt = &verifiedAt
	})
	if err != nil {
		return nil, err
	}

	if result.Category == nil {
		l.autoCategorize(ctx, result)
	}
	return result, nil
}

// CorrectAndVerifyInput carries a CONFIRM_UPDATE correction: the merchant
// and/or category extracted from the correction utterance, applied to a
// PROVISIONAL transaction as it transitions to VERIFIED_MANUAL.
type CorrectAndVerifyInput struct {
	Owner    string
	ID       string
	Merchant *string
	Category *string
}

// CorrectAndVerifyManual implements ledger.confirm_update: it applies a
// merchant/category correction and verifies the transaction in the same
// compare-and-swap, so a merchant named only in the correction (never set
// at write time) satisfies the merchant requirement instead of VerifyManual
// rejecting it with domain.ErrMissingMerchant.
func (l *Ledger) CorrectAndVerifyManual(ctx context.Context, in CorrectAndVerifyInput) (*domain.Transaction, error) {
	hasMerchant := in.Merchant != nil && *in.Merchant != ""
	hasCategory := in.Category != nil && *in.Category != ""
	if !hasMerchant && !hasCategory {
		return nil, domain.ErrMissingMerchant
	}

	existing, err := l.store.GetForOwner(ctx, in.Owner, in.ID)
	if err != nil {
		return nil, err
	}

	merchant := existing.Merchant
	if hasMerchant {
		m := *in.Merchant
		merchant = &m
	}
	if merchant == nil || *merchant == "" {
		return nil, domain.ErrMissingMerchant
	}

	var category *domain.Category
	if hasCategory {
		c := domain.Category(*in.Category)
		if domain.ValidCategory(c) {
			category = &c
		}
	}

	verifiedAt := l.now()
	result, err := l.store.CompareAndSwapStatus(ctx, in.Owner, in.ID, domain.StatusProvisional, func(t *domain.Transaction) {
		t.Merchant = merchant
		if category != nil {
			t.Category = category
		}
		t.Status = domain.StatusVerifiedManual
		t.VerifiedAt = &verifiedAt
	})
	if err != nil {
		return nil, err
	}

	if result.Category == nil {
		l.autoCategorize(ctx, result)
	}
	return result, nil
}

// autoCategorize runs the best-effort classification step on transition to
// a terminal status. A ProviderError never fails the verify call: the
// transaction keeps domain.CategoryDefault and the caller can retry later
// through the background categorization queue.
func (l *Ledger) autoCategorize(ctx context.Context, t *domain.Transaction) {
	if t.Category != nil || l.categorizer == nil {
		return
	}

	label, confidence, err := l.categorizer.ClassifyCategory(ctx, t.Concept, t.Merchant)
	final := domain.CategoryDefault
	fellBack := true
	if err == nil && confidence >= l.confidenceThreshold && domain.ValidCategory(label) {
		final = label
		fellBack = false
	} else if err != nil {
		l.log.Warn().Err(err).Str("transaction_id", t.ID).Msg("auto-categorization failed, defaulting category")
	}

	if _, err := l.store.CompareAndSwapStatus(ctx, t.OwnerID, t.ID, t.Status, func(mut *domain.Transaction) {
		mut.Category = &final
	}); err != nil {
		l.log.Warn().Err(err).Str("transaction_id", t.ID).Msg("failed to persist auto-categorization result")
	}
	t.Category = &final

	if fellBack && l.retryQueue != nil {
		job := &jobs.RecategorizeJob{TransactionID: t.ID, OwnerID: t.OwnerID}
		if err := l.retryQueue.PublishRecategorize(ctx, job); err != nil {
			l.log.Warn().Err(err).Str("transaction_id", t.ID).Msg("failed to enqueue recategorization retry")
		}
	}
}

// Recategorize re-runs auto-categorization for a transaction that was
// verified with domain.CategoryDefault because the live classification call
// failed or fell below the configured confidence threshold. It is the
// operation the background retry queue drives; unlike autoCategorize it
// overwrites an existing default category rather than skipping transactions
// that already have one.
func (l *Ledger) Recategorize(ctx context.Context, owner, id string) error {
	t, err := l.store.GetForOwner(ctx, owner, id)
	if err != nil {
		return err
	}
	if t.Category != nil && *t.Category != domain.CategoryDefault {
		return nil
	}

	label, confidence, err := l.categorizer.ClassifyCategory(ctx, t.Concept, t.Merchant)
	if err != nil {
		return fmt.Errorf("ledger: recategorize: %w", domain.ErrProviderError)
	}
	if confidence < l.confidenceThreshold || !domain.ValidCategory(label) {
		return fmt.Errorf("ledger: recategorize: confidence %.2f below threshold", confidence)
	}

	_, err = l.store.CompareAndSwapStatus(ctx, owner, id, t.Status, func(mut *domain.Transaction) {
		mut.Category = &label
	})
	if err != nil {
		return fmt.Errorf("ledger: recategorize: persist: %w", err)
	}
	return nil
}

// ListByOwner implements ledger.list_by_owner.
func (l *Ledger) ListByOwner(ctx context.Context, owner string, filter ListFilter) ([]*domain.Transaction, error) {
	if owner == "" {
		return nil, domain.ErrUserNotFound
	}
	rows, err := l.store.ListByOwner(ctx, owner, filter)
	if err != nil {
		return nil, fmt.Errorf("ledger: list by owner: %w", domain.ErrStorageError)
	}
	return rows, nil
}

// SumByOwner implements ledger.sum_by_owner: a deterministic aggregation
// over ListByOwner's result set.
func (l *Ledger) SumByOwner(ctx context.Context, owner string, filter ListFilter) (Sum, error) {
	rows, err := l.ListByOwner(ctx, owner, filter)
	if err != nil {
		return Sum{}, err
	}
	total := decimal.Zero
	for _, t := range rows {
		total = total.Add(t.Amount)
	}
	return Sum{Total: total, Count: len(rows)}, nil
}

// DailySummary implements ledger.daily_summary.
func (l *Ledger) DailySummary(ctx context.Context, owner string, date civil.Date) (DaySummary, error) {
	period := &Period{Start: date, End: date}
	rows, err := l.ListByOwner(ctx, owner, ListFilter{Period: period})
	if err != nil {
		return DaySummary{}, err
	}

	var summary DaySummary
	for _, t := range rows {
		var bucket *Sum
		target := &summary.Provisional
		if t.Status.Terminal() {
			target = &summary.Validated
		}
		switch t.Type {
		case domain.TransactionIncome:
			bucket = &target.Income
		default:
			bucket = &target.Expense
		}
		bucket.Total = bucket.Total.Add(t.Amount)
		bucket.Count++
	}
	return summary, nil
}
