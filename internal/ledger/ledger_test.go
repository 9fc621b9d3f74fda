package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/numa-app/numa-core/internal/domain"
	"github.com/numa-app/numa-core/internal/jobs"
	"github.com/numa-app/numa-core/internal/ledger"
	memstore "github.com/numa-app/numa-core/internal/ledger/store/memory"
	"github.com/numa-app/numa-core/internal/logger"
)

type fakeCategorizer struct {
	category   domain.Category
	confidence float64
	err        error
	calls      int
}

func (f *fakeCategorizer) ClassifyCategory(ctx context.Context, concept string, merchant *string) (domain.Category, float64, error) {
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.category, f.confidence, nil
}

type fakePublisher struct {
	published []*jobs.RecategorizeJob
	err       error
}

func (p *fakePublisher) PublishRecategorize(ctx context.Context, job *jobs.RecategorizeJob) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, job)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func newTestLedger(categorizer ledger.AutoCategorizer) *ledger.Ledger {
	return ledger.New(memstore.New(), categorizer, logger.New())
}

func TestCreateProvisional_RejectsInvalidInput(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	ctx := context.Background()

	if _, err := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.Zero, Concept: "tacos"}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(10), Concept: ""}); !errors.Is(err, domain.ErrInvalidConcept) {
		t.Errorf("expected ErrInvalidConcept, got %v", err)
	}
	if _, err := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "", Amount: decimal.NewFromInt(10), Concept: "tacos"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateProvisional_DefaultsTypeToExpense(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	tx, err := led.CreateProvisional(context.Background(), ledger.CreateProvisionalInput{
		Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Type != domain.TransactionExpense {
		t.Errorf("expected default type EXPENSE, got %v", tx.Type)
	}
	if tx.Status != domain.StatusProvisional {
		t.Errorf("expected PROVISIONAL status, got %v", tx.Status)
	}
}

func TestCreateProvisional_LowConfidenceCategoryIsDropped(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	lowConfidence := 0.3
	category := string(domain.CategoryDespensa)
	tx, err := led.CreateProvisional(context.Background(), ledger.CreateProvisionalInput{
		Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos",
		Category: &category, CategoryConfidence: &lowConfidence,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Category != nil {
		t.Errorf("expected low-confidence category to be dropped, got %v", tx.Category)
	}
}

func TestCreateProvisional_IgnoresMerchantEqualToConcept(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	tx, err := led.CreateProvisional(context.Background(), ledger.CreateProvisionalInput{
		Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "Starbucks", Merchant: strPtr("Starbucks"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Merchant != nil {
		t.Errorf("expected merchant matching concept to be dropped, got %v", *tx.Merchant)
	}
}

func TestVerifyWithDocument_RequiresMerchant(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	_, err := led.VerifyWithDocument(context.Background(), ledger.VerifyDocumentInput{Owner: "u1", ID: "tx1"})
	if !errors.Is(err, domain.ErrMissingMerchant) {
		t.Fatalf("expected ErrMissingMerchant, got %v", err)
	}
}

func TestVerifyWithDocument_TransitionsToVerifiedAndCategorizes(t *testing.T) {
	categorizer := &fakeCategorizer{category: domain.CategoryRestaurantes, confidence: 0.95}
	led := newTestLedger(categorizer)
	ctx := context.Background()

	tx, err := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := led.VerifyWithDocument(ctx, ledger.VerifyDocumentInput{
		Owner: "u1", ID: tx.ID, Amount: decimal.NewFromInt(150), Merchant: "Taqueria El Fogon", Transaction: civilToday(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusVerified {
		t.Errorf("expected VERIFIED status, got %v", updated.Status)
	}
	if !updated.Amount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected document amount to overwrite provisional amount, got %v", updated.Amount)
	}
	if updated.Category == nil || *updated.Category != domain.CategoryRestaurantes {
		t.Errorf("expected auto-categorization to apply, got %v", updated.Category)
	}
}

func TestVerifyWithDocument_CategorizationFailureFallsBackAndEnqueuesRetry(t *testing.T) {
	categorizer := &fakeCategorizer{err: errors.New("provider down")}
	led := newTestLedger(categorizer)
	publisher := &fakePublisher{}
	led.SetRetryQueue(publisher)
	ctx := context.Background()

	tx, err := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := led.VerifyWithDocument(ctx, ledger.VerifyDocumentInput{
		Owner: "u1", ID: tx.ID, Amount: decimal.NewFromInt(150), Merchant: "Taqueria El Fogon", Transaction: civilToday(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Category == nil || *updated.Category != domain.CategoryDefault {
		t.Errorf("expected fallback to CategoryDefault, got %v", updated.Category)
	}
	if len(publisher.published) != 1 || publisher.published[0].TransactionID != tx.ID {
		t.Errorf("expected a recategorization job to be enqueued, got %+v", publisher.published)
	}
}

func TestVerifyWithDocument_SecondAttemptFailsWithNotProvisional(t *testing.T) {
	categorizer := &fakeCategorizer{category: domain.CategoryRestaurantes, confidence: 0.95}
	led := newTestLedger(categorizer)
	ctx := context.Background()

	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos"})
	in := ledger.VerifyDocumentInput{Owner: "u1", ID: tx.ID, Amount: decimal.NewFromInt(150), Merchant: "Taqueria", Transaction: civilToday()}

	if _, err := led.VerifyWithDocument(ctx, in); err != nil {
		t.Fatalf("unexpected error on first verify: %v", err)
	}
	if _, err := led.VerifyWithDocument(ctx, in); !errors.Is(err, domain.ErrNotProvisional) {
		t.Fatalf("expected ErrNotProvisional on re-verification, got %v", err)
	}
}

func TestVerifyManual_RequiresExistingMerchant(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	ctx := context.Background()

	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos"})
	_, err := led.VerifyManual(ctx, ledger.VerifyManualInput{Owner: "u1", ID: tx.ID})
	if !errors.Is(err, domain.ErrMissingMerchant) {
		t.Fatalf("expected ErrMissingMerchant, got %v", err)
	}
}

func TestVerifyManual_CrossOwnerAccessIsRejected(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	ctx := context.Background()

	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos", Merchant: strPtr("Taqueria")})
	_, err := led.VerifyManual(ctx, ledger.VerifyManualInput{Owner: "u2", ID: tx.ID})
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestListByOwner_RequiresOwner(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	_, err := led.ListByOwner(context.Background(), "", ledger.ListFilter{})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSumByOwner_AggregatesOnlyMatchingRows(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	ctx := context.Background()

	led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "a"})
	led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(50), Concept: "b"})
	led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u2", Amount: decimal.NewFromInt(1000), Concept: "c"})

	sum, err := led.SumByOwner(ctx, "u1", ledger.ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Count != 2 || !sum.Total.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected count=2 total=150, got count=%d total=%v", sum.Count, sum.Total)
	}
}

func TestRecategorize_SkipsAlreadyCategorizedTransactions(t *testing.T) {
	categorizer := &fakeCategorizer{category: domain.CategoryRestaurantes, confidence: 0.95}
	led := newTestLedger(categorizer)
	ctx := context.Background()

	category := string(domain.CategoryVivienda)
	confidence := 1.0
	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{
		Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "renta", Category: &category, CategoryConfidence: &confidence,
	})

	if err := led.Recategorize(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if categorizer.calls != 0 {
		t.Errorf("expected no reclassification call for an already-categorized transaction, got %d calls", categorizer.calls)
	}
}

func TestRecategorize_OverwritesFallenBackDefaultAboveThreshold(t *testing.T) {
	store := memstore.New()
	failing := &fakeCategorizer{err: errors.New("down")}
	led := ledger.New(store, failing, logger.New())
	ctx := context.Background()

	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos", Merchant: strPtr("Taqueria")})
	verified, err := led.VerifyWithDocument(ctx, ledger.VerifyDocumentInput{Owner: "u1", ID: tx.ID, Amount: decimal.NewFromInt(100), Merchant: "Taqueria", Transaction: civilToday()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verified.Category == nil || *verified.Category != domain.CategoryDefault {
		t.Fatalf("expected fallback to CategoryDefault, got %v", verified.Category)
	}

	succeeding := &fakeCategorizer{category: domain.CategoryRestaurantes, confidence: 0.9}
	retryLedger := ledger.New(store, succeeding, logger.New())
	if err := retryLedger.Recategorize(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := retryLedger.ListByOwner(ctx, "u1", ledger.ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Category == nil || *rows[0].Category != domain.CategoryRestaurantes {
		t.Fatalf("expected recategorization to overwrite the default category, got %+v", rows)
	}
}

func TestRecategorize_BelowThresholdReturnsError(t *testing.T) {
	store := memstore.New()
	led := ledger.New(store, &fakeCategorizer{err: errors.New("down")}, logger.New())
	ctx := context.Background()

	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos", Merchant: strPtr("Taqueria")})
	led.VerifyWithDocument(ctx, ledger.VerifyDocumentInput{Owner: "u1", ID: tx.ID, Amount: decimal.NewFromInt(100), Merchant: "Taqueria", Transaction: civilToday()})

	lowConfidence := &fakeCategorizer{category: domain.CategoryRestaurantes, confidence: 0.2}
	retryLedger := ledger.New(store, lowConfidence, logger.New())
	if err := retryLedger.Recategorize(ctx, "u1", tx.ID); err == nil {
		t.Fatal("expected an error for a below-threshold recategorization result")
	}
}

func TestCorrectAndVerifyManual_SetsMerchantOnAMerchantlessProvisional(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{category: domain.CategoryRestaurantes, confidence: 0.95})
	ctx := context.Background()

	tx, err := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(80), Concept: "cafe"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Merchant != nil {
		t.Fatalf("expected the seeded transaction to start without a merchant, got %v", *tx.Merchant)
	}

	updated, err := led.CorrectAndVerifyManual(ctx, ledger.CorrectAndVerifyInput{Owner: "u1", ID: tx.ID, Merchant: strPtr("Starbucks")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Merchant == nil || *updated.Merchant != "Starbucks" {
		t.Errorf("expected the correction to set the merchant, got %v", updated.Merchant)
	}
	if updated.Status != domain.StatusVerifiedManual {
		t.Errorf("expected VERIFIED_MANUAL status, got %v", updated.Status)
	}
}

func TestCorrectAndVerifyManual_RequiresMerchantOrCategory(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	ctx := context.Background()

	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(80), Concept: "cafe"})
	_, err := led.CorrectAndVerifyManual(ctx, ledger.CorrectAndVerifyInput{Owner: "u1", ID: tx.ID})
	if !errors.Is(err, domain.ErrMissingMerchant) {
		t.Fatalf("expected ErrMissingMerchant when neither merchant nor category is given, got %v", err)
	}
}

func TestCorrectAndVerifyManual_CategoryOnlyKeepsExistingMerchant(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	ctx := context.Background()

	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{
		Owner: "u1", Amount: decimal.NewFromInt(80), Concept: "cafe", Merchant: strPtr("Starbucks"),
	})

	category := string(domain.CategoryCafeSnacks)
	updated, err := led.CorrectAndVerifyManual(ctx, ledger.CorrectAndVerifyInput{Owner: "u1", ID: tx.ID, Category: &category})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Merchant == nil || *updated.Merchant != "Starbucks" {
		t.Errorf("expected the existing merchant to be kept, got %v", updated.Merchant)
	}
	if updated.Category == nil || *updated.Category != domain.CategoryCafeSnacks {
		t.Errorf("expected the corrected category to apply, got %v", updated.Category)
	}
}

func TestCorrectAndVerifyManual_CategoryOnlyStillRequiresAMerchant(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{})
	ctx := context.Background()

	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(80), Concept: "cafe"})
	category := string(domain.CategoryCafeSnacks)
	_, err := led.CorrectAndVerifyManual(ctx, ledger.CorrectAndVerifyInput{Owner: "u1", ID: tx.ID, Category: &category})
	if !errors.Is(err, domain.ErrMissingMerchant) {
		t.Fatalf("expected a category-only correction on a merchantless transaction to still require a merchant, got %v", err)
	}
}

func TestDailySummary_SplitsProvisionalFromValidated(t *testing.T) {
	led := newTestLedger(&fakeCategorizer{category: domain.CategoryRestaurantes, confidence: 0.95})
	ctx := context.Background()

	// A voice-logged transaction has no TransactionDate yet; DailySummary
	// must still bucket it under today via CreatedAt.
	provisional, err := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{
		Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos", Type: domain.TransactionExpense,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	verified, err := led.VerifyWithDocument(ctx, ledger.VerifyDocumentInput{
		Owner: "u1", ID: provisional.ID, Amount: decimal.NewFromInt(100), Merchant: "Taqueria", Transaction: civilToday(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{
		Owner: "u1", Amount: decimal.NewFromInt(40), Concept: "cafe", Type: domain.TransactionExpense,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err := led.DailySummary(ctx, "u1", civilToday())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Provisional.Expense.Count != 1 || !summary.Provisional.Expense.Total.Equal(second.Amount) {
		t.Errorf("expected the still-provisional transaction in the provisional bucket, got %+v", summary.Provisional)
	}
	if summary.Validated.Expense.Count != 1 || !summary.Validated.Expense.Total.Equal(verified.Amount) {
		t.Errorf("expected the verified transaction in the validated bucket, got %+v", summary.Validated)
	}
}

func TestSetConfidenceThreshold_OverridesDefault(t *testing.T) {
	categorizer := &fakeCategorizer{category: domain.CategoryRestaurantes, confidence: 0.5}
	led := newTestLedger(categorizer)
	led.SetConfidenceThreshold(0.4)
	ctx := context.Background()

	tx, _ := led.CreateProvisional(ctx, ledger.CreateProvisionalInput{Owner: "u1", Amount: decimal.NewFromInt(100), Concept: "tacos", Merchant: strPtr("Taqueria")})
	updated, err := led.VerifyWithDocument(ctx, ledger.VerifyDocumentInput{Owner: "u1", ID: tx.ID, Amount: decimal.NewFromInt(100), Merchant: "Taqueria", Transaction: civilToday()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Category == nil || *updated.Category != domain.CategoryRestaurantes {
		t.Errorf("expected the lowered threshold to accept a 0.5-confidence classification, got %v", updated.Category)
	}
}

func strPtr(s string) *string { return &s }

func civilToday() civil.Date {
	return civil.DateOf(time.Now())
}
