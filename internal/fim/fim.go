package fim

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/numa-app/numa-core/internal/domain"
)

// Language and model defaults. DefaultLanguage is the language hint passed
// to the Transcriber on every call; DefaultSTTModel is not read anywhere in
// this module. Neither can be overridden through internal/config.
const (
	DefaultLanguage = "es-MX"
	DefaultSTTModel = "latest-long"
)

// onomatopoeia is the short list of filler utterances Level 1 rejects
// without spending a reasoning call on them.
var onomatopoeia = map[string]bool{
	"eh": true, "ah": true, "mmm": true, "uh": true, "um": true, "aja": true, "ajá": true,
}

// FIM is the stateless Financial Intent Motor. All dependencies are
// capability interfaces so tests inject deterministic fakes.
type FIM struct {
	transcriber Transcriber
	reasoner    Reasoner
	documents   DocumentAnalyzer
}

// New builds a FIM over the given capability implementations.
func New(transcriber Transcriber, reasoner Reasoner, documents DocumentAnalyzer) *FIM {
	return &FIM{transcriber: transcriber, reasoner: reasoner, documents: documents}
}

// Transcribe implements FIM.transcribe. It never falls back to sending raw
// audio to the reasoning stage. Empty audio or a blank transcript surfaces
// as domain.ErrUnintelligibleAudio; a Transcriber failure surfaces as
// domain.ErrProviderError.
func (f *FIM) Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error) {
	if len(audio) == 0 {
		return "", domain.ErrUnintelligibleAudio
	}
	text, err := f.transcriber.Transcribe(ctx, audio, mimeHint, DefaultLanguage)
	if err != nil {
		return "", fmt.Errorf("fim: transcribe: %w", domain.ErrProviderError)
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", domain.ErrUnintelligibleAudio
	}
	return trimmed, nil
}

// Classify implements FIM.classify: the deterministic 3-level cascade.
// Level 1 (validity) is resolved locally without a reasoning call; levels 2
// and 3 are resolved together by one reasoning call, since the model is
// already asked to emit the full discriminator set.
func (f *FIM) Classify(ctx context.Context, text string) ([]domain.IntentRecord, error) {
	trimmed := strings.TrimSpace(text)
	if !hasSignificantToken(trimmed) {
		reason := "unintelligible"
		return []domain.IntentRecord{{
			Intent:   domain.IntentClarify,
			Entities: domain.Entities{Reason: &reason},
		}}, nil
	}

	raw, err := f.reasoner.Complete(ctx, buildClassificationPrompt(trimmed))
	if err != nil {
		return nil, fmt.Errorf("fim: classify: %w", domain.ErrProviderError)
	}

	records, err := parseIntentRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("fim: classify: %w", err)
	}

	for i := range records {
		records[i] = enforceWriteLogContract(records[i])
		records[i] = applyAntExpenseRule(records[i])
	}
	return records, nil
}

// applyAntExpenseRule implements the Level 3 ant-expense heuristic: a small
// spend at a café/convenience/kiosk merchant should not land in Despensa
// even if the model classified it there.
func applyAntExpenseRule(r domain.IntentRecord) domain.IntentRecord {
	if r.Intent != domain.IntentWriteLog || r.Entities.Category == nil {
		return r
	}
	if domain.Category(*r.Entities.Category) != domain.CategoryDespensa {
		return r
	}
	if r.Entities.Merchant == nil || !IsAntExpenseContext(*r.Entities.Merchant) {
		return r
	}
	amount, err := strconv.ParseFloat(derefOrZero(r.Entities.Amount), 64)
	if err != nil || amount >= AntExpenseThreshold {
		return r
	}
	preferred := string(domain.CategoryCafeSnacks)
	r.Entities.Category = &preferred
	return r
}

func derefOrZero(s *string) string {
	if s == nil {
		return "0"
	}
	return *s
}

// hasSignificantToken implements Level 1 validity: reject empty,
// whitespace-only, onomatopoeic, or extremely short inputs.
func hasSignificantToken(s string) bool {
	if s == "" {
		return false
	}
	if onomatopoeia[strings.ToLower(s)] {
		return false
	}
	if len([]rune(s)) < 2 {
		return false
	}
	return true
}

// enforceWriteLogContract downgrades a model-labeled WRITE_LOG to CLARIFY
// if it lacks a required amount or concept, per spec §4.2's AMBIGUOUS rule
// and §7's "FIM must emit CLARIFY instead" error-handling note — this
// invariant must hold even if the reasoning model mislabels the intent.
func enforceWriteLogContract(r domain.IntentRecord) domain.IntentRecord {
	if r.Intent != domain.IntentWriteLog {
		return r
	}
	missingAmount := r.Entities.Amount == nil || strings.TrimSpace(*r.Entities.Amount) == ""
	missingConcept := r.Entities.Concept == nil || strings.TrimSpace(*r.Entities.Concept) == ""
	if missingAmount || missingConcept {
		reason := "missing_concept_or_amount"
		return domain.IntentRecord{
			Intent:   domain.IntentClarify,
			Entities: domain.Entities{Reason: &reason, Amount: r.Entities.Amount, Concept: r.Entities.Concept},
		}
	}
	return r
}

// ClassifyCategory implements FIM.classify_category. It also satisfies
// ledger.AutoCategorizer's method signature structurally, so a *FIM can be
// passed directly as the Ledger's categorizer dependency.
func (f *FIM) ClassifyCategory(ctx context.Context, concept string, merchant *string) (domain.Category, float64, error) {
	raw, err := f.reasoner.Complete(ctx, buildCategoryPrompt(concept, merchant))
	if err != nil {
		return domain.CategoryDefault, 0, fmt.Errorf("fim: classify category: %w", domain.ErrProviderError)
	}

	category, confidence, err := parseCategoryResponse(raw)
	if err != nil {
		return domain.CategoryDefault, 0, fmt.Errorf("fim: classify category: %w", err)
	}
	return category, confidence, nil
}

// Humanize paraphrases a precomputed figure for a READ_QUERY response. The
// context string is built by the orchestrator from Ledger aggregation
// results; FIM never invents the number itself.
func (f *FIM) Humanize(ctx context.Context, context string) (string, error) {
	text, err := f.reasoner.Complete(ctx, buildHumanizePrompt(context))
	if err != nil {
		return "", fmt.Errorf("fim: humanize: %w", domain.ErrProviderError)
	}
	return strings.TrimSpace(text), nil
}

// Advise generates ADVICE/PLAN text constrained to the precomputed context.
func (f *FIM) Advise(ctx context.Context, utterance, context string) (string, error) {
	text, err := f.reasoner.Complete(ctx, buildAdvicePrompt(utterance, context))
	if err != nil {
		return "", fmt.Errorf("fim: advise: %w", domain.ErrProviderError)
	}
	return strings.TrimSpace(text), nil
}

// AnalyzeDocument implements the auxiliary document-analyzer call used by
// verify_with_document.
func (f *FIM) AnalyzeDocument(ctx context.Context, documentBytes []byte) (DocumentAnalysis, error) {
	analysis, err := f.documents.Analyze(ctx, documentBytes)
	if err != nil {
		return DocumentAnalysis{}, fmt.Errorf("fim: analyze document: %w", domain.ErrProviderError)
	}
	return analysis, nil
}
