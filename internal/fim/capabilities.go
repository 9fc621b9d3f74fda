// Package fim implements the Financial Intent Motor: a stateless
// classifier and extractor for user utterances. It holds no per-user
// state and makes no database calls of its own — every dependency it
// needs (transcription, reasoning, document analysis) arrives as an
// injected capability so tests can substitute deterministic fakes, per
// the duck-typed-provider design note.
package fim

import "context"

// Transcriber is the capability contract over an external speech-to-text
// provider.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeHint, language string) (string, error)
}

// Reasoner is the capability contract over an external text-reasoning
// provider. It is deliberately prompt-in/text-out: FIM owns prompt
// construction and response parsing so the provider boundary stays thin.
type Reasoner interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// DocumentAnalysis is the structured result of analyzing a receipt or
// statement document.
type DocumentAnalysis struct {
	Vendor      string
	Date        string // YYYY-MM-DD
	TotalAmount string // decimal string, to avoid float round-trip loss
}

// DocumentAnalyzer is the capability contract over the auxiliary document
// understanding call used by verify_with_document.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, documentBytes []byte) (DocumentAnalysis, error)
}
