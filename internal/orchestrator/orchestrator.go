// Package orchestrator receives voice/text input, drives the Financial
// Intent Motor, dispatches one handler per resolved intent, and synthesizes
// the user-facing response envelope.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/numa-app/numa-core/internal/domain"
	"github.com/numa-app/numa-core/internal/fim"
	"github.com/numa-app/numa-core/internal/ledger"
)

// Transcriber is the narrow slice of *fim.FIM the orchestrator calls for
// voice input, kept as an interface so tests can substitute a fake without
// constructing a full FIM.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error)
}

// Classifier is the narrow slice of *fim.FIM used for text classification
// and the downstream paraphrase/advice calls.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]domain.IntentRecord, error)
	Humanize(ctx context.Context, context string) (string, error)
	Advise(ctx context.Context, utterance, context string) (string, error)
	AnalyzeDocument(ctx context.Context, documentBytes []byte) (fim.DocumentAnalysis, error)
}

// Orchestrator wires the Ledger and the FIM together per the dispatch table
// in spec §4.3.
type Orchestrator struct {
	transcriber Transcriber
	classifier  Classifier
	ledger      *ledger.Ledger
	log         zerolog.Logger
}

// New builds an Orchestrator. The FIM satisfies both Transcriber and
// Classifier, so callers typically pass the same *fim.FIM for both.
func New(transcriber Transcriber, classifier Classifier, led *ledger.Ledger, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{transcriber: transcriber, classifier: classifier, ledger: led, log: log}
}

// HandleVoice implements orchestrator.handle_voice.
func (o *Orchestrator) HandleVoice(ctx context.Context, owner string, audio []byte, mimeHint string) *domain.ResponseEnvelope {
	text, err := o.transcriber.Transcribe(ctx, audio, mimeHint)
	if err != nil {
		if errors.Is(err, domain.ErrUnintelligibleAudio) {
			return &domain.ResponseEnvelope{Type: domain.EnvelopeError, Error: domain.ErrorKindUnintelligibleAudio}
		}
		return o.providerErrorEnvelope(err)
	}
	return o.HandleText(ctx, owner, text)
}

// HandleText implements orchestrator.handle_text.
func (o *Orchestrator) HandleText(ctx context.Context, owner string, text string) *domain.ResponseEnvelope {
	select {
	case <-ctx.Done():
		return &domain.ResponseEnvelope{Type: domain.EnvelopeError, Error: domain.ErrorKindTimeout}
	default:
	}

	records, err := o.classifier.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &domain.ResponseEnvelope{Type: domain.EnvelopeError, Error: domain.ErrorKindTimeout}
		}
		return o.providerErrorEnvelope(err)
	}

	return o.dispatch(ctx, owner, records)
}

// dispatch runs each IntentRecord's matching handler sequentially,
// preserving write order and aborting remaining WRITE_LOG writes if one
// fails, per the ordering guarantees in spec §5.
func (o *Orchestrator) dispatch(ctx context.Context, owner string, records []domain.IntentRecord) *domain.ResponseEnvelope {
	var created []*domain.Transaction
	var chatMessages []string

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return o.partialEnvelope(created, chatMessages, domain.ErrorKindTimeout)
		}

		switch record.Intent {
		case domain.IntentWriteLog:
			t, err := o.handleWriteLog(ctx, owner, record)
			if err != nil {
				return o.writeFailureEnvelope(created, err)
			}
			created = append(created, t)

		case domain.IntentReadQuery:
			msg, err := o.handleReadQuery(ctx, owner, record)
			if err != nil {
				return o.providerErrorEnvelope(err)
			}
			chatMessages = append(chatMessages, msg)

		case domain.IntentConfirmUpdate:
			msg, err := o.handleConfirmUpdate(ctx, owner, record)
			if err != nil {
				chatMessages = append(chatMessages, fmt.Sprintf("No pude actualizar ese movimiento: %s", humanizeDomainError(err)))
				continue
			}
			chatMessages = append(chatMessages, msg)

		case domain.IntentAdvice, domain.IntentPlan:
			msg, err := o.handleAdvicePlan(ctx, owner, record)
			if err != nil {
				return o.providerErrorEnvelope(err)
			}
			chatMessages = append(chatMessages, msg)

		case domain.IntentSteer:
			chatMessages = append(chatMessages, handleSteer(record))

		case domain.IntentClarify:
			chatMessages = append(chatMessages, handleClarify(record))
		}
	}

	if len(created) > 0 {
		return &domain.ResponseEnvelope{
			Type:    domain.EnvelopeTransaction,
			Data:    created,
			Message: generateNarrative(created),
		}
	}

	return &domain.ResponseEnvelope{
		Type:    domain.EnvelopeChat,
		Message: joinMessages(chatMessages),
	}
}

func (o *Orchestrator) writeFailureEnvelope(succeeded []*domain.Transaction, err error) *domain.ResponseEnvelope {
	o.log.Warn().Err(err).Msg("write_log aborted remaining writes after failure")
	kind := domain.ErrorKindStorageError
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidConcept):
		kind = domain.ErrorKindNotFound
	}
	return &domain.ResponseEnvelope{
		Type:    domain.EnvelopeTransaction,
		Data:    succeeded,
		Message: generateNarrative(succeeded),
		Error:   kind,
	}
}

func (o *Orchestrator) partialEnvelope(succeeded []*domain.Transaction, chat []string, kind domain.ErrorKind) *domain.ResponseEnvelope {
	envType := domain.EnvelopeChat
	if len(succeeded) > 0 {
		envType = domain.EnvelopeTransaction
	}
	return &domain.ResponseEnvelope{
		Type:    envType,
		Data:    succeeded,
		Message: joinMessages(chat),
		Error:   kind,
	}
}

func (o *Orchestrator) providerErrorEnvelope(err error) *domain.ResponseEnvelope {
	o.log.Error().Err(err).Msg("provider error")
	return &domain.ResponseEnvelope{Type: domain.EnvelopeError, Error: domain.ErrorKindProviderError}
}

func humanizeDomainError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotProvisional):
		return "ya fue verificado"
	case errors.Is(err, domain.ErrNotOwner):
		return "no encontrado"
	case errors.Is(err, domain.ErrMissingMerchant):
		return "falta el comercio"
	default:
		return "error interno"
	}
}
