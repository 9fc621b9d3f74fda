// Package handlers implements Numa's HTTP surface: voice/text message
// intake, document-backed and manual verification, and read-side listing,
// following the per-resource handler struct shape the original API layer
// used.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/numa-app/numa-core/internal/api/middleware"
	"github.com/numa-app/numa-core/internal/domain"
	"github.com/numa-app/numa-core/internal/fim"
	"github.com/numa-app/numa-core/internal/ledger"
	"github.com/numa-app/numa-core/internal/orchestrator"
	"github.com/numa-app/numa-core/internal/providers/gcsdocs"
)

// documentAnalyzer is the narrow slice of *fim.FIM the verification handler
// needs, kept separate from orchestrator.Classifier so tests can inject a
// one-method fake.
type documentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, documentBytes []byte) (fim.DocumentAnalysis, error)
}

// MessagesHandler serves the voice/text conversational entrypoint.
type MessagesHandler struct {
	orchestrator *orchestrator.Orchestrator
	log          zerolog.Logger
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(o *orchestrator.Orchestrator, log zerolog.Logger) *MessagesHandler {
	return &MessagesHandler{orchestrator: o, log: log}
}

// HandleText handles POST /api/messages/text.
func (h *MessagesHandler) HandleText(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		writeErrorEnvelope(w, http.StatusUnauthorized, domain.ErrorKindNotFound)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	envelope := h.orchestrator.HandleText(r.Context(), owner, req.Text)
	writeEnvelope(w, envelope)
}

// HandleVoice handles POST /api/messages/voice, accepting raw audio bytes
// in the request body with a Content-Type header identifying the codec.
func (h *MessagesHandler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		writeErrorEnvelope(w, http.StatusUnauthorized, domain.ErrorKindNotFound)
		return
	}

	audio, err := io.ReadAll(r.Body)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "failed to read audio body")
		return
	}

	mimeHint := r.Header.Get("Content-Type")
	if mimeHint == "" {
		mimeHint = "audio/ogg"
	}

	envelope := h.orchestrator.HandleVoice(r.Context(), owner, audio, mimeHint)
	writeEnvelope(w, envelope)
}

// VerificationHandler serves the two verify_* ledger operations.
type VerificationHandler struct {
	ledger   *ledger.Ledger
	fetcher  *gcsdocs.Fetcher
	analyzer documentAnalyzer
	log      zerolog.Logger
}

// NewVerificationHandler creates a new verification handler.
func NewVerificationHandler(led *ledger.Ledger, fetcher *gcsdocs.Fetcher, analyzer documentAnalyzer, log zerolog.Logger) *VerificationHandler {
	return &VerificationHandler{ledger: led, fetcher: fetcher, analyzer: analyzer, log: log}
}

// VerifyWithDocument handles POST /api/transactions/{id}/verify-document.
func (h *VerificationHandler) VerifyWithDocument(w http.ResponseWriter, r *http.Request, id string) {
	owner := ownerFromRequest(r)
	if owner == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "missing owner")
		return
	}

	var req struct {
		GCSURI string `json:"gcs_uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GCSURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri is required")
		return
	}

	ctx := r.Context()
	docBytes, err := h.fetcher.Fetch(ctx, req.GCSURI)
	if err != nil {
		h.log.Error().Err(err).Str("gcs_uri", req.GCSURI).Msg("failed to fetch document")
		middleware.WriteError(w, http.StatusBadGateway, "failed to fetch document")
		return
	}

	analysis, err := h.analyzer.AnalyzeDocument(ctx, docBytes)
	if err != nil {
		h.log.Error().Err(err).Msg("document analysis failed")
		middleware.WriteError(w, http.StatusBadGateway, "document analysis failed")
		return
	}

	amount, err := decimal.NewFromString(analysis.TotalAmount)
	if err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "document analysis returned a non-numeric amount")
		return
	}
	date, err := civil.ParseDate(analysis.Date)
	if err != nil {
		date = civil.DateOf(civilNow())
	}

	t, err := h.ledger.VerifyWithDocument(ctx, ledger.VerifyDocumentInput{
		Owner:       owner,
		ID:          id,
		Amount:      amount,
		Merchant:    analysis.Vendor,
		Transaction: date,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, t)
}

// VerifyManual handles POST /api/transactions/{id}/verify-manual.
func (h *VerificationHandler) VerifyManual(w http.ResponseWriter, r *http.Request, id string) {
	owner := ownerFromRequest(r)
	if owner == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "missing owner")
		return
	}

	t, err := h.ledger.VerifyManual(r.Context(), ledger.VerifyManualInput{Owner: owner, ID: id})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, t)
}

// TransactionsHandler serves the read-side listing and summary endpoints.
type TransactionsHandler struct {
	ledger *ledger.Ledger
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(led *ledger.Ledger, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ledger: led, log: log}
}

// ListTransactions handles GET /api/transactions.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "missing owner")
		return
	}

	filter := ledger.ListFilter{}
	query := r.URL.Query()
	if status := query.Get("status"); status != "" {
		s := domain.TransactionStatus(status)
		filter.Status = &s
	}
	if periodName := query.Get("period"); periodName != "" {
		today := civil.DateOf(civilNow())
		p := ledger.ResolvePeriod(periodName, today)
		filter.Period = &p
	}

	rows, err := h.ledger.ListByOwner(r.Context(), owner, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if rows == nil {
		rows = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, rows)
}

// DailySummary handles GET /api/summary/daily.
func (h *TransactionsHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "missing owner")
		return
	}

	date := civil.DateOf(civilNow())
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		if d, err := civil.ParseDate(dateStr); err == nil {
			date = d
		}
	}

	summary, err := h.ledger.DailySummary(r.Context(), owner, date)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to compute daily summary")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to compute daily summary")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}
