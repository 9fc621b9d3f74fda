package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/numa-app/numa-core/internal/api/middleware"
	"github.com/numa-app/numa-core/internal/domain"
)

// ownerFromRequest resolves the tenant ID for the request. Authentication
// itself is middleware.Auth's concern; handlers only read the header it
// would populate once real auth is wired in.
func ownerFromRequest(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// civilNow exists so handlers have a single seam to stub "today" in tests.
var civilNow = time.Now

func writeEnvelope(w http.ResponseWriter, envelope *domain.ResponseEnvelope) {
	status := http.StatusOK
	if envelope.Type == domain.EnvelopeError {
		status = envelopeErrorStatus(envelope.Error)
	}
	middleware.WriteJSON(w, status, envelope)
}

func writeErrorEnvelope(w http.ResponseWriter, status int, kind domain.ErrorKind) {
	middleware.WriteJSON(w, status, &domain.ResponseEnvelope{Type: domain.EnvelopeError, Error: kind})
}

func envelopeErrorStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindUnintelligibleAudio:
		return http.StatusUnprocessableEntity
	case domain.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrorKindNotFound, domain.ErrorKindNotProvisional, domain.ErrorKindMissingMerchant:
		return http.StatusUnprocessableEntity
	case domain.ErrorKindProviderError:
		return http.StatusBadGateway
	case domain.ErrorKindStorageError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeLedgerError maps a ledger/domain sentinel error to the corresponding
// HTTP status and error kind for the direct (non-envelope) REST endpoints.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotOwner):
		middleware.WriteError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, domain.ErrNotProvisional):
		middleware.WriteError(w, http.StatusConflict, "transaction is already verified")
	case errors.Is(err, domain.ErrMissingMerchant):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "merchant is required to verify this transaction")
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidConcept):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
