package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/numa-app/numa-core/internal/domain"
	"github.com/numa-app/numa-core/internal/ledger"
)

var subIntentToType = map[domain.SubIntent]domain.TransactionType{
	domain.SubIntentExpense: domain.TransactionExpense,
	domain.SubIntentIncome:  domain.TransactionIncome,
	domain.SubIntentDebt:    domain.TransactionDebt,
}

// handleWriteLog implements the WRITE_LOG row of the dispatch table.
func (o *Orchestrator) handleWriteLog(ctx context.Context, owner string, record domain.IntentRecord) (*domain.Transaction, error) {
	if record.Entities.Amount == nil || record.Entities.Concept == nil {
		return nil, domain.ErrInvalidConcept
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(*record.Entities.Amount))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: parse amount: %w", domain.ErrInvalidAmount)
	}

	txType, ok := subIntentToType[record.SubIntent]
	if !ok {
		txType = domain.TransactionExpense
	}

	in := ledger.CreateProvisionalInput{
		Owner:   owner,
		Amount:  amount,
		Concept: strings.TrimSpace(*record.Entities.Concept),
		Type:    txType,
	}
	if record.Entities.Merchant != nil {
		in.Merchant = record.Entities.Merchant
	}
	if record.Entities.Category != nil {
		in.Category = record.Entities.Category
		confidence := record.Confidence
		in.CategoryConfidence = &confidence
	}
	if record.Entities.Date != nil {
		if d, err := civil.ParseDate(*record.Entities.Date); err == nil {
			in.Date = &d
		}
	}

	return o.ledger.CreateProvisional(ctx, in)
}

// handleReadQuery implements the READ_QUERY row: deterministic aggregation
// on the Ledger, then a constrained paraphrase of the precomputed figure.
func (o *Orchestrator) handleReadQuery(ctx context.Context, owner string, record domain.IntentRecord) (string, error) {
	filter := ledger.ListFilter{}

	periodName := "today"
	if record.Entities.Period != nil {
		periodName = *record.Entities.Period
	}
	today := civil.DateOf(time.Now().UTC())
	if strings.Contains(periodName, "..") {
		if p, err := ledger.ParseExplicitRange(periodName); err == nil {
			filter.Period = &p
		} else {
			p := ledger.ResolvePeriod("today", today)
			filter.Period = &p
		}
	} else {
		p := ledger.ResolvePeriod(periodName, today)
		filter.Period = &p
	}

	if record.Entities.Category != nil {
		c := domain.Category(*record.Entities.Category)
		filter.Category = &c
	}

	sum, err := o.ledger.SumByOwner(ctx, owner, filter)
	if err != nil {
		return "", err
	}

	summary := fmt.Sprintf("El usuario gastó %s en %d movimiento(s) durante el periodo solicitado.", sum.Total.String(), sum.Count)
	if sum.Count == 0 {
		summary = "No se encontraron movimientos en el periodo solicitado."
	} else {
		pendingFilter := filter
		provisional := domain.StatusProvisional
		pendingFilter.Status = &provisional
		pending, perr := o.ledger.SumByOwner(ctx, owner, pendingFilter)
		if perr == nil && pending.Count == sum.Count {
			summary = fmt.Sprintf("No hay movimientos verificados, pero hay %d movimiento(s) pendiente(s) por %s.", pending.Count, pending.Total.String())
		}
	}

	return o.classifier.Humanize(ctx, summary)
}

// handleConfirmUpdate implements the CONFIRM_UPDATE row: locate the most
// recent provisional transaction for the owner, optionally narrowed by a
// concept substring, and apply a merchant/category correction without
// touching amount.
func (o *Orchestrator) handleConfirmUpdate(ctx context.Context, owner string, record domain.IntentRecord) (string, error) {
	provisional := domain.StatusProvisional
	rows, err := o.ledger.ListByOwner(ctx, owner, ledger.ListFilter{Status: &provisional})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "No tienes movimientos pendientes por corregir.", nil
	}

	target := rows[len(rows)-1]
	if record.Entities.Concept != nil {
		needle := strings.ToLower(*record.Entities.Concept)
		for i := len(rows) - 1; i >= 0; i-- {
			if strings.Contains(strings.ToLower(rows[i].Concept), needle) {
				target = rows[i]
				break
			}
		}
	}

	hasMerchant := record.Entities.Merchant != nil && *record.Entities.Merchant != ""
	hasCategory := record.Entities.Category != nil && *record.Entities.Category != ""
	if !hasMerchant && !hasCategory {
		return fmt.Sprintf("Encontré el movimiento de %s, pero no identifiqué qué corregir.", target.Concept), nil
	}

	updated, err := o.ledger.CorrectAndVerifyManual(ctx, ledger.CorrectAndVerifyInput{
		Owner:    owner,
		ID:       target.ID,
		Merchant: record.Entities.Merchant,
		Category: record.Entities.Category,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Actualicé el movimiento de %s y lo marqué como verificado.", updated.Concept), nil
}

// handleAdvicePlan implements the ADVICE/PLAN row: gather a compact,
// precomputed context and hand it to the advice generator. No figure in
// the response may originate from the model alone.
func (o *Orchestrator) handleAdvicePlan(ctx context.Context, owner string, record domain.IntentRecord) (string, error) {
	validated := domain.StatusVerified
	sum, err := o.ledger.SumByOwner(ctx, owner, ledger.ListFilter{Status: &validated})
	if err != nil {
		return "", err
	}
	summary := fmt.Sprintf("Gasto verificado total: %s en %d movimiento(s).", sum.Total.String(), sum.Count)

	utterance := "solicitud de consejo financiero"
	if record.Entities.Concept != nil {
		utterance = *record.Entities.Concept
	}
	return o.classifier.Advise(ctx, utterance, summary)
}

// handleSteer implements the STEER row: a conversational redirect with no
// Ledger touch.
func handleSteer(record domain.IntentRecord) string {
	if record.SubIntent == domain.SubIntentMeta {
		return "Por ahora no puedo ejecutar ese comando del sistema, pero lo tengo anotado."
	}
	return "¡Hola! Cuéntame qué gastaste, qué ingresaste, o pregúntame por tus finanzas."
}

// handleClarify implements the CLARIFY row: a question asking for the
// missing concept or amount, with no Ledger touch.
func handleClarify(record domain.IntentRecord) string {
	if record.Entities.Reason != nil && *record.Entities.Reason == "unintelligible" {
		return "No logré entender lo que dijiste, ¿puedes repetirlo?"
	}
	missingAmount := record.Entities.Amount == nil
	missingConcept := record.Entities.Concept == nil
	switch {
	case missingAmount && missingConcept:
		return "Entendí que quieres registrar un movimiento, pero necesito el concepto y el monto."
	case missingAmount:
		return "Entendí el concepto, pero necesito el monto."
	case missingConcept:
		return "Entendí el monto, pero necesito saber de qué se trata."
	default:
		return "¿Puedes darme más detalles sobre ese movimiento?"
	}
}

func joinMessages(messages []string) string {
	return strings.Join(messages, " ")
}
