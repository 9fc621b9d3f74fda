package orchestrator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/numa-app/numa-core/internal/domain"
)

// generateNarrative builds the user-facing confirmation message for a batch
// of transactions produced by a single WRITE_LOG turn. A lone write gets a
// type-specific sentence; a batch gets a per-type tally instead, since
// reading back every individual amount would be unusable over voice.
func generateNarrative(transactions []*domain.Transaction) string {
	if len(transactions) == 0 {
		return "No se registró ningún movimiento."
	}

	if len(transactions) == 1 {
		return narrateSingle(transactions[0])
	}

	var expenses, incomes, debts []*domain.Transaction
	for _, t := range transactions {
		switch t.Type {
		case domain.TransactionExpense:
			expenses = append(expenses, t)
		case domain.TransactionIncome:
			incomes = append(incomes, t)
		case domain.TransactionDebt:
			debts = append(debts, t)
		}
	}

	var parts []string
	if len(expenses) > 0 {
		parts = append(parts, fmt.Sprintf("%d gastos (%s)", len(expenses), sumOf(expenses)))
	}
	if len(incomes) > 0 {
		parts = append(parts, fmt.Sprintf("%d ingresos (%s)", len(incomes), sumOf(incomes)))
	}
	if len(debts) > 0 {
		parts = append(parts, fmt.Sprintf("%d deudas (%s)", len(debts), sumOf(debts)))
	}

	if len(parts) == 0 {
		return "Procesé tus movimientos."
	}
	return fmt.Sprintf("Procesado: %s.", strings.Join(parts, ", "))
}

func narrateSingle(t *domain.Transaction) string {
	concept := strings.TrimSpace(t.Concept)
	if concept == "" {
		concept = "el movimiento"
	}
	amount := t.Amount.StringFixed(2)

	switch t.Type {
	case domain.TransactionIncome:
		return fmt.Sprintf("¡Súper! Registré el ingreso de %s por $%s.", concept, amount)
	case domain.TransactionDebt:
		return fmt.Sprintf("Entendido. Registré la deuda de %s por $%s.", concept, amount)
	}

	base := fmt.Sprintf("Listo. Anoté %s por $%s", concept, amount)
	if t.Merchant != nil {
		merchant := strings.TrimSpace(*t.Merchant)
		if merchant != "" && !strings.EqualFold(merchant, concept) {
			return base + fmt.Sprintf(" en %s.", merchant)
		}
	}
	return base + "."
}

func sumOf(transactions []*domain.Transaction) string {
	total := decimal.Zero
	for _, t := range transactions {
		total = total.Add(t.Amount)
	}
	return total.StringFixed(2)
}
