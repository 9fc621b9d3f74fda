package fim

import (
	"strings"

	"github.com/numa-app/numa-core/internal/domain"
)

// normalizeCategory mirrors the teacher's CategoryValidator normalization:
// trim and fold case so a model's "café/snacks" or " Compras " still
// resolves to the canonical taxonomy label.
func normalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var normalizedTaxonomy = buildNormalizedTaxonomy()

func buildNormalizedTaxonomy() map[string]domain.Category {
	m := make(map[string]domain.Category)
	for _, c := range domain.Categories() {
		m[normalizeCategory(string(c))] = c
	}
	return m
}

// CoerceCategory validates a raw model-returned label against the closed
// taxonomy, falling back to domain.CategoryDefault for anything outside it
// (including empty strings and case/whitespace variants the model emits).
func CoerceCategory(raw string) domain.Category {
	if c, ok := normalizedTaxonomy[normalizeCategory(raw)]; ok {
		return c
	}
	return domain.CategoryDefault
}

// AntExpenseThreshold is the currency amount below which a small spend at a
// café/convenience/kiosk merchant is nudged away from Despensa.
const AntExpenseThreshold = 200

// antExpenseMerchantHints are substrings of a merchant name that mark it as
// a café/convenience/kiosk context for the ant-expense rule.
var antExpenseMerchantHints = []string{
	"café", "cafe", "starbucks", "oxxo", "seven", "7-eleven", "kiosco", "snack",
}

// IsAntExpenseContext reports whether merchant looks like a café,
// convenience store, or kiosk for the purposes of the ant-expense rule.
func IsAntExpenseContext(merchant string) bool {
	m := normalizeCategory(merchant)
	for _, hint := range antExpenseMerchantHints {
		if strings.Contains(m, hint) {
			return true
		}
	}
	return false
}
