package fim

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/numa-app/numa-core/internal/domain"
)

// stripJSONFence removes a ```json ... ``` or ``` ... ``` wrapper, mirroring
// the original Python reasoning client's response cleanup before
// json.loads.
func stripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// rawIntent is the wire shape the reasoning model returns for one
// classification entry.
type rawIntent struct {
	Intent     string   `json:"intent"`
	SubIntent  string   `json:"sub_intent"`
	Amount     *string  `json:"amount"`
	Concept    *string  `json:"concept"`
	Category   *string  `json:"category"`
	Merchant   *string  `json:"merchant"`
	Period     *string  `json:"period"`
	Date       *string  `json:"date"`
	Reason     *string  `json:"reason"`
	Confidence *float64 `json:"confidence"`
}

var validIntentKinds = map[string]domain.IntentKind{
	string(domain.IntentWriteLog):      domain.IntentWriteLog,
	string(domain.IntentReadQuery):     domain.IntentReadQuery,
	string(domain.IntentPlan):          domain.IntentPlan,
	string(domain.IntentAdvice):        domain.IntentAdvice,
	string(domain.IntentSteer):         domain.IntentSteer,
	string(domain.IntentConfirmUpdate): domain.IntentConfirmUpdate,
	string(domain.IntentClarify):       domain.IntentClarify,
}

var validSubIntents = map[string]domain.SubIntent{
	string(domain.SubIntentExpense): domain.SubIntentExpense,
	string(domain.SubIntentIncome):  domain.SubIntentIncome,
	string(domain.SubIntentDebt):    domain.SubIntentDebt,
	string(domain.SubIntentMeta):    domain.SubIntentMeta,
	string(domain.SubIntentSocial):  domain.SubIntentSocial,
}

// parseIntentRecords decodes the reasoning model's raw JSON array into the
// closed IntentRecord variant, rejecting unknown discriminators and
// coercing unknown category labels — the "dynamic JSON becomes a tagged
// variant" design note.
func parseIntentRecords(raw string) ([]domain.IntentRecord, error) {
	cleaned := stripJSONFence(raw)

	var entries []rawIntent
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return nil, fmt.Errorf("fim: parse classification response: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("fim: classification response was an empty array")
	}

	records := make([]domain.IntentRecord, 0, len(entries))
	for _, e := range entries {
		kind, ok := validIntentKinds[e.Intent]
		if !ok {
			return nil, fmt.Errorf("fim: unknown intent discriminator %q", e.Intent)
		}

		record := domain.IntentRecord{
			Intent: kind,
			Entities: domain.Entities{
				Amount:   e.Amount,
				Concept:  e.Concept,
				Merchant: e.Merchant,
				Period:   e.Period,
				Date:     e.Date,
				Reason:   e.Reason,
			},
		}
		if e.SubIntent != "" {
			if sub, ok := validSubIntents[e.SubIntent]; ok {
				record.SubIntent = sub
			}
		}
		if e.Category != nil {
			coerced := string(CoerceCategory(*e.Category))
			record.Entities.Category = &coerced
		}
		if e.Confidence != nil {
			record.Confidence = *e.Confidence
		}

		records = append(records, record)
	}
	return records, nil
}

// categoryResponse is the wire shape of classify_category's response.
type categoryResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func parseCategoryResponse(raw string) (domain.Category, float64, error) {
	cleaned := stripJSONFence(raw)
	var resp categoryResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return "", 0, fmt.Errorf("fim: parse category response: %w", err)
	}
	return CoerceCategory(resp.Category), resp.Confidence, nil
}
