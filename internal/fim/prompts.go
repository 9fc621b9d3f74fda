package fim

import (
	"fmt"
	"strings"

	"github.com/numa-app/numa-core/internal/domain"
)

// buildClassificationPrompt constructs the Level 2/3 cascade prompt,
// following the teacher's buildCategoriesPromptWithRepo shape: list the
// closed set the model must choose from, then a numbered rule block, then
// an explicit "return ONLY JSON" instruction.
func buildClassificationPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You are the classification stage of a personal-finance voice assistant.\n")
	b.WriteString("Classify the user's utterance and extract entities. Respond with ONLY a JSON array of objects, no markdown fences.\n\n")
	b.WriteString("Utterance:\n")
	b.WriteString(text)
	b.WriteString("\n\nEach object has keys: intent, sub_intent, amount, concept, category, merchant, period, date, confidence.\n\n")

	b.WriteString("CLASSIFICATION RULES:\n")
	b.WriteString("1. intent must be EXACTLY one of: WRITE_LOG, READ_QUERY, PLAN, ADVICE, STEER, CONFIRM_UPDATE, CLARIFY.\n")
	b.WriteString("2. System commands (change language, delete my data) -> intent STEER, sub_intent META.\n")
	b.WriteString("3. Greetings or chit-chat -> intent STEER, sub_intent SOCIAL.\n")
	b.WriteString("4. WRITE_LOG requires BOTH an identifiable concept AND an explicit numeric amount; sub_intent is one of EXPENSE, INCOME, DEBT.\n")
	b.WriteString("5. If the user names a movement type but omits concept or amount, emit CLARIFY instead of WRITE_LOG. Never guess a missing amount.\n")
	b.WriteString("6. READ_QUERY extracts period (today, this_week, this_month, or an explicit range) and optionally category.\n")
	b.WriteString("7. A single utterance with multiple independent clauses (e.g. two separate spends) MUST produce one array entry per clause.\n")
	b.WriteString("8. category, when present, must be EXACTLY one of the following (case-sensitive):\n")
	for _, c := range domain.Categories() {
		b.WriteString("   - " + string(c) + "\n")
	}
	b.WriteString(fmt.Sprintf("9. A small spend (< %d) at a café, convenience store, or kiosk should prefer category %q or %q over %q.\n",
		AntExpenseThreshold, domain.CategoryCafeSnacks, domain.CategoryCompras, domain.CategoryDespensa))
	b.WriteString("10. confidence is a number between 0 and 1 reflecting how sure you are of the classification.\n")
	b.WriteString("11. Always return a JSON array, even for a single intent.\n")

	return b.String()
}

// buildCategoryPrompt constructs the classify_category prompt: a much
// narrower ask than the full cascade, reusing the same closed-taxonomy
// listing convention.
func buildCategoryPrompt(concept string, merchant *string) string {
	var b strings.Builder
	b.WriteString("Classify this financial transaction into EXACTLY one category from the list below.\n")
	b.WriteString("Respond with ONLY a JSON object, no markdown fences: {\"category\": string, \"confidence\": number}.\n\n")
	b.WriteString("Concept: " + concept + "\n")
	if merchant != nil && *merchant != "" {
		b.WriteString("Merchant: " + *merchant + "\n")
	}
	b.WriteString("\nAllowed categories:\n")
	for _, c := range domain.Categories() {
		b.WriteString("   - " + string(c) + "\n")
	}
	b.WriteString(fmt.Sprintf("\nIf the concept or merchant suggests a small café/convenience/kiosk purchase under %d, prefer %q or %q.\n",
		AntExpenseThreshold, domain.CategoryCafeSnacks, domain.CategoryCompras))
	b.WriteString("If unsure, use \"" + string(domain.CategoryDefault) + "\" with low confidence.\n")
	return b.String()
}

// buildHumanizePrompt constrains the reasoning model to paraphrasing a
// precomputed figure — it is never given room to state a number itself,
// enforcing the zero-hallucination rule at the prompt level as well as in
// code.
func buildHumanizePrompt(context string) string {
	var b strings.Builder
	b.WriteString("Rewrite the following precomputed financial summary as one short, natural sentence in Spanish.\n")
	b.WriteString("Do not invent, adjust, or recompute any number. Use only the figures given verbatim.\n\n")
	b.WriteString(context)
	return b.String()
}

// buildAdvicePrompt builds the prompt for ADVICE/PLAN intents: context is a
// precomputed textual summary of totals; the model may only reason about
// qualitative guidance, never introduce a figure of its own.
func buildAdvicePrompt(utterance, context string) string {
	var b strings.Builder
	b.WriteString("The user asked for financial advice or a savings plan:\n")
	b.WriteString(utterance)
	b.WriteString("\n\nHere is their precomputed spending context (the only numbers you may reference):\n")
	b.WriteString(context)
	b.WriteString("\n\nRespond with one short, actionable paragraph in Spanish. Do not introduce any numeric value not given above.\n")
	return b.String()
}
