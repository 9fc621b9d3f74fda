package domain

// IntentKind is the discriminator of an IntentRecord. It is a closed set:
// the FIM parser rejects any value outside this list rather than passing
// an unrecognized discriminator downstream.
type IntentKind string

const (
	IntentWriteLog      IntentKind = "WRITE_LOG"
	IntentReadQuery     IntentKind = "READ_QUERY"
	IntentPlan          IntentKind = "PLAN"
	IntentAdvice        IntentKind = "ADVICE"
	IntentSteer         IntentKind = "STEER"
	IntentConfirmUpdate IntentKind = "CONFIRM_UPDATE"
	IntentClarify       IntentKind = "CLARIFY"
)

// SubIntent qualifies a WRITE_LOG IntentRecord, or a STEER IntentRecord's
// domain-level source (META vs SOCIAL).
type SubIntent string

const (
	SubIntentExpense SubIntent = "EXPENSE"
	SubIntentIncome  SubIntent = "INCOME"
	SubIntentDebt    SubIntent = "DEBT"
	SubIntentMeta    SubIntent = "META"
	SubIntentSocial  SubIntent = "SOCIAL"
)

// Entities holds the recognized keys the classifier may extract. Every
// field is optional; WRITE_LOG requires Amount and Concept to be present,
// which the classifier itself enforces before emitting that kind.
type Entities struct {
	Amount   *string
	Concept  *string
	Category *string
	Merchant *string
	Period   *string
	Date     *string
	Reason   *string
}

// IntentRecord is the transient output of FIM.Classify. It is never
// persisted; its lifetime is a single request.
type IntentRecord struct {
	Intent     IntentKind
	SubIntent  SubIntent
	Entities   Entities
	Confidence float64
}
