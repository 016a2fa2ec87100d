package engine

// Value is a member's choice on a question, from -2 (strongly no) to 2 (strongly yes).
type Value int8

const (
	MinValue Value = -2
	MaxValue Value = 2
)

// ParseValue rejects anything outside the discrete answer scale.
func ParseValue(v int64) (Value, error) {
	if v < int64(MinValue) || v > int64(MaxValue) {
		return 0, ErrInvalidValue
	}
	return Value(v), nil
}

type AnswerStatus string

const (
	AnswerDelivered AnswerStatus = "delivered"
	AnswerAnswered  AnswerStatus = "answered"
)

// AnswerState is the ledger row for one (question, member) pair.
// A nil Value means the member never chose anything.
type AnswerState struct {
	Status AnswerStatus
	Value  *Value
}

// Delivered is the state of a question that was shown but never answered.
func Delivered() AnswerState {
	return AnswerState{Status: AnswerDelivered}
}

// Counts reports whether the row is valid matching signal.
func (s AnswerState) Counts() bool {
	return s.Status == AnswerAnswered && s.Value != nil
}

// AnswerOutcome tells the caller what a click did, so reward and rendering
// policies can react without the transition knowing about either.
type AnswerOutcome string

const (
	// OutcomeFirstAnswer is the only outcome that earns the per-answer credit.
	OutcomeFirstAnswer  AnswerOutcome = "first_answer"
	OutcomeValueChanged AnswerOutcome = "value_changed"
	// OutcomeRestored: a delivered row with a kept value got the same value again.
	OutcomeRestored AnswerOutcome = "restored"
	// OutcomeReverted: same value clicked on an answered row; row goes back to delivered.
	OutcomeReverted AnswerOutcome = "reverted"
)

// AnswerTransition is the result of applying a click to a ledger row.
type AnswerTransition struct {
	Next    AnswerState
	Outcome AnswerOutcome
}

// ShowAllOptions is true when every answer option must be presented again.
func (t AnswerTransition) ShowAllOptions() bool {
	return t.Outcome == OutcomeReverted
}

// Credited reports whether this transition earns the per-answer credit.
func (t AnswerTransition) Credited() bool {
	return t.Outcome == OutcomeFirstAnswer
}

// ApplyAnswer computes the next ledger state for a click on v.
// An absent row is passed as Delivered().
func ApplyAnswer(cur AnswerState, v Value) AnswerTransition {
	chosen := v
	next := AnswerState{Status: AnswerAnswered, Value: &chosen}

	switch {
	case cur.Value == nil:
		return AnswerTransition{Next: next, Outcome: OutcomeFirstAnswer}

	case cur.Status == AnswerAnswered && *cur.Value == v:
		kept := *cur.Value
		return AnswerTransition{
			Next:    AnswerState{Status: AnswerDelivered, Value: &kept},
			Outcome: OutcomeReverted,
		}

	case *cur.Value == v:
		return AnswerTransition{Next: next, Outcome: OutcomeRestored}

	default:
		return AnswerTransition{Next: next, Outcome: OutcomeValueChanged}
	}
}
