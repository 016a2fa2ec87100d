package questions

import "github.com/oggyb/qmatch/internal/engine"

// CreditFor is the reward policy for answer clicks: only the first value ever
// chosen on a question earns points.
func CreditFor(tr engine.AnswerTransition, credit int64) int64 {
	if !tr.Credited() || credit <= 0 {
		return 0
	}
	return credit
}
