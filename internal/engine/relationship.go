package engine

import "fmt"

// Status is the directional disposition of a subject toward a candidate.
type Status string

const (
	StatusHidden          Status = "hidden"
	StatusPostponed       Status = "postponed"
	StatusPendingApproval Status = "pending_approval"
	StatusAccepted        Status = "accepted"
	StatusRejected        Status = "rejected"
	StatusBlocked         Status = "blocked"
	StatusMatched         Status = "matched"
)

// AllStatuses in declaration order.
var AllStatuses = []Status{
	StatusHidden, StatusPostponed, StatusPendingApproval,
	StatusAccepted, StatusRejected, StatusBlocked, StatusMatched,
}

// ExcludingStatuses remove a candidate from the subject's pool.
var ExcludingStatuses = []Status{
	StatusHidden, StatusPostponed, StatusPendingApproval, StatusRejected, StatusBlocked,
}

func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Excludes reports whether a row with this status hides the candidate.
func (s Status) Excludes() bool {
	for _, st := range ExcludingStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsResponse reports whether s is a candidate's answer to a pending request.
func (s Status) IsResponse() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusBlocked
}

// TransitionTable decides which status may overwrite which. A nil "from"
// means no row exists yet.
type TransitionTable struct {
	name    string
	allowed map[Status]map[Status]bool
	open    bool
}

// Permissive lets any status overwrite any other.
func Permissive() TransitionTable {
	return TransitionTable{name: "permissive", open: true}
}

// Strict keeps suppression and responses sticky: blocked is final, hidden
// can only harden to blocked, a rejection cannot be re-requested.
func Strict() TransitionTable {
	return NewTransitionTable("strict", map[Status][]Status{
		StatusHidden:          {StatusHidden, StatusBlocked},
		StatusPostponed:       AllStatuses,
		StatusPendingApproval: AllStatuses,
		StatusAccepted:        {StatusAccepted, StatusMatched, StatusHidden, StatusBlocked},
		StatusRejected:        {StatusRejected, StatusHidden, StatusBlocked},
		StatusBlocked:         {StatusBlocked},
		StatusMatched:         {StatusMatched, StatusHidden, StatusBlocked},
	})
}

// NewTransitionTable builds a table from explicit edges. Statuses missing
// from edges accept no outgoing transitions except onto themselves.
func NewTransitionTable(name string, edges map[Status][]Status) TransitionTable {
	t := TransitionTable{name: name, allowed: make(map[Status]map[Status]bool, len(edges))}
	for from, tos := range edges {
		set := make(map[Status]bool, len(tos))
		for _, to := range tos {
			set[to] = true
		}
		t.allowed[from] = set
	}
	return t
}

// TransitionTableByName resolves the configured policy; unknown names fall back to strict.
func TransitionTableByName(name string) TransitionTable {
	if name == "permissive" {
		return Permissive()
	}
	return Strict()
}

func (t TransitionTable) Name() string { return t.name }

// Allows reports whether to may replace from.
func (t TransitionTable) Allows(from *Status, to Status) bool {
	if t.open || from == nil || *from == to {
		return true
	}
	return t.allowed[*from][to]
}

// Check returns ErrTransitionNotAllowed wrapped with both endpoints.
func (t TransitionTable) Check(from *Status, to Status) error {
	if t.Allows(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, *from, to)
}
