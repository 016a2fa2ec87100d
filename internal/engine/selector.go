package engine

import (
	"cmp"
	"slices"
)

// Candidate is one other member of the subject's group as seen by the selector.
type Candidate struct {
	MemberID   uint64
	Preference Preference
	Signal     Signal
}

// Ranked is a scored, eligible candidate.
type Ranked struct {
	MemberID uint64
	Score
}

type SelectOutcome string

const (
	SelectFound           SelectOutcome = "found"
	SelectNoCandidates    SelectOutcome = "no_candidates"
	SelectNotEnoughCommon SelectOutcome = "not_enough_common"
)

// Selection is the ranked candidate pool. NearMiss records that some
// candidate passed every filter but shared too few answered questions.
type Selection struct {
	Ranked   []Ranked
	NearMiss bool
}

// Outcome distinguishes "nobody" from "answer more questions".
func (s Selection) Outcome() SelectOutcome {
	switch {
	case len(s.Ranked) > 0:
		return SelectFound
	case s.NearMiss:
		return SelectNotEnoughCommon
	default:
		return SelectNoCandidates
	}
}

// Best returns the top-ranked candidate.
func (s Selection) Best() (Ranked, bool) {
	if len(s.Ranked) == 0 {
		return Ranked{}, false
	}
	return s.Ranked[0], true
}

// Selector ranks candidates for one subject.
type Selector struct {
	MinCommon int
}

// NewSelector returns a selector; minCommon below 1 falls back to DefaultMinCommon.
func NewSelector(minCommon int) Selector {
	if minCommon < 1 {
		minCommon = DefaultMinCommon
	}
	return Selector{MinCommon: minCommon}
}

// Rank applies preference filtering, exclusion and scoring, then sorts by
// similarity desc, common questions desc, member id asc. Enumeration order
// of pool never affects the result.
func (sel Selector) Rank(
	subjectID uint64,
	subject Preference,
	signal Signal,
	pool []Candidate,
	excluded map[uint64]struct{},
) Selection {
	var out Selection
	if len(signal) == 0 {
		return out
	}

	for _, c := range pool {
		if c.MemberID == subjectID {
			continue
		}
		if _, skip := excluded[c.MemberID]; skip {
			continue
		}
		if !Compatible(subject, c.Preference) {
			continue
		}

		score, ok := Similarity(signal, c.Signal, sel.MinCommon)
		if !ok {
			out.NearMiss = true
			continue
		}
		out.Ranked = append(out.Ranked, Ranked{MemberID: c.MemberID, Score: score})
	}

	slices.SortFunc(out.Ranked, CompareRanked)
	return out
}

// CompareRanked orders better matches first.
func CompareRanked(a, b Ranked) int {
	if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Common, a.Common); c != 0 {
		return c
	}
	return cmp.Compare(a.MemberID, b.MemberID)
}
