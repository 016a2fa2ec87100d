package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signalOf(values ...Value) Signal {
	s := make(Signal, len(values))
	for i, v := range values {
		s[uint64(i+1)] = v
	}
	return s
}

func TestSimilarity_Scenario(t *testing.T) {
	x := signalOf(2, 1, -1, 0, 2)
	y := signalOf(2, 1, 1, 0, -2)

	score, ok := Similarity(x, y, DefaultMinCommon)
	require.True(t, ok)
	assert.Equal(t, 6, score.Distance)
	assert.Equal(t, 5, score.Common)
	assert.Equal(t, 70, score.Similarity)
}

func TestSimilarity_Bounds(t *testing.T) {
	same := signalOf(-2, -1, 0, 1, 2)
	score, ok := Similarity(same, same, DefaultMinCommon)
	require.True(t, ok)
	assert.Equal(t, 100, score.Similarity)

	opposite := signalOf(2, 2, 2)
	score, ok = Similarity(signalOf(-2, -2, -2), opposite, DefaultMinCommon)
	require.True(t, ok)
	assert.Equal(t, 0, score.Similarity)
}

func TestSimilarity_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 3 + r.Intn(20)
		a, b := make(Signal, n), make(Signal, n)
		identical := true
		for q := 0; q < n; q++ {
			a[uint64(q)] = Value(r.Intn(5) - 2)
			b[uint64(q)] = Value(r.Intn(5) - 2)
			if a[uint64(q)] != b[uint64(q)] {
				identical = false
			}
		}

		ab, ok := Similarity(a, b, DefaultMinCommon)
		require.True(t, ok)
		ba, _ := Similarity(b, a, DefaultMinCommon)

		assert.Equal(t, ab, ba, "score must be symmetric")
		assert.GreaterOrEqual(t, ab.Similarity, 0)
		assert.LessOrEqual(t, ab.Similarity, 100)
		assert.Equal(t, identical, ab.Similarity == 100)
	}
}

func TestSimilarity_Rounding(t *testing.T) {
	// n=10, d=3 -> 92.5 rounds half away from zero.
	a := signalOf(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	b := signalOf(1, 1, 1, 0, 0, 0, 0, 0, 0, 0)
	score, ok := Similarity(a, b, DefaultMinCommon)
	require.True(t, ok)
	assert.Equal(t, 93, score.Similarity)
}

func TestSimilarity_NotEnoughCommon(t *testing.T) {
	a := Signal{1: 2, 2: 1, 3: 0}
	b := Signal{1: 2, 2: 1, 9: 0}

	score, ok := Similarity(a, b, DefaultMinCommon)
	assert.False(t, ok)
	assert.Equal(t, 2, score.Common)
}

func TestApplyAnswer_StateMachine(t *testing.T) {
	first := ApplyAnswer(Delivered(), 1)
	assert.Equal(t, OutcomeFirstAnswer, first.Outcome)
	assert.True(t, first.Credited())
	assert.Equal(t, AnswerAnswered, first.Next.Status)
	assert.Equal(t, Value(1), *first.Next.Value)

	changed := ApplyAnswer(first.Next, -2)
	assert.Equal(t, OutcomeValueChanged, changed.Outcome)
	assert.False(t, changed.Credited())
	assert.Equal(t, Value(-2), *changed.Next.Value)

	reverted := ApplyAnswer(changed.Next, -2)
	assert.Equal(t, OutcomeReverted, reverted.Outcome)
	assert.True(t, reverted.ShowAllOptions())
	assert.Equal(t, AnswerDelivered, reverted.Next.Status)
	assert.Equal(t, Value(-2), *reverted.Next.Value, "value is kept on revert")
	assert.False(t, reverted.Next.Counts())

	restored := ApplyAnswer(reverted.Next, -2)
	assert.Equal(t, OutcomeRestored, restored.Outcome)
	assert.False(t, restored.Credited())
	assert.True(t, restored.Next.Counts())

	other := ApplyAnswer(reverted.Next, 0)
	assert.Equal(t, OutcomeValueChanged, other.Outcome)
	assert.Equal(t, Value(0), *other.Next.Value)
}

func TestParseValue(t *testing.T) {
	for _, v := range []int64{-2, -1, 0, 1, 2} {
		got, err := ParseValue(v)
		require.NoError(t, err)
		assert.Equal(t, Value(v), got)
	}
	for _, v := range []int64{-3, 3, 100} {
		_, err := ParseValue(v)
		assert.ErrorIs(t, err, ErrInvalidValue)
	}
}

func TestCompatible(t *testing.T) {
	m := func(g Gender, l LookingFor) Preference { return Preference{Gender: g, LookingFor: l} }

	cases := []struct {
		name string
		a, b Preference
		want bool
	}{
		{"hetero match", m(GenderMale, LookingForFemale), m(GenderFemale, LookingForMale), true},
		{"one side mismatch", m(GenderMale, LookingForFemale), m(GenderFemale, LookingForFemale), false},
		{"all accepts anyone who accepts back", m(GenderMale, LookingForAll), m(GenderMale, LookingForMale), true},
		{"all vs narrower", m(GenderMale, LookingForAll), m(GenderFemale, LookingForFemale), false},
		{"undeclared gender", m("", LookingForAll), m(GenderFemale, LookingForAll), false},
		{"undeclared looking_for", m(GenderMale, LookingForAll), m(GenderFemale, ""), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compatible(tc.a, tc.b))
			assert.Equal(t, tc.want, Compatible(tc.b, tc.a), "filter must be symmetric")
		})
	}
}

func TestParsePreference(t *testing.T) {
	g, err := ParseGender(" Female ")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, g)

	_, err = ParseGender("other")
	assert.ErrorIs(t, err, ErrInvalidGender)

	l, err := ParseLookingFor("ALL")
	require.NoError(t, err)
	assert.Equal(t, LookingForAll, l)

	_, err = ParseLookingFor("both")
	assert.ErrorIs(t, err, ErrInvalidLookingFor)
}

func TestSelector_RankOrderAndTieBreak(t *testing.T) {
	subject := signalOf(2, 2, 2, 2, 2, 2)
	pref := Preference{Gender: GenderMale, LookingFor: LookingForAll}
	open := Preference{Gender: GenderFemale, LookingFor: LookingForAll}

	pool := []Candidate{
		// 100% over 3 common
		{MemberID: 30, Preference: open, Signal: signalOf(2, 2, 2)},
		// 100% over 6 common -> wins the tie on common count
		{MemberID: 40, Preference: open, Signal: signalOf(2, 2, 2, 2, 2, 2)},
		// 100% over 3 common, lower id than 30
		{MemberID: 20, Preference: open, Signal: signalOf(2, 2, 2)},
		// lower score
		{MemberID: 10, Preference: open, Signal: signalOf(2, 2, 0)},
	}

	sel := NewSelector(0).Rank(1, pref, subject, pool, nil)
	require.Equal(t, SelectFound, sel.Outcome())

	ids := make([]uint64, 0, len(sel.Ranked))
	for _, r := range sel.Ranked {
		ids = append(ids, r.MemberID)
	}
	assert.Equal(t, []uint64{40, 20, 30, 10}, ids)

	best, ok := sel.Best()
	require.True(t, ok)
	assert.Equal(t, uint64(40), best.MemberID)

	// reversed enumeration gives the same order
	reversed := make([]Candidate, len(pool))
	for i := range pool {
		reversed[len(pool)-1-i] = pool[i]
	}
	assert.Equal(t, sel.Ranked, NewSelector(0).Rank(1, pref, subject, reversed, nil).Ranked)
}

func TestSelector_ExclusionAndNearMiss(t *testing.T) {
	subject := signalOf(1, 1, 1, 1, 1)
	pref := Preference{Gender: GenderFemale, LookingFor: LookingForMale}
	male := Preference{Gender: GenderMale, LookingFor: LookingForFemale}

	pool := []Candidate{
		{MemberID: 2, Preference: male, Signal: signalOf(1, 1, 1, 1, 1)},
		{MemberID: 3, Preference: male, Signal: Signal{1: 1, 2: 1}},
		{MemberID: 4, Preference: Preference{Gender: GenderFemale, LookingFor: LookingForMale}, Signal: signalOf(1, 1, 1)},
	}

	sel := NewSelector(3).Rank(1, pref, subject, pool, map[uint64]struct{}{2: {}})
	assert.Empty(t, sel.Ranked)
	assert.True(t, sel.NearMiss)
	assert.Equal(t, SelectNotEnoughCommon, sel.Outcome())

	sel = NewSelector(3).Rank(1, pref, Signal{}, pool, nil)
	assert.Equal(t, SelectNoCandidates, sel.Outcome())
}

func TestTransitionTables(t *testing.T) {
	ptr := func(s Status) *Status { return &s }

	strict := Strict()
	assert.True(t, strict.Allows(nil, StatusBlocked))
	assert.True(t, strict.Allows(ptr(StatusPostponed), StatusMatched))
	assert.True(t, strict.Allows(ptr(StatusBlocked), StatusBlocked))
	assert.False(t, strict.Allows(ptr(StatusBlocked), StatusPendingApproval))
	assert.False(t, strict.Allows(ptr(StatusRejected), StatusPendingApproval))
	assert.True(t, strict.Allows(ptr(StatusHidden), StatusBlocked))

	err := strict.Check(ptr(StatusBlocked), StatusMatched)
	assert.True(t, errors.Is(err, ErrTransitionNotAllowed))

	open := TransitionTableByName("permissive")
	assert.Equal(t, "permissive", open.Name())
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			assert.True(t, open.Allows(ptr(from), to))
		}
	}

	assert.Equal(t, "strict", TransitionTableByName("bogus").Name())

	custom := NewTransitionTable("custom", map[Status][]Status{StatusBlocked: {StatusHidden}})
	assert.True(t, custom.Allows(ptr(StatusBlocked), StatusHidden))
	assert.False(t, custom.Allows(ptr(StatusHidden), StatusBlocked))
}

func TestStatusHelpers(t *testing.T) {
	for _, s := range []Status{StatusHidden, StatusPostponed, StatusPendingApproval, StatusRejected, StatusBlocked} {
		assert.True(t, s.Excludes(), s)
	}
	assert.False(t, StatusAccepted.Excludes())
	assert.False(t, StatusMatched.Excludes())

	_, err := ParseStatus("friends")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	p := CanonicalPair(9, 4)
	assert.Equal(t, Pair{Low: 4, High: 9}, p)
	assert.Equal(t, CanonicalPair(4, 9), p)
	assert.Equal(t, uint64(9), p.Other(4))
}
