package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/engine"
	"github.com/oggyb/qmatch/internal/repository"
)

// setup in-memory DB, one per test
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

func seedQuestions(t *testing.T, gdb *gorm.DB, groupID uint64, n int) []uint64 {
	t.Helper()
	repo := repository.NewQuestionRepository(gdb)
	ids := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		q := db.Question{GroupID: groupID, AuthorID: 999, Text: fmt.Sprintf("question number %d?", i)}
		require.NoError(t, repo.Create(context.Background(), &q))
		ids = append(ids, q.ID)
	}
	return ids
}

func answer(t *testing.T, repo *repository.AnswerRepository, qid, mid uint64, v engine.Value) {
	t.Helper()
	ctx := context.Background()
	cur, existed, err := repo.State(ctx, qid, mid)
	require.NoError(t, err)
	tr := engine.ApplyAnswer(cur, v)
	require.NoError(t, repo.CompareAndSwap(ctx, qid, mid, cur, existed, tr.Next))
}

func TestMemberUpsertAndBalance(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewMemberRepository(gdb)

	require.NoError(t, repo.Upsert(ctx, &db.Member{GroupID: 1, UserID: 10, Nickname: "ann", Balance: 5}))
	require.NoError(t, repo.Upsert(ctx, &db.Member{GroupID: 1, UserID: 10, Nickname: "anna", Balance: 999}))

	m, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "anna", m.Nickname)
	assert.Equal(t, int64(5), m.Balance, "upsert must not rewrite the balance")

	bal, err := repo.Credit(ctx, 1, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8), bal)

	bal, ok, err := repo.Debit(ctx, 1, 10, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(8), bal)

	bal, ok, err = repo.Debit(ctx, 1, 10, 8)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), bal)

	_, err = repo.Get(ctx, 2, 10)
	assert.ErrorIs(t, err, repository.ErrMemberNotFound)
}

func TestAnswerLedgerCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewAnswerRepository(gdb)
	qid := seedQuestions(t, gdb, 1, 1)[0]

	created, err := repo.Deliver(ctx, qid, 7)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Deliver(ctx, qid, 7)
	require.NoError(t, err)
	assert.False(t, created, "second delivery is a no-op")

	cur, existed, err := repo.State(ctx, qid, 7)
	require.NoError(t, err)
	require.True(t, existed)
	assert.Equal(t, engine.AnswerDelivered, cur.Status)
	assert.Nil(t, cur.Value)

	tr := engine.ApplyAnswer(cur, 2)
	require.NoError(t, repo.CompareAndSwap(ctx, qid, 7, cur, existed, tr.Next))

	// a writer still holding the old state loses
	err = repo.CompareAndSwap(ctx, qid, 7, cur, existed, engine.ApplyAnswer(cur, -1).Next)
	assert.ErrorIs(t, err, repository.ErrStaleWrite)

	now, _, err := repo.State(ctx, qid, 7)
	require.NoError(t, err)
	assert.Equal(t, engine.AnswerAnswered, now.Status)
	assert.Equal(t, engine.Value(2), *now.Value)
}

func TestSignalsIgnoreDeliveredAndDeleted(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	answers := repository.NewAnswerRepository(gdb)
	questions := repository.NewQuestionRepository(gdb)
	qids := seedQuestions(t, gdb, 1, 4)
	other := seedQuestions(t, gdb, 2, 1)

	answer(t, answers, qids[0], 7, 1)
	answer(t, answers, qids[1], 7, -2)
	answer(t, answers, qids[2], 7, 0)
	_, err := answers.Deliver(ctx, qids[3], 7)
	require.NoError(t, err)
	answer(t, answers, other[0], 7, 2) // other group

	// revert qids[2] back to delivered
	answer(t, answers, qids[2], 7, 0)

	sig, err := answers.Signal(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, engine.Signal{qids[0]: 1, qids[1]: -2}, sig)

	require.NoError(t, questions.SoftDelete(ctx, 1, qids[1]))

	sig, err = answers.Signal(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, engine.Signal{qids[0]: 1}, sig)

	n, err := answers.CountAnswered(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// cascade removed the row entirely
	_, existed, err := answers.State(ctx, qids[1], 7)
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = questions.Get(ctx, 1, qids[1])
	assert.ErrorIs(t, err, repository.ErrQuestionNotFound)
}

func TestNextUnanswered(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	answers := repository.NewAnswerRepository(gdb)
	questions := repository.NewQuestionRepository(gdb)

	own := db.Question{GroupID: 1, AuthorID: 7, Text: "my own question here?"}
	require.NoError(t, questions.Create(ctx, &own))
	qids := seedQuestions(t, gdb, 1, 2)

	q, err := questions.NextUnanswered(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, qids[0], q.ID, "own questions are skipped")

	_, err = answers.Deliver(ctx, qids[0], 7)
	require.NoError(t, err)
	q, err = questions.NextUnanswered(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, qids[0], q.ID, "delivered but unanswered is offered again")

	answer(t, answers, qids[0], 7, 1)
	answer(t, answers, qids[1], 7, 1)
	_, err = questions.NextUnanswered(ctx, 1, 7)
	assert.ErrorIs(t, err, repository.ErrQuestionNotFound)
}

func TestRelationshipSetAndExclusion(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewRelationshipRepository(gdb)

	require.NoError(t, repo.Set(ctx, 1, 5, 2, engine.StatusHidden))
	require.NoError(t, repo.Set(ctx, 1, 5, 3, engine.StatusPostponed))
	require.NoError(t, repo.Set(ctx, 1, 5, 4, engine.StatusMatched))
	require.NoError(t, repo.Set(ctx, 1, 5, 6, engine.StatusAccepted))
	require.NoError(t, repo.Set(ctx, 1, 6, 7, engine.StatusBlocked)) // other group

	// overwrite keeps a single row
	require.NoError(t, repo.Set(ctx, 1, 5, 2, engine.StatusBlocked))
	var n int64
	gdb.Model(&db.RelationshipStatus{}).Where("subject_id = 1 AND group_id = 5 AND candidate_id = 2").Count(&n)
	assert.Equal(t, int64(1), n)

	ex, err := repo.Excluded(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]struct{}{2: {}, 3: {}}, ex)

	st, err := repo.Get(ctx, 1, 5, 2)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, engine.StatusBlocked, *st)

	st, err = repo.Get(ctx, 2, 5, 1)
	require.NoError(t, err)
	assert.Nil(t, st)

	// clearing postponed returns the candidate to the pool
	require.NoError(t, repo.Delete(ctx, 1, 5, 3, engine.StatusPostponed))
	assert.ErrorIs(t, repo.Delete(ctx, 1, 5, 3, engine.StatusPostponed), repository.ErrRelationshipAbsent)
	ex, err = repo.Excluded(ctx, 1, 5)
	require.NoError(t, err)
	assert.NotContains(t, ex, uint64(3))
}

func TestRelationshipCompareAndSet(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewRelationshipRepository(gdb)

	require.NoError(t, repo.CompareAndSet(ctx, 1, 5, 2, nil, engine.StatusPendingApproval))
	assert.ErrorIs(t, repo.CompareAndSet(ctx, 1, 5, 2, nil, engine.StatusHidden), repository.ErrStaleWrite)

	pending := engine.StatusPendingApproval
	require.NoError(t, repo.CompareAndSet(ctx, 1, 5, 2, &pending, engine.StatusAccepted))
	assert.ErrorIs(t, repo.CompareAndSet(ctx, 1, 5, 2, &pending, engine.StatusRejected), repository.ErrStaleWrite)
}

func TestListIncomingAndPagination(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewRelationshipRepository(gdb)

	for subject := uint64(1); subject <= 5; subject++ {
		require.NoError(t, repo.Set(ctx, subject, 9, 99, engine.StatusPendingApproval))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, repo.Set(ctx, 6, 9, 99, engine.StatusRejected))

	count, err := repo.CountIncoming(ctx, 99, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	targets, err := repo.PendingTargets(ctx, 3, 9)
	require.NoError(t, err)
	assert.Equal(t, []uint64{99}, targets)

	page1, next, err := repo.ListIncoming(ctx, 99, 9, nil, 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.NotNil(t, next)
	assert.Equal(t, uint64(5), page1[0].SubjectID, "newest first")

	page2, next, err := repo.ListIncoming(ctx, 99, 9, next, 3)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, page2, 2)
	assert.Equal(t, uint64(1), page2[1].SubjectID)
}

func TestConnectionActivateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewConnectionRepository(gdb)

	res, err := repo.Activate(ctx, engine.CanonicalPair(8, 3), 1)
	require.NoError(t, err)
	assert.Equal(t, repository.ConnectCreated, res)

	res, err = repo.Activate(ctx, engine.CanonicalPair(3, 8), 1)
	require.NoError(t, err)
	assert.Equal(t, repository.ConnectExisting, res)

	var n int64
	gdb.Model(&db.Connection{}).Count(&n)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Close(ctx, engine.CanonicalPair(8, 3), 1))
	assert.ErrorIs(t, repo.Close(ctx, engine.CanonicalPair(8, 3), 1), repository.ErrConnectionAbsent)

	active, err := repo.ListActive(ctx, 3, 1)
	require.NoError(t, err)
	assert.Empty(t, active)

	res, err = repo.Activate(ctx, engine.CanonicalPair(8, 3), 1)
	require.NoError(t, err)
	assert.Equal(t, repository.ConnectReactivated, res)

	c, err := repo.Get(ctx, engine.CanonicalPair(3, 8), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), c.MemberLow)
	assert.Equal(t, uint64(8), c.MemberHigh)
	assert.Equal(t, string(engine.ConnectionActive), c.Status)
}

func TestMemberDeleteCascades(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	members := repository.NewMemberRepository(gdb)
	answers := repository.NewAnswerRepository(gdb)
	rels := repository.NewRelationshipRepository(gdb)
	conns := repository.NewConnectionRepository(gdb)

	require.NoError(t, members.Upsert(ctx, &db.Member{GroupID: 1, UserID: 7}))
	qid := seedQuestions(t, gdb, 1, 1)[0]
	answer(t, answers, qid, 7, 1)
	require.NoError(t, rels.Set(ctx, 7, 1, 8, engine.StatusMatched))
	require.NoError(t, rels.Set(ctx, 8, 1, 7, engine.StatusMatched))
	_, err := conns.Activate(ctx, engine.CanonicalPair(7, 8), 1)
	require.NoError(t, err)

	require.NoError(t, members.Delete(ctx, 1, 7))

	_, existed, err := answers.State(ctx, qid, 7)
	require.NoError(t, err)
	assert.False(t, existed)

	st, err := rels.Get(ctx, 8, 1, 7)
	require.NoError(t, err)
	assert.Nil(t, st)

	c, err := conns.Get(ctx, engine.CanonicalPair(7, 8), 1)
	require.NoError(t, err)
	assert.Equal(t, string(engine.ConnectionClosed), c.Status)

	assert.ErrorIs(t, members.Delete(ctx, 1, 7), repository.ErrMemberNotFound)
}
