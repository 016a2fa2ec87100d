package db

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	applog "github.com/oggyb/qmatch/internal/logger"
)

// demoQuestions are the statements of the demo group.
var demoQuestions = []string{
	"Do you enjoy waking up early on weekends?",
	"Is travelling abroad important to you?",
	"Would you adopt a pet in the next year?",
	"Do you prefer cities over the countryside?",
	"Is religion an important part of your life?",
	"Do you want children someday?",
	"Do you enjoy cooking for other people?",
	"Is a quiet night in better than a party?",
	"Would you move countries for a partner?",
	"Do you follow a sport closely?",
	"Is it fine to keep in touch with exes?",
	"Do you read books regularly?",
	"Would you rather save than spend?",
	"Do you like hiking and camping?",
	"Is punctuality a big deal for you?",
}

// seedTables lists tables in delete order. Names are quoted in raw SQL since
// groups is reserved in MySQL 8.
var seedTables = []string{"connections", "relationship_statuses", "answers", "questions", "members", "groups"}

func clearAll(db *gorm.DB) error {
	for _, table := range seedTables {
		if err := db.Exec("DELETE FROM `" + table + "`").Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range seedTables {
			db.Exec("ALTER TABLE `" + table + "` AUTO_INCREMENT = 1")
		}
	case "sqlite":
		for _, table := range seedTables {
			db.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table)
		}
	}
	return nil
}

// SeedTestData resets the database and populates it with one demo group.
//
// Behavior:
//  1. Clears every engine table.
//  2. Creates a group owned by member 1 with 20 members (10 men seeking women,
//     8 women seeking men, 2 members open to all) and 15 questions.
//  3. Each member answers ~80% of the questions; some answers are left
//     delivered so the "next question" queue has work.
//  4. Adds a few postponed/pending rows and one active connection.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := clearAll(db); err != nil {
		return err
	}
	applog.Info("cleared existing data")

	return db.Transaction(func(tx *gorm.DB) error {
		group := Group{Title: "Demo group", OwnerID: 1}
		if err := tx.Create(&group).Error; err != nil {
			return fmt.Errorf("failed to seed group: %w", err)
		}

		// --- Members ---
		for i := uint64(1); i <= 20; i++ {
			gender, lookingFor := "male", "female"
			switch {
			case i > 18:
				gender, lookingFor = "female", "all"
			case i > 10:
				gender, lookingFor = "female", "male"
			}
			m := Member{
				GroupID:    group.ID,
				UserID:     i,
				Nickname:   fmt.Sprintf("member%d", i),
				Location:   "Berlin",
				Gender:     gender,
				LookingFor: lookingFor,
				Bio:        "Seeded demo profile",
				Balance:    int64(r.Intn(40)),
			}
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("failed to seed member: %w", err)
			}
		}
		applog.Info("seeded members", "count", 20)

		// --- Questions + answers ---
		for i, text := range demoQuestions {
			q := Question{
				GroupID:    group.ID,
				AuthorID:   uint64(i%20) + 1,
				Text:       text,
				Moderation: "approved",
			}
			if err := tx.Create(&q).Error; err != nil {
				return fmt.Errorf("failed to seed question: %w", err)
			}

			for member := uint64(1); member <= 20; member++ {
				if member == q.AuthorID || r.Intn(100) >= 80 {
					continue
				}
				v := int8(r.Intn(5) - 2)
				a := Answer{QuestionID: q.ID, MemberID: member, Value: &v, Status: "answered"}
				if r.Intn(10) == 0 {
					a.Value, a.Status = nil, "delivered"
				}
				if err := tx.Create(&a).Error; err != nil {
					return fmt.Errorf("failed to seed answer: %w", err)
				}
			}
		}
		applog.Info("seeded questions", "count", len(demoQuestions))

		// --- Relationships ---
		rows := []RelationshipStatus{
			{SubjectID: 1, GroupID: group.ID, CandidateID: 11, Status: "postponed"},
			{SubjectID: 12, GroupID: group.ID, CandidateID: 1, Status: "pending_approval"},
			{SubjectID: 13, GroupID: group.ID, CandidateID: 1, Status: "pending_approval"},
			{SubjectID: 2, GroupID: group.ID, CandidateID: 14, Status: "hidden"},
			{SubjectID: 3, GroupID: group.ID, CandidateID: 15, Status: "matched"},
			{SubjectID: 15, GroupID: group.ID, CandidateID: 3, Status: "matched"},
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "group_id"}, {Name: "candidate_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to seed relationships: %w", err)
		}

		conn := Connection{MemberLow: 3, MemberHigh: 15, GroupID: group.ID, Status: "active"}
		if err := tx.Create(&conn).Error; err != nil {
			return fmt.Errorf("failed to seed connection: %w", err)
		}
		applog.Info("seeded relationships and connections", "relationships", len(rows))
		return nil
	})
}

// SeedMinimalTestData wipes the DB and inserts a deterministic dataset:
//
//   - Group 1 owned by member 1.
//   - Member 1 (male, seeking women, balance 30) answers [2, 1, -1, 0, 2].
//   - Member 2 (female, seeking men) answers [2, 1, 1, 0, -2] → similarity 70.
//   - Member 3 (female, seeking men) answers only the first two questions.
func SeedMinimalTestData(db *gorm.DB) error {
	if err := clearAll(db); err != nil {
		return err
	}

	group := Group{ID: 1, Title: "Minimal group", OwnerID: 1}
	if err := db.Create(&group).Error; err != nil {
		return err
	}

	members := []Member{
		{GroupID: 1, UserID: 1, Nickname: "x", Gender: "male", LookingFor: "female", Balance: 30},
		{GroupID: 1, UserID: 2, Nickname: "y", Gender: "female", LookingFor: "male"},
		{GroupID: 1, UserID: 3, Nickname: "z", Gender: "female", LookingFor: "male"},
	}
	if err := db.Create(&members).Error; err != nil {
		return err
	}

	values := map[uint64][]int8{
		1: {2, 1, -1, 0, 2},
		2: {2, 1, 1, 0, -2},
		3: {2, 1},
	}
	for i := 0; i < 5; i++ {
		q := Question{ID: uint64(i + 1), GroupID: 1, AuthorID: 99, Text: demoQuestions[i], Moderation: "approved"}
		if err := db.Create(&q).Error; err != nil {
			return err
		}
		for member := uint64(1); member <= 3; member++ {
			if i >= len(values[member]) {
				continue
			}
			v := values[member][i]
			if err := db.Create(&Answer{QuestionID: q.ID, MemberID: member, Value: &v, Status: "answered"}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
