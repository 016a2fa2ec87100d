package db

import (
	"time"

	"gorm.io/gorm"
)

// Group is the isolation boundary for members, questions, answers and relationships.
type Group struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Title     string    `gorm:"size:128;not null"`
	OwnerID   uint64    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Member is a user's profile inside one group.
//
// UserID is the stable internal id produced by identity resolution; every
// other table refers to members by it.
type Member struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	GroupID    uint64    `gorm:"not null;uniqueIndex:uq_member_group_user,priority:1"`
	UserID     uint64    `gorm:"not null;uniqueIndex:uq_member_group_user,priority:2;index"`
	Nickname   string    `gorm:"size:64"`
	PhotoRef   string    `gorm:"size:255"`
	Location   string    `gorm:"size:128"`
	Gender     string    `gorm:"size:16"`
	LookingFor string    `gorm:"size:16"`
	Bio        string    `gorm:"type:text"`
	Balance    int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Question belongs to exactly one group. Soft-deleted questions are excluded
// from every matching input.
type Question struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	GroupID    uint64         `gorm:"not null;index:idx_question_group_created,priority:1"`
	AuthorID   uint64         `gorm:"not null;index"`
	Text       string         `gorm:"type:text;not null"`
	Moderation string         `gorm:"size:16;not null"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index:idx_question_group_created,priority:2"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

// Answer is the ledger row for (question, member).
//
// Value is nil until the member chooses an option. A delivered row may keep a
// previously chosen value after the member re-clicked it.
type Answer struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	QuestionID uint64    `gorm:"not null;uniqueIndex:uq_answer_question_member,priority:1"`
	MemberID   uint64    `gorm:"not null;uniqueIndex:uq_answer_question_member,priority:2;index:idx_answer_member_status,priority:1"`
	Value      *int8     `gorm:"type:smallint"`
	Status     string    `gorm:"size:16;not null;index:idx_answer_member_status,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// RelationshipStatus is the directional disposition of SubjectID toward
// CandidateID inside a group. Only the current value is stored.
//
// Indexes:
//   - uq_relationship(subject_id, group_id, candidate_id) guarantees one row per direction.
//   - idx_relationship_incoming(candidate_id, group_id, status, updated_at) serves
//     "who requested me" listings.
type RelationshipStatus struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	SubjectID   uint64    `gorm:"not null;uniqueIndex:uq_relationship,priority:1"`
	GroupID     uint64    `gorm:"not null;uniqueIndex:uq_relationship,priority:2;index:idx_relationship_incoming,priority:2"`
	CandidateID uint64    `gorm:"not null;uniqueIndex:uq_relationship,priority:3;index:idx_relationship_incoming,priority:1"`
	Status      string    `gorm:"size:32;not null;index:idx_relationship_incoming,priority:3"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;index:idx_relationship_incoming,priority:4,sort:desc"`
}

// Connection is the symmetric record of two members who chose to connect.
// MemberLow < MemberHigh always, so (A,B) and (B,A) collide on the unique key.
type Connection struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	MemberLow  uint64    `gorm:"not null;uniqueIndex:uq_connection,priority:1"`
	MemberHigh uint64    `gorm:"not null;uniqueIndex:uq_connection,priority:2;index"`
	GroupID    uint64    `gorm:"not null;uniqueIndex:uq_connection,priority:3"`
	Status     string    `gorm:"size:16;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Models lists every table in migration order.
func Models() []any {
	return []any{&Group{}, &Member{}, &Question{}, &Answer{}, &RelationshipStatus{}, &Connection{}}
}
