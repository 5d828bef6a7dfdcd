package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

// ExamResult is one learner's attempt at an exam. A row is created already
// in progress by the admission path and mutated exactly once, when the
// scoring engine finalizes it. At most one in_progress row may exist per
// (exam_id, user_id); the partial unique index created at migration time
// enforces that, not application code.
type ExamResult struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ExamID     uint           `json:"exam_id" gorm:"not null;index"`
	UserID     uint           `json:"user_id" gorm:"not null;index"`
	StartTime  time.Time      `json:"start_time" gorm:"not null"`
	SubmitTime *time.Time     `json:"submit_time"`
	Score      *float64       `json:"score"`
	Status     AttemptStatus  `json:"status" gorm:"not null;default:in_progress;index"`
	Answers    datatypes.JSON `json:"answers" gorm:"type:jsonb"` // raw submitted answer set

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Exam    Exam           `json:"-" gorm:"foreignKey:ExamID"`
	Records []AnswerRecord `json:"records,omitempty" gorm:"foreignKey:ExamResultID"`
}

// AnswerRecord is the graded outcome for a single question within an
// attempt. Records are written atomically with the attempt's transition to
// submitted and never change afterwards.
type AnswerRecord struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	ExamResultID uint    `json:"exam_result_id" gorm:"not null;index"`
	QuestionID   uint    `json:"question_id" gorm:"not null;index"`
	UserAnswer   string  `json:"user_answer" gorm:"type:text"`
	IsCorrect    bool    `json:"is_correct" gorm:"not null"`
	Score        float64 `json:"score" gorm:"not null;default:0"` // earned weight, 0 when wrong

	CreatedAt time.Time `json:"created_at"`
}

// MistakeEntry is the mistake-tracker collaborator's durable "missed this
// question" fact, upserted per (user, question).
type MistakeEntry struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_mistake_user_question"`
	QuestionID   uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_mistake_user_question"`
	ExamID       uint      `json:"exam_id" gorm:"not null;index"`
	WrongAnswer  string    `json:"wrong_answer" gorm:"type:text"`
	MissCount    int       `json:"miss_count" gorm:"not null;default:1"`
	LastMissedAt time.Time `json:"last_missed_at" gorm:"not null"`
}

func (ExamResult) TableName() string {
	return "exam_results"
}

func (AnswerRecord) TableName() string {
	return "answer_records"
}

func (MistakeEntry) TableName() string {
	return "mistake_entries"
}
