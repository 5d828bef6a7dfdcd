package models

import (
	"time"

	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "draft"
	ExamStatusPublished ExamStatus = "published"
	ExamStatusClosed    ExamStatus = "closed"
)

type Exam struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string    `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Duration    int        `json:"duration" gorm:"not null" validate:"required,min=1,max=600"` // minutes
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	TotalScore  float64    `json:"total_score" gorm:"not null;default:0"`
	PassScore   float64    `json:"pass_score" gorm:"not null;default:0" validate:"min=0"`
	Status      ExamStatus `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft published closed"`

	// Metadata
	CreatedBy uint           `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []ExamQuestion `json:"questions" gorm:"foreignKey:ExamID"`
	Results   []ExamResult   `json:"-" gorm:"foreignKey:ExamID"`
}

// ExamQuestion binds a question into an exam with an explicit position.
// The per-exam score weight lives on the question row.
type ExamQuestion struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	ExamID     uint `json:"exam_id" gorm:"not null;index:idx_exam_question,unique"`
	QuestionID uint `json:"question_id" gorm:"not null;index:idx_exam_question,unique"`
	Order      int  `json:"order" gorm:"column:order;not null;default:0"`

	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (Exam) TableName() string {
	return "exams"
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

// IsAttemptable reports whether the exam accepts new attempts at the given
// instant. Unset window bounds do not constrain.
func (e *Exam) IsAttemptable(now time.Time) bool {
	if e.Status != ExamStatusPublished {
		return false
	}
	if e.StartTime != nil && now.Before(*e.StartTime) {
		return false
	}
	if e.EndTime != nil && now.After(*e.EndTime) {
		return false
	}
	return true
}
