package models

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
	TrueFalse    QuestionType = "true_false"
	FillInBlank  QuestionType = "fill_in_blank"
	ShortAnswer  QuestionType = "short_answer"
)

type Question struct {
	ID      uint         `json:"id" gorm:"primaryKey"`
	Type    QuestionType `json:"type" gorm:"not null;index" validate:"required,oneof=single_choice multi_choice true_false fill_in_blank short_answer"`
	Content string       `json:"content" gorm:"type:text;not null" validate:"required"`

	// CorrectAnswer is the canonical answer the learner's submission is
	// compared against with exact equality.
	CorrectAnswer string  `json:"correct_answer" gorm:"type:text;not null"`
	Score         float64 `json:"score" gorm:"not null;default:0" validate:"min=0"`

	CreatedBy uint           `json:"created_by" gorm:"index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Question) TableName() string {
	return "questions"
}
