package services

import (
	"context"
	"time"

	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/repositories"
)

// ===== CATALOG =====

// QuestionEntry is one catalogued question as the grader sees it
type QuestionEntry struct {
	QuestionID    uint                `json:"question_id"`
	Type          models.QuestionType `json:"type"`
	CorrectAnswer string              `json:"correct_answer"`
	Score         float64             `json:"score"`
	Order         int                 `json:"order"`
}

// ExamSnapshot is the catalog's read model: exam metadata plus the ordered
// question set with grading keys.
type ExamSnapshot struct {
	ExamID     uint              `json:"exam_id"`
	Title      string            `json:"title"`
	Duration   int               `json:"duration"`
	StartTime  *time.Time        `json:"start_time"`
	EndTime    *time.Time        `json:"end_time"`
	TotalScore float64           `json:"total_score"`
	PassScore  float64           `json:"pass_score"`
	Status     models.ExamStatus `json:"status"`
	Questions  []QuestionEntry   `json:"questions"`
}

// CatalogService is the read-only exam catalog
type CatalogService interface {
	GetExamSnapshot(ctx context.Context, examID uint) (*ExamSnapshot, error)
}

// ===== ADMISSION =====

// AdmissionService decides whether a learner may begin an attempt
type AdmissionService interface {
	// StartAttempt admits the learner or fails with ErrExamNotFound,
	// ErrExamNotPublished, ErrExamNotStarted, ErrExamEnded or
	// ErrAttemptAlreadyInProgress. No partial effects on failure.
	StartAttempt(ctx context.Context, examID, userID uint, now time.Time) (*models.ExamResult, error)
	GetCurrentAttempt(ctx context.Context, examID, userID uint) (*models.ExamResult, error)
}

// ===== SCORING =====

type SubmitRequest struct {
	ExamID  uint            `json:"exam_id" validate:"required"`
	UserID  uint            `json:"user_id" validate:"required"`
	Answers map[uint]string `json:"answers"`
}

type SubmitResult struct {
	AttemptID  uint      `json:"attempt_id"`
	ExamID     uint      `json:"exam_id"`
	UserID     uint      `json:"user_id"`
	Score      float64   `json:"score"`
	TotalScore float64   `json:"total_score"`
	Passed     bool      `json:"passed"`
	SubmitTime time.Time `json:"submit_time"`

	QuestionsAnswered int `json:"questions_answered"`
	CorrectAnswers    int `json:"correct_answers"`
}

// ScoringService grades and durably records a submission
type ScoringService interface {
	// Submit grades the caller's in-progress attempt atomically and, after
	// commit, hands the fan-out work to the dispatcher. A missing or already
	// submitted attempt fails with ErrNoAttemptInProgress.
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	GetAttempt(ctx context.Context, attemptID, userID uint) (*models.ExamResult, error)
	ListAttempts(ctx context.Context, userID uint, filters repositories.AttemptFilters) ([]*models.ExamResult, int64, error)
}

// ===== FAN-OUT COLLABORATORS =====

// MistakeTracker records missed questions for a review queue
type MistakeTracker interface {
	Collect(ctx context.Context, attemptID uint) error
}

// ProgressRecorder logs a coarse study-session entry
type ProgressRecorder interface {
	Record(ctx context.Context, userID uint, studyTimeMinutes, questionsAnswered, correctAnswers int, label string) error
}

// RankingService maintains leaderboards and achievement unlocks
type RankingService interface {
	UpdateRanking(ctx context.Context, leaderboardID string, userID uint, value float64) error
	CheckAchievements(ctx context.Context, userID uint) error
}
