package repositories

import (
	"context"

	"github.com/examstack/exam-engine/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	Status    models.AttemptStatus `json:"status"`
	ExamID    *uint                `json:"exam_id"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "submit_time", "score"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORY INTERFACES =====

// ExamRepository is the catalog read path. The engine never writes exams.
type ExamRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	// GetWithQuestions returns the exam and its question bindings ordered by
	// the explicit exam_questions position.
	GetWithQuestions(ctx context.Context, id uint) (*models.Exam, []models.ExamQuestion, error)
}

// AttemptRepository owns exam_results and answer_records.
type AttemptRepository interface {
	// Create inserts a new in-progress attempt. A duplicate active attempt
	// for the same (exam, user) fails the partial unique index; callers
	// detect that with IsDuplicateError.
	Create(ctx context.Context, attempt *models.ExamResult) error
	GetByID(ctx context.Context, id uint) (*models.ExamResult, error)
	GetByIDWithRecords(ctx context.Context, id uint) (*models.ExamResult, error)
	// GetActive returns the single in-progress attempt for (examID, userID).
	GetActive(ctx context.Context, examID, userID uint) (*models.ExamResult, error)
	ListByUser(ctx context.Context, userID uint, filters AttemptFilters) ([]*models.ExamResult, int64, error)

	CreateAnswerRecords(ctx context.Context, records []models.AnswerRecord) error
	// Finalize transitions the attempt to submitted, guarded by the current
	// in_progress status. Returns a not-found error when the guard misses.
	Finalize(ctx context.Context, attempt *models.ExamResult) error
	GetAnswerRecords(ctx context.Context, attemptID uint) ([]models.AnswerRecord, error)
}

// MistakeRepository is the mistake-tracker collaborator's store.
type MistakeRepository interface {
	// Upsert increments miss_count when the (user, question) pair exists.
	Upsert(ctx context.Context, entry *models.MistakeEntry) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.MistakeEntry, error)
}

// Repository aggregates the per-table repositories and the transaction
// boundary.
type Repository interface {
	Exam() ExamRepository
	Attempt() AttemptRepository
	Mistake() MistakeRepository

	// WithTx runs fn inside a single storage transaction. Every repository
	// obtained from the Repository passed to fn participates in it; any
	// error (or panic) rolls the whole transaction back.
	WithTx(ctx context.Context, fn func(Repository) error) error
}
