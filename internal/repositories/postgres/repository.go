package postgres

import (
	"context"

	"github.com/examstack/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db      *gorm.DB
	exam    repositories.ExamRepository
	attempt repositories.AttemptRepository
	mistake repositories.MistakeRepository
}

// NewRepository creates the postgres-backed repository aggregate
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:      db,
		exam:    NewExamPostgreSQL(db),
		attempt: NewAttemptPostgreSQL(db),
		mistake: NewMistakePostgreSQL(db),
	}
}

func (r *repository) Exam() repositories.ExamRepository {
	return r.exam
}

func (r *repository) Attempt() repositories.AttemptRepository {
	return r.attempt
}

func (r *repository) Mistake() repositories.MistakeRepository {
	return r.mistake
}

// WithTx runs fn against a repository bound to a single gorm transaction.
// gorm rolls back on error or panic and commits otherwise.
func (r *repository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
