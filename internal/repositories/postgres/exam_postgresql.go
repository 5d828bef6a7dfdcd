package postgres

import (
	"context"

	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

func (e ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}

	return &exam, nil
}

func (e ExamPostgreSQL) GetWithQuestions(ctx context.Context, id uint) (*models.Exam, []models.ExamQuestion, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, nil, err
	}

	var bindings []models.ExamQuestion
	if err := e.db.WithContext(ctx).
		Where("exam_id = ?", id).
		Order(`"order" ASC`).
		Preload("Question").
		Find(&bindings).Error; err != nil {
		return nil, nil, err
	}

	return &exam, bindings, nil
}
