package utils

import (
	"reflect"
	"strings"

	apperrors "github.com/examstack/exam-engine/internal/errors"
	"github.com/examstack/exam-engine/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground struct validation with the custom rules the
// engine uses.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with custom rules registered
func NewValidator() *Validator {
	validate := validator.New()

	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("exam_status", validateExamStatus)

	// Report json field names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: validate}
}

// Validate validates struct tags and converts failures to the shared
// ValidationErrors type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.SingleChoice,
		models.MultiChoice,
		models.TrueFalse,
		models.FillInBlank,
		models.ShortAnswer,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateExamStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.ExamStatus{
		models.ExamStatusDraft,
		models.ExamStatusPublished,
		models.ExamStatusClosed,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}
