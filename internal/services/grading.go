package services

import (
	"strings"

	"github.com/examstack/exam-engine/internal/models"
)

// AutoGradePlaceholder names the inherited short-answer behavior: the grader
// has no real free-text matching and accepts any non-empty short answer.
// Every hit is logged by the scoring engine so the placeholder stays visible
// until proper grading replaces it.
const AutoGradePlaceholder = "auto_grade_placeholder"

// GradedAnswer is the grading outcome for a single catalogued question
type GradedAnswer struct {
	QuestionID  uint
	UserAnswer  string
	Answered    bool
	IsCorrect   bool
	EarnedScore float64
	// Placeholder is true when the verdict came from the short-answer
	// auto-pass path rather than exact matching.
	Placeholder bool
}

// GradeSummary aggregates one attempt's grading
type GradeSummary struct {
	TotalScore        float64
	QuestionsAnswered int
	CorrectAnswers    int
	Answers           []GradedAnswer
}

// GradeAttempt grades every catalogued question against the submitted
// answers. Questions the learner never answered are graded incorrect with
// zero score. Comparison is exact value equality on the trimmed strings; no
// partial credit.
func GradeAttempt(questions []QuestionEntry, answers map[uint]string) GradeSummary {
	summary := GradeSummary{
		Answers: make([]GradedAnswer, 0, len(questions)),
	}

	for _, q := range questions {
		submitted, answered := answers[q.QuestionID]
		submitted = strings.TrimSpace(submitted)
		if submitted == "" {
			answered = false
		}

		graded := GradedAnswer{
			QuestionID: q.QuestionID,
			UserAnswer: submitted,
			Answered:   answered,
		}

		switch {
		case !answered:
			// unanswered never contributes to the score
		case q.Type == models.ShortAnswer:
			graded.IsCorrect = true
			graded.Placeholder = true
		default:
			graded.IsCorrect = submitted == strings.TrimSpace(q.CorrectAnswer)
		}

		if graded.IsCorrect {
			graded.EarnedScore = q.Score
			summary.TotalScore += q.Score
			summary.CorrectAnswers++
		}
		if answered {
			summary.QuestionsAnswered++
		}

		summary.Answers = append(summary.Answers, graded)
	}

	return summary
}
