package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/examstack/exam-engine/internal/dispatch"
	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/repositories"
	"github.com/examstack/exam-engine/internal/utils"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory repositories.Repository with transaction
// semantics: WithTx runs against a deep copy and publishes it only on
// success, so injected faults roll back like the real store.
type fakeRepo struct {
	mu sync.Mutex

	exams    map[uint]*models.Exam
	bindings map[uint][]models.ExamQuestion
	attempts map[uint]*models.ExamResult
	records  map[uint][]models.AnswerRecord
	mistakes map[string]*models.MistakeEntry

	nextAttemptID uint

	// Fault injection: fail CreateAnswerRecords after writing this many
	// records. Negative disables.
	failRecordsAfter int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		exams:            make(map[uint]*models.Exam),
		bindings:         make(map[uint][]models.ExamQuestion),
		attempts:         make(map[uint]*models.ExamResult),
		records:          make(map[uint][]models.AnswerRecord),
		mistakes:         make(map[string]*models.MistakeEntry),
		nextAttemptID:    1,
		failRecordsAfter: -1,
	}
}

func (f *fakeRepo) addExam(exam *models.Exam, questions []models.Question, weights map[uint]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exams[exam.ID] = exam
	bindings := make([]models.ExamQuestion, 0, len(questions))
	for i, q := range questions {
		if w, ok := weights[q.ID]; ok {
			q.Score = w
		}
		bindings = append(bindings, models.ExamQuestion{
			ExamID:     exam.ID,
			QuestionID: q.ID,
			Order:      i + 1,
			Question:   q,
		})
	}
	f.bindings[exam.ID] = bindings
}

func (f *fakeRepo) clone() *fakeRepo {
	c := newFakeRepo()
	c.nextAttemptID = f.nextAttemptID
	c.failRecordsAfter = f.failRecordsAfter
	for k, v := range f.exams {
		exam := *v
		c.exams[k] = &exam
	}
	for k, v := range f.bindings {
		c.bindings[k] = append([]models.ExamQuestion(nil), v...)
	}
	for k, v := range f.attempts {
		attempt := *v
		c.attempts[k] = &attempt
	}
	for k, v := range f.records {
		c.records[k] = append([]models.AnswerRecord(nil), v...)
	}
	for k, v := range f.mistakes {
		entry := *v
		c.mistakes[k] = &entry
	}
	return c
}

func (f *fakeRepo) adopt(tx *fakeRepo) {
	f.exams = tx.exams
	f.bindings = tx.bindings
	f.attempts = tx.attempts
	f.records = tx.records
	f.mistakes = tx.mistakes
	f.nextAttemptID = tx.nextAttemptID
}

func (f *fakeRepo) Exam() repositories.ExamRepository       { return (*fakeExamRepo)(f) }
func (f *fakeRepo) Attempt() repositories.AttemptRepository { return (*fakeAttemptRepo)(f) }
func (f *fakeRepo) Mistake() repositories.MistakeRepository { return (*fakeMistakeRepo)(f) }

func (f *fakeRepo) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := f.clone()
	if err := fn(tx); err != nil {
		return err
	}
	f.adopt(tx)
	return nil
}

// ----- exam repo -----

type fakeExamRepo fakeRepo

func (f *fakeExamRepo) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *exam
	return &copied, nil
}

func (f *fakeExamRepo) GetWithQuestions(ctx context.Context, id uint) (*models.Exam, []models.ExamQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[id]
	if !ok {
		return nil, nil, gorm.ErrRecordNotFound
	}
	copied := *exam
	return &copied, append([]models.ExamQuestion(nil), f.bindings[id]...), nil
}

// ----- attempt repo -----

type fakeAttemptRepo fakeRepo

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *models.ExamResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.attempts {
		if existing.ExamID == attempt.ExamID &&
			existing.UserID == attempt.UserID &&
			existing.Status == models.AttemptInProgress {
			return gorm.ErrDuplicatedKey
		}
	}
	attempt.ID = f.nextAttemptID
	f.nextAttemptID++
	copied := *attempt
	f.attempts[attempt.ID] = &copied
	return nil
}

func (f *fakeAttemptRepo) GetByID(ctx context.Context, id uint) (*models.ExamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (f *fakeAttemptRepo) GetByIDWithRecords(ctx context.Context, id uint) (*models.ExamResult, error) {
	attempt, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.Records = append([]models.AnswerRecord(nil), f.records[id]...)
	return attempt, nil
}

func (f *fakeAttemptRepo) GetActive(ctx context.Context, examID, userID uint) (*models.ExamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, attempt := range f.attempts {
		if attempt.ExamID == examID && attempt.UserID == userID && attempt.Status == models.AttemptInProgress {
			copied := *attempt
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAttemptRepo) ListByUser(ctx context.Context, userID uint, filters repositories.AttemptFilters) ([]*models.ExamResult, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ExamResult
	for _, attempt := range f.attempts {
		if attempt.UserID != userID {
			continue
		}
		if filters.Status != "" && attempt.Status != filters.Status {
			continue
		}
		copied := *attempt
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAttemptRepo) CreateAnswerRecords(ctx context.Context, records []models.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, record := range records {
		if f.failRecordsAfter >= 0 && i >= f.failRecordsAfter {
			return fmt.Errorf("simulated storage failure after %d records", i)
		}
		f.records[record.ExamResultID] = append(f.records[record.ExamResultID], record)
	}
	return nil
}

func (f *fakeAttemptRepo) Finalize(ctx context.Context, attempt *models.ExamResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.attempts[attempt.ID]
	if !ok || stored.Status != models.AttemptInProgress {
		return gorm.ErrRecordNotFound
	}
	stored.Status = models.AttemptSubmitted
	stored.Score = attempt.Score
	stored.SubmitTime = attempt.SubmitTime
	stored.Answers = attempt.Answers
	return nil
}

func (f *fakeAttemptRepo) GetAnswerRecords(ctx context.Context, attemptID uint) ([]models.AnswerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AnswerRecord(nil), f.records[attemptID]...), nil
}

// ----- mistake repo -----

type fakeMistakeRepo fakeRepo

func (f *fakeMistakeRepo) Upsert(ctx context.Context, entry *models.MistakeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d:%d", entry.UserID, entry.QuestionID)
	if existing, ok := f.mistakes[key]; ok {
		existing.MissCount++
		existing.WrongAnswer = entry.WrongAnswer
		existing.LastMissedAt = entry.LastMissedAt
		return nil
	}
	copied := *entry
	f.mistakes[key] = &copied
	return nil
}

func (f *fakeMistakeRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.MistakeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MistakeEntry
	for _, entry := range f.mistakes {
		if entry.UserID == userID {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ----- collaborator stubs -----

type stubMistakeTracker struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (s *stubMistakeTracker) Collect(ctx context.Context, attemptID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, attemptID)
	return s.err
}

type stubProgressRecorder struct {
	mu    sync.Mutex
	calls int
}

func (s *stubProgressRecorder) Record(ctx context.Context, userID uint, studyTimeMinutes, questionsAnswered, correctAnswers int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

type stubRankingService struct {
	mu      sync.Mutex
	updates map[string]float64
	panics  bool
}

func (s *stubRankingService) UpdateRanking(ctx context.Context, leaderboardID string, userID uint, value float64) error {
	if s.panics {
		panic("ranking service unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updates == nil {
		s.updates = make(map[string]float64)
	}
	s.updates[leaderboardID] = value
	return nil
}

func (s *stubRankingService) CheckAchievements(ctx context.Context, userID uint) error {
	if s.panics {
		panic("ranking service unavailable")
	}
	return nil
}

// inlineDispatcher runs jobs synchronously with the same error boundary as
// the real pool, which keeps fan-out tests deterministic.
type inlineDispatcher struct {
	ran []string
}

func (d *inlineDispatcher) Enqueue(job dispatch.Job) bool {
	d.ran = append(d.ran, job.Name)
	func() {
		defer func() { recover() }()
		_ = job.Run(context.Background())
	}()
	return true
}

func (d *inlineDispatcher) Shutdown(ctx context.Context) error { return nil }

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
