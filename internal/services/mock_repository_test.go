package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
)

// mockRepository is an in-memory Repository for service tests. It enforces
// the same uniqueness rules as the database schema: one in_progress attempt
// per (quiz, learner) and one response per (attempt, question).
type mockRepository struct {
	mu sync.Mutex

	quizzes   map[uint]*models.Quiz
	attempts  map[uint]*models.Attempt
	responses map[uint]*models.Response
	users     map[string]*models.User

	nextAttemptID  uint
	nextResponseID uint

	// afterExpiredScan runs after GetExpiredInProgress snapshots its result,
	// to simulate transitions racing the sweep.
	afterExpiredScan func()
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quizzes:        make(map[uint]*models.Quiz),
		attempts:       make(map[uint]*models.Attempt),
		responses:      make(map[uint]*models.Response),
		users:          make(map[string]*models.User),
		nextAttemptID:  1,
		nextResponseID: 1,
	}
}

func (m *mockRepository) addQuiz(quiz *models.Quiz)    { m.quizzes[quiz.ID] = quiz }
func (m *mockRepository) addUser(user *models.User)    { m.users[user.ID] = user }
func (m *mockRepository) attempt(id uint) *models.Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[id]
}

func (m *mockRepository) Quiz() repositories.QuizRepository           { return (*mockQuizRepo)(m) }
func (m *mockRepository) Attempt() repositories.AttemptRepository     { return (*mockAttemptRepo)(m) }
func (m *mockRepository) Response() repositories.ResponseRepository   { return (*mockResponseRepo)(m) }
func (m *mockRepository) Directory() repositories.DirectoryRepository { return (*mockDirectoryRepo)(m) }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== quiz =====

type mockQuizRepo mockRepository

func (m *mockQuizRepo) Create(ctx context.Context, quiz *models.Quiz) error {
	m.quizzes[quiz.ID] = quiz
	return nil
}

func (m *mockQuizRepo) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, ok := m.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

func (m *mockQuizRepo) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Quiz, error) {
	return m.GetByID(ctx, id)
}

func (m *mockQuizRepo) GetByLesson(ctx context.Context, lessonID uint) (*models.Quiz, error) {
	for _, quiz := range m.quizzes {
		if quiz.LessonID == lessonID {
			return quiz, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuizRepo) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var out []*models.Quiz
	for _, quiz := range m.quizzes {
		out = append(out, quiz)
	}
	return out, int64(len(out)), nil
}

func (m *mockQuizRepo) Update(ctx context.Context, quiz *models.Quiz) error {
	m.quizzes[quiz.ID] = quiz
	return nil
}

func (m *mockQuizRepo) SetActive(ctx context.Context, id uint, active bool) error {
	quiz, ok := m.quizzes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	quiz.IsActive = active
	return nil
}

func (m *mockQuizRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.quizzes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.quizzes, id)
	return nil
}

func (m *mockQuizRepo) GetQuestions(ctx context.Context, quizID uint) ([]*models.Question, error) {
	quiz, ok := m.quizzes[quizID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	questions := make([]*models.Question, 0, len(quiz.Questions))
	for i := range quiz.Questions {
		questions = append(questions, &quiz.Questions[i])
	}
	return questions, nil
}

func (m *mockQuizRepo) GetQuestion(ctx context.Context, questionID uint) (*models.Question, error) {
	for _, quiz := range m.quizzes {
		for i := range quiz.Questions {
			if quiz.Questions[i].ID == questionID {
				return &quiz.Questions[i], nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuizRepo) UpdateQuestion(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	return nil
}

// ===== attempt =====

type mockAttemptRepo mockRepository

func (m *mockAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if attempt.Status == models.AttemptInProgress {
		for _, existing := range m.attempts {
			if existing.QuizID == attempt.QuizID &&
				existing.LearnerID == attempt.LearnerID &&
				existing.Status == models.AttemptInProgress {
				return gorm.ErrDuplicatedKey
			}
		}
	}

	attempt.ID = m.nextAttemptID
	m.nextAttemptID++
	copied := *attempt
	m.attempts[attempt.ID] = &copied
	return nil
}

func (m *mockAttemptRepo) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt, ok := m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (m *mockAttemptRepo) GetByIDWithResponses(ctx context.Context, id uint) (*models.Attempt, error) {
	attempt, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.responses {
		if r.AttemptID == id {
			attempt.Responses = append(attempt.Responses, *r)
		}
	}
	return attempt, nil
}

func (m *mockAttemptRepo) GetActive(ctx context.Context, quizID uint, learnerID string) (*models.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, attempt := range m.attempts {
		if attempt.QuizID == quizID && attempt.LearnerID == learnerID && attempt.Status == models.AttemptInProgress {
			copied := *attempt
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttemptRepo) CountByLearner(ctx context.Context, tx *gorm.DB, quizID uint, learnerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, attempt := range m.attempts {
		if attempt.QuizID == quizID && attempt.LearnerID == learnerID {
			count++
		}
	}
	return count, nil
}

func (m *mockAttemptRepo) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Attempt
	for _, attempt := range m.attempts {
		if filters.QuizID != nil && attempt.QuizID != *filters.QuizID {
			continue
		}
		if filters.LearnerID != nil && attempt.LearnerID != *filters.LearnerID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		copied := *attempt
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockAttemptRepo) GetBestCompleted(ctx context.Context, quizID uint, learnerID string) (*models.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *models.Attempt
	for _, attempt := range m.attempts {
		if attempt.QuizID != quizID || attempt.LearnerID != learnerID || attempt.Status != models.AttemptCompleted {
			continue
		}
		if best == nil {
			best = attempt
			continue
		}
		bp, ap := 0, 0
		if best.Percentage != nil {
			bp = *best.Percentage
		}
		if attempt.Percentage != nil {
			ap = *attempt.Percentage
		}
		if ap > bp {
			best = attempt
			continue
		}
		if ap == bp && attempt.SubmittedAt != nil && best.SubmittedAt != nil &&
			attempt.SubmittedAt.Before(*best.SubmittedAt) {
			best = attempt
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *best
	return &copied, nil
}

func (m *mockAttemptRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, attemptID uint, to models.AttemptStatus, updates map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt, ok := m.attempts[attemptID]
	if !ok || attempt.Status != models.AttemptInProgress {
		return 0, nil
	}

	attempt.Status = to
	for column, value := range updates {
		switch column {
		case "score":
			v := value.(int)
			attempt.Score = &v
		case "percentage":
			v := value.(int)
			attempt.Percentage = &v
		case "passed":
			v := value.(bool)
			attempt.Passed = &v
		case "submitted_at":
			v := value.(time.Time)
			attempt.SubmittedAt = &v
		case "time_spent":
			attempt.TimeSpent = value.(int)
		}
	}
	return 1, nil
}

func (m *mockAttemptRepo) UpdateCompletedScore(ctx context.Context, tx *gorm.DB, attemptID uint, score, percentage int, passed bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt, ok := m.attempts[attemptID]
	if !ok || attempt.Status != models.AttemptCompleted {
		return 0, nil
	}
	attempt.Score = &score
	attempt.Percentage = &percentage
	attempt.Passed = &passed
	return 1, nil
}

func (m *mockAttemptRepo) GetExpiredInProgress(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Attempt
	for _, attempt := range m.attempts {
		if attempt.Status != models.AttemptInProgress {
			continue
		}
		quiz, ok := m.quizzes[attempt.QuizID]
		if !ok {
			continue
		}
		deadline := quiz.Deadline(attempt.StartedAt)
		if deadline == nil || deadline.After(now) {
			continue
		}
		copied := *attempt
		copied.Quiz = quiz
		out = append(out, &copied)
		if len(out) == limit {
			break
		}
	}
	if m.afterExpiredScan != nil {
		m.afterExpiredScan()
	}
	return out, nil
}

func (m *mockAttemptRepo) GetQuizStats(ctx context.Context, quizID uint) (*repositories.QuizAttemptStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &repositories.QuizAttemptStats{
		QuizID:          quizID,
		StatusBreakdown: make(map[models.AttemptStatus]int64),
	}
	var pctSum, pctCount int64
	for _, attempt := range m.attempts {
		if attempt.QuizID != quizID {
			continue
		}
		stats.TotalAttempts++
		stats.StatusBreakdown[attempt.Status]++
		if attempt.Status == models.AttemptCompleted {
			stats.CompletedAttempts++
			if attempt.Passed != nil && *attempt.Passed {
				stats.PassedAttempts++
			}
			if attempt.Percentage != nil {
				pctSum += int64(*attempt.Percentage)
				pctCount++
			}
		}
	}
	if pctCount > 0 {
		stats.AveragePercentage = float64(pctSum) / float64(pctCount)
	}
	return stats, nil
}

// ===== response =====

type mockResponseRepo mockRepository

func (m *mockResponseRepo) Create(ctx context.Context, tx *gorm.DB, response *models.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.responses {
		if existing.AttemptID == response.AttemptID && existing.QuestionID == response.QuestionID {
			return gorm.ErrDuplicatedKey
		}
	}

	response.ID = m.nextResponseID
	m.nextResponseID++
	copied := *response
	m.responses[response.ID] = &copied
	return nil
}

func (m *mockResponseRepo) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Response
	for _, r := range m.responses {
		if r.AttemptID == attemptID {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockResponseRepo) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.responses {
		if r.AttemptID == attemptID && r.QuestionID == questionID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockResponseRepo) HasResponse(ctx context.Context, attemptID, questionID uint) (bool, error) {
	_, err := m.GetByAttemptAndQuestion(ctx, attemptID, questionID)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *mockResponseRepo) UpdateGrading(ctx context.Context, tx *gorm.DB, responseID uint, isCorrect bool, pointsEarned int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.responses[responseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.IsCorrect = &isCorrect
	r.PointsEarned = &pointsEarned
	return nil
}

// ===== directory =====

type mockDirectoryRepo mockRepository

func (m *mockDirectoryRepo) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *mockDirectoryRepo) IsEnrolled(ctx context.Context, learnerID string, courseID uint) (bool, error) {
	user, ok := m.users[learnerID]
	if !ok {
		return false, nil
	}
	return user.IsEnrolledIn(courseID), nil
}
