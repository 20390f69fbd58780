package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
)

// QuestionScore is the grading outcome for one response.
type QuestionScore struct {
	ResponseID   uint `json:"response_id"`
	QuestionID   uint `json:"question_id"`
	Gradable     bool `json:"gradable"`
	IsCorrect    bool `json:"is_correct"`
	PointsEarned int  `json:"points_earned"`
}

// AttemptScore aggregates per-question scores into the attempt result.
// Possible only counts auto-gradable questions; free text is outside both
// the earned and the possible totals.
type AttemptScore struct {
	Score      int             `json:"score"`
	Possible   int             `json:"possible"`
	Percentage int             `json:"percentage"`
	Passed     bool            `json:"passed"`
	Questions  []QuestionScore `json:"questions"`
}

type gradingService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewGradingService(repo repositories.Repository, logger *slog.Logger) *gradingService {
	return &gradingService{repo: repo, logger: logger}
}

// ScoreResponses grades an answer set against the question bank. Scoring is
// deterministic, so re-grading a graded attempt reproduces the same result.
func ScoreResponses(questions []*models.Question, responses []*models.Response, passingScore int) *AttemptScore {
	byQuestion := make(map[uint]*models.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	result := &AttemptScore{}
	for _, q := range questions {
		if !q.Type.IsAutoGradable() {
			continue
		}
		result.Possible += q.Points

		response, ok := byQuestion[q.ID]
		if !ok {
			// Unanswered questions stay in the denominator and score 0.
			continue
		}

		correct := isResponseCorrect(q, response)
		score := QuestionScore{
			ResponseID: response.ID,
			QuestionID: q.ID,
			Gradable:   true,
			IsCorrect:  correct,
		}
		if correct {
			score.PointsEarned = q.Points
			result.Score += q.Points
		}
		result.Questions = append(result.Questions, score)
	}

	result.Percentage = percentageOf(result.Score, result.Possible)
	result.Passed = result.Percentage >= passingScore
	return result
}

// isResponseCorrect applies the per-type scoring rule: single choice and
// true/false need exactly the one correct option, multi choice needs the
// selected set to equal the correct set with no partial credit.
func isResponseCorrect(question *models.Question, response *models.Response) bool {
	selected, err := decodeSelectedOptions(response.SelectedOptionIDs)
	if err != nil || len(selected) == 0 {
		return false
	}

	correct := question.CorrectOptionIDs()

	switch question.Type {
	case models.QuestionSingleChoice, models.QuestionTrueFalse:
		return len(selected) == 1 && len(correct) == 1 && selected[0] == correct[0]
	case models.QuestionMultiChoice:
		return equalOptionSets(selected, correct)
	default:
		return false
	}
}

func decodeSelectedOptions(raw []byte) ([]uint, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode selected options: %w", err)
	}
	return ids, nil
}

func equalOptionSets(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := append([]uint(nil), a...)
	sortedB := append([]uint(nil), b...)
	sort.Slice(sortedA, func(i, j int) bool { return sortedA[i] < sortedA[j] })
	sort.Slice(sortedB, func(i, j int) bool { return sortedB[i] < sortedB[j] })
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}

// percentageOf rounds half up, so 2 of 3 points is 67 rather than 66.
func percentageOf(score, possible int) int {
	if possible <= 0 {
		return 0
	}
	return int(math.Floor(float64(score)*100/float64(possible) + 0.5))
}

// ScoreAttempt grades all responses of an attempt inside the caller's
// transaction and persists the per-response results.
func (g *gradingService) ScoreAttempt(ctx context.Context, tx *gorm.DB, attempt *models.Attempt, quiz *models.Quiz, questions []*models.Question) (*AttemptScore, error) {
	responses, err := g.repo.Response().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses for grading: %w", err)
	}

	result := ScoreResponses(questions, responses, quiz.PassingScore)

	for _, qs := range result.Questions {
		if err := g.repo.Response().UpdateGrading(ctx, tx, qs.ResponseID, qs.IsCorrect, qs.PointsEarned); err != nil {
			return nil, fmt.Errorf("failed to persist grading for response %d: %w", qs.ResponseID, err)
		}
	}

	g.logger.DebugContext(ctx, "Attempt scored",
		"attempt_id", attempt.ID,
		"score", result.Score,
		"possible", result.Possible,
		"percentage", result.Percentage,
		"passed", result.Passed)

	return result, nil
}

// RegradeCompleted re-scores one completed attempt after a question bank
// correction and persists the updated aggregate.
func (g *gradingService) RegradeCompleted(ctx context.Context, attempt *models.Attempt, quiz *models.Quiz, questions []*models.Question) (*AttemptScore, error) {
	if attempt.Status != models.AttemptCompleted {
		return nil, ErrAttemptNotActive
	}

	var result *AttemptScore
	err := g.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = g.ScoreAttempt(ctx, tx, attempt, quiz, questions)
		if err != nil {
			return err
		}

		rows, err := g.repo.Attempt().UpdateCompletedScore(ctx, tx, attempt.ID, result.Score, result.Percentage, result.Passed)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAttemptNotActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
