package services

import (
	"encoding/json"
	"testing"

	"gorm.io/datatypes"

	"github.com/campusworks/quiz-engine/internal/models"
)

func choiceQuestion(id uint, qType models.QuestionType, points int, correctIDs []uint, allIDs []uint) *models.Question {
	q := &models.Question{
		ID:     id,
		Type:   qType,
		Points: points,
	}
	correct := make(map[uint]bool, len(correctIDs))
	for _, optID := range correctIDs {
		correct[optID] = true
	}
	for _, optID := range allIDs {
		q.Options = append(q.Options, models.Option{
			ID:         optID,
			QuestionID: id,
			IsCorrect:  correct[optID],
		})
	}
	return q
}

func selection(t *testing.T, responseID, questionID uint, optionIDs ...uint) *models.Response {
	t.Helper()
	raw, err := json.Marshal(optionIDs)
	if err != nil {
		t.Fatalf("marshal selection: %v", err)
	}
	return &models.Response{
		ID:                responseID,
		QuestionID:        questionID,
		SelectedOptionIDs: datatypes.JSON(raw),
	}
}

func textResponse(responseID, questionID uint, text string) *models.Response {
	return &models.Response{
		ID:         responseID,
		QuestionID: questionID,
		TextAnswer: &text,
	}
}

func TestScoreResponses_SingleChoice(t *testing.T) {
	questions := []*models.Question{
		choiceQuestion(1, models.QuestionSingleChoice, 5, []uint{11}, []uint{10, 11, 12}),
	}

	tests := []struct {
		name      string
		responses []*models.Response
		wantScore int
		wantPct   int
	}{
		{
			name:      "correct option",
			responses: []*models.Response{selection(t, 1, 1, 11)},
			wantScore: 5,
			wantPct:   100,
		},
		{
			name:      "wrong option",
			responses: []*models.Response{selection(t, 1, 1, 10)},
			wantScore: 0,
			wantPct:   0,
		},
		{
			name:      "unanswered stays in denominator",
			responses: nil,
			wantScore: 0,
			wantPct:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreResponses(questions, tt.responses, 60)
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.Possible != 5 {
				t.Errorf("Possible = %d, want 5", got.Possible)
			}
			if got.Percentage != tt.wantPct {
				t.Errorf("Percentage = %d, want %d", got.Percentage, tt.wantPct)
			}
		})
	}
}

func TestScoreResponses_MultiChoiceExactSet(t *testing.T) {
	// Correct set is {A, C} = option IDs {21, 23}.
	questions := []*models.Question{
		choiceQuestion(2, models.QuestionMultiChoice, 4, []uint{21, 23}, []uint{21, 22, 23, 24}),
	}

	tests := []struct {
		name     string
		selected []uint
		want     bool
	}{
		{name: "exact set", selected: []uint{21, 23}, want: true},
		{name: "exact set out of order", selected: []uint{23, 21}, want: true},
		{name: "subset gets no partial credit", selected: []uint{21}, want: false},
		{name: "superset gets no partial credit", selected: []uint{21, 22, 23}, want: false},
		{name: "disjoint", selected: []uint{22, 24}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScoreResponses(questions, []*models.Response{selection(t, 1, 2, tt.selected...)}, 60)
			wantScore := 0
			if tt.want {
				wantScore = 4
			}
			if result.Score != wantScore {
				t.Errorf("Score = %d, want %d", result.Score, wantScore)
			}
		})
	}
}

func TestScoreResponses_TrueFalse(t *testing.T) {
	questions := []*models.Question{
		choiceQuestion(3, models.QuestionTrueFalse, 2, []uint{31}, []uint{31, 32}),
	}

	result := ScoreResponses(questions, []*models.Response{selection(t, 1, 3, 31)}, 60)
	if result.Score != 2 || result.Percentage != 100 {
		t.Errorf("Score = %d, Percentage = %d, want 2, 100", result.Score, result.Percentage)
	}

	result = ScoreResponses(questions, []*models.Response{selection(t, 1, 3, 32)}, 60)
	if result.Score != 0 {
		t.Errorf("Score = %d, want 0", result.Score)
	}
}

func TestScoreResponses_FreeTextExcludedFromTotals(t *testing.T) {
	questions := []*models.Question{
		choiceQuestion(1, models.QuestionSingleChoice, 3, []uint{11}, []uint{10, 11}),
		{ID: 2, Type: models.QuestionFreeText, Points: 10},
	}
	responses := []*models.Response{
		selection(t, 1, 1, 11),
		textResponse(2, 2, "an essay answer"),
	}

	result := ScoreResponses(questions, responses, 60)
	if result.Possible != 3 {
		t.Errorf("Possible = %d, want 3 (free text must not count)", result.Possible)
	}
	if result.Score != 3 {
		t.Errorf("Score = %d, want 3", result.Score)
	}
	if result.Percentage != 100 {
		t.Errorf("Percentage = %d, want 100", result.Percentage)
	}
	if len(result.Questions) != 1 {
		t.Errorf("graded %d questions, want 1", len(result.Questions))
	}
}

func TestScoreResponses_PercentageRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name    string
		score   int
		wantPct int
	}{
		{name: "two of three", score: 2, wantPct: 67},
		{name: "one of three", score: 1, wantPct: 33},
	}

	questions := []*models.Question{
		choiceQuestion(1, models.QuestionSingleChoice, 1, []uint{11}, []uint{10, 11}),
		choiceQuestion(2, models.QuestionSingleChoice, 1, []uint{21}, []uint{20, 21}),
		choiceQuestion(3, models.QuestionSingleChoice, 1, []uint{31}, []uint{30, 31}),
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var responses []*models.Response
			correct := []uint{11, 21, 31}
			wrong := []uint{10, 20, 30}
			for i := 0; i < 3; i++ {
				optID := wrong[i]
				if i < tt.score {
					optID = correct[i]
				}
				responses = append(responses, selection(t, uint(i+1), uint(i+1), optID))
			}

			result := ScoreResponses(questions, responses, 60)
			if result.Percentage != tt.wantPct {
				t.Errorf("Percentage = %d, want %d", result.Percentage, tt.wantPct)
			}
		})
	}
}

func TestScoreResponses_PassedThreshold(t *testing.T) {
	questions := []*models.Question{
		choiceQuestion(1, models.QuestionSingleChoice, 1, []uint{11}, []uint{10, 11}),
	}
	correct := []*models.Response{selection(t, 1, 1, 11)}

	if got := ScoreResponses(questions, correct, 100); !got.Passed {
		t.Error("100% should pass a passing score of 100")
	}
	if got := ScoreResponses(questions, nil, 0); !got.Passed {
		t.Error("0% should pass a passing score of 0")
	}
	if got := ScoreResponses(questions, nil, 1); got.Passed {
		t.Error("0% should not pass a passing score of 1")
	}
}

func TestScoreResponses_NoGradableQuestions(t *testing.T) {
	questions := []*models.Question{
		{ID: 1, Type: models.QuestionFreeText, Points: 10},
	}

	result := ScoreResponses(questions, []*models.Response{textResponse(1, 1, "hi")}, 60)
	if result.Possible != 0 || result.Score != 0 {
		t.Errorf("Score/Possible = %d/%d, want 0/0", result.Score, result.Possible)
	}
	if result.Percentage != 0 {
		t.Errorf("Percentage = %d, want 0 when nothing is gradable", result.Percentage)
	}
	if result.Passed {
		t.Error("an attempt with no gradable questions must not pass a 60 threshold")
	}
}

func TestScoreResponses_Deterministic(t *testing.T) {
	questions := []*models.Question{
		choiceQuestion(1, models.QuestionSingleChoice, 3, []uint{11}, []uint{10, 11}),
		choiceQuestion(2, models.QuestionMultiChoice, 4, []uint{21, 22}, []uint{21, 22, 23}),
	}
	responses := []*models.Response{
		selection(t, 1, 1, 11),
		selection(t, 2, 2, 22, 21),
	}

	first := ScoreResponses(questions, responses, 60)
	second := ScoreResponses(questions, responses, 60)
	if first.Score != second.Score || first.Percentage != second.Percentage || first.Passed != second.Passed {
		t.Errorf("re-grading changed the result: %+v vs %+v", first, second)
	}
}

func TestPercentageOf(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		possible int
		want     int
	}{
		{name: "zero possible", score: 5, possible: 0, want: 0},
		{name: "full marks", score: 10, possible: 10, want: 100},
		{name: "two thirds rounds up", score: 2, possible: 3, want: 67},
		{name: "one third rounds down", score: 1, possible: 3, want: 33},
		{name: "exact half of odd total", score: 1, possible: 8, want: 13},
		{name: "half rounds up", score: 1, possible: 200, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentageOf(tt.score, tt.possible); got != tt.want {
				t.Errorf("percentageOf(%d, %d) = %d, want %d", tt.score, tt.possible, got, tt.want)
			}
		})
	}
}

func TestEqualOptionSets(t *testing.T) {
	tests := []struct {
		name string
		a, b []uint
		want bool
	}{
		{name: "equal unordered", a: []uint{3, 1, 2}, b: []uint{1, 2, 3}, want: true},
		{name: "different length", a: []uint{1}, b: []uint{1, 2}, want: false},
		{name: "both empty", a: nil, b: nil, want: true},
		{name: "disjoint", a: []uint{1}, b: []uint{2}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := equalOptionSets(tt.a, tt.b); got != tt.want {
				t.Errorf("equalOptionSets(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
