package services

import (
	"math/rand"

	"github.com/campusworks/quiz-engine/internal/models"
)

// questionBank builds the learner-facing view of a quiz's questions.
// Shuffling is a fresh permutation on every call and is never persisted;
// recording and grading work on question and option IDs, so presentation
// order does not affect correctness.
type questionBank struct{}

func NewQuestionBank() *questionBank {
	return &questionBank{}
}

// Present converts questions to their learner view with correctness
// stripped, shuffling questions and options when the quiz asks for it.
func (b *questionBank) Present(quiz *models.Quiz, questions []*models.Question) []QuestionView {
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, b.questionView(q, quiz.ShuffleQuestions))
	}

	if quiz.ShuffleQuestions {
		rand.Shuffle(len(views), func(i, j int) {
			views[i], views[j] = views[j], views[i]
		})
	}

	return views
}

func (b *questionBank) questionView(q *models.Question, shuffleOptions bool) QuestionView {
	view := QuestionView{
		ID:       q.ID,
		Type:     q.Type,
		Text:     q.Text,
		Points:   q.Points,
		Position: q.Position,
		Required: q.Required,
	}

	for _, o := range q.Options {
		view.Options = append(view.Options, OptionView{
			ID:   o.ID,
			Text: o.Text,
		})
	}

	if shuffleOptions && len(view.Options) > 1 {
		rand.Shuffle(len(view.Options), func(i, j int) {
			view.Options[i], view.Options[j] = view.Options[j], view.Options[i]
		})
	}

	return view
}
