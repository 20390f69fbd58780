package services

import (
	"testing"

	"github.com/campusworks/quiz-engine/internal/models"
)

func bankQuestions() []*models.Question {
	quiz := fixtureQuiz(1, nil)
	questions := make([]*models.Question, 0, len(quiz.Questions))
	for i := range quiz.Questions {
		questions = append(questions, &quiz.Questions[i])
	}
	return questions
}

func TestQuestionBank_PreservesOrderWithoutShuffle(t *testing.T) {
	bank := NewQuestionBank()
	quiz := &models.Quiz{ShuffleQuestions: false}
	questions := bankQuestions()

	views := bank.Present(quiz, questions)
	if len(views) != len(questions) {
		t.Fatalf("presented %d questions, want %d", len(views), len(questions))
	}
	for i, view := range views {
		if view.ID != questions[i].ID {
			t.Errorf("question %d: ID = %d, want %d", i, view.ID, questions[i].ID)
		}
		if len(view.Options) != len(questions[i].Options) {
			t.Errorf("question %d: %d options, want %d", i, len(view.Options), len(questions[i].Options))
		}
		for j, opt := range view.Options {
			if opt.ID != questions[i].Options[j].ID {
				t.Errorf("question %d option %d: ID = %d, want %d", i, j, opt.ID, questions[i].Options[j].ID)
			}
		}
	}
}

func TestQuestionBank_ShufflePreservesContent(t *testing.T) {
	bank := NewQuestionBank()
	quiz := &models.Quiz{ShuffleQuestions: true}
	questions := bankQuestions()

	views := bank.Present(quiz, questions)
	if len(views) != len(questions) {
		t.Fatalf("presented %d questions, want %d", len(views), len(questions))
	}

	byID := make(map[uint]QuestionView, len(views))
	for _, view := range views {
		byID[view.ID] = view
	}
	for _, q := range questions {
		view, ok := byID[q.ID]
		if !ok {
			t.Fatalf("question %d missing after shuffle", q.ID)
		}
		if view.Text != q.Text || view.Points != q.Points {
			t.Errorf("question %d content changed: %+v", q.ID, view)
		}
		if len(view.Options) != len(q.Options) {
			t.Errorf("question %d: %d options after shuffle, want %d", q.ID, len(view.Options), len(q.Options))
		}
		seen := make(map[uint]bool, len(view.Options))
		for _, opt := range view.Options {
			seen[opt.ID] = true
		}
		for _, opt := range q.Options {
			if !seen[opt.ID] {
				t.Errorf("question %d option %d missing after shuffle", q.ID, opt.ID)
			}
		}
	}
}

func TestQuestionBank_DoesNotMutateSource(t *testing.T) {
	bank := NewQuestionBank()
	quiz := &models.Quiz{ShuffleQuestions: true}
	questions := bankQuestions()

	wantFirst := questions[0].ID
	wantFirstOption := questions[0].Options[0].ID
	for i := 0; i < 20; i++ {
		bank.Present(quiz, questions)
	}
	if questions[0].ID != wantFirst || questions[0].Options[0].ID != wantFirstOption {
		t.Error("shuffling must not reorder the stored questions")
	}
}
