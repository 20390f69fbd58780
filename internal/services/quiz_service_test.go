package services

import (
	"context"
	"errors"
	"testing"

	"github.com/campusworks/quiz-engine/internal/events"
	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/validator"
)

func newQuizTestSetup(t *testing.T) (*mockRepository, *events.MockEventPublisher, QuizService) {
	t.Helper()

	repo := newMockRepository()
	repo.addUser(&models.User{ID: "learner-1", Role: models.RoleLearner, CourseIDs: []uint{10}})
	repo.addUser(&models.User{ID: "outsider", Role: models.RoleLearner})
	repo.addUser(&models.User{ID: "instructor-1", Role: models.RoleInstructor})

	publisher := events.NewMockEventPublisher()
	service := NewQuizService(repo, testLogger(), validator.New(), publisher)
	return repo, publisher, service
}

func validCreateRequest() *CreateQuizRequest {
	return &CreateQuizRequest{
		LessonID:     1,
		CourseID:     10,
		Title:        "Subnetting",
		AttemptLimit: 3,
		PassingScore: intPtr(60),
		Questions: []CreateQuestionRequest{
			{
				Type:   models.QuestionSingleChoice,
				Text:   "What is a /24?",
				Points: 5,
				Options: []CreateOptionRequest{
					{Text: "256 addresses", IsCorrect: true},
					{Text: "24 addresses"},
				},
			},
		},
	}
}

func TestQuizService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("instructor creates a quiz", func(t *testing.T) {
		_, _, service := newQuizTestSetup(t)

		quiz, err := service.Create(ctx, validCreateRequest(), "instructor-1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if !quiz.IsActive {
			t.Error("new quizzes should be active")
		}
		if len(quiz.Questions) != 1 || quiz.Questions[0].Position != 1 {
			t.Errorf("questions = %+v, want one question at position 1", quiz.Questions)
		}
	})

	t.Run("learner is refused", func(t *testing.T) {
		_, _, service := newQuizTestSetup(t)

		_, err := service.Create(ctx, validCreateRequest(), "learner-1")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})

	t.Run("rejects bad option sets", func(t *testing.T) {
		_, _, service := newQuizTestSetup(t)

		tests := []struct {
			name   string
			mutate func(*CreateQuizRequest)
		}{
			{
				name: "single choice with two correct options",
				mutate: func(req *CreateQuizRequest) {
					req.Questions[0].Options[1].IsCorrect = true
				},
			},
			{
				name: "single choice with no correct option",
				mutate: func(req *CreateQuizRequest) {
					req.Questions[0].Options[0].IsCorrect = false
				},
			},
			{
				name: "free text with options",
				mutate: func(req *CreateQuizRequest) {
					req.Questions[0].Type = models.QuestionFreeText
				},
			},
			{
				name: "true false with three options",
				mutate: func(req *CreateQuizRequest) {
					req.Questions[0].Type = models.QuestionTrueFalse
					req.Questions[0].Options = append(req.Questions[0].Options, CreateOptionRequest{Text: "maybe"})
				},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := validCreateRequest()
				tt.mutate(req)
				_, err := service.Create(ctx, req, "instructor-1")
				var valErr *ValidationError
				if !errors.As(err, &valErr) {
					t.Errorf("error = %v, want ValidationError", err)
				}
			})
		}
	})
}

func TestQuizService_GetPresentation(t *testing.T) {
	ctx := context.Background()

	t.Run("enrolled learner gets stripped questions", func(t *testing.T) {
		repo, _, service := newQuizTestSetup(t)
		repo.addQuiz(fixtureQuiz(1, nil))

		views, err := service.GetPresentation(ctx, 1, "learner-1")
		if err != nil {
			t.Fatalf("GetPresentation() error = %v", err)
		}
		if len(views) != 3 {
			t.Errorf("got %d questions, want 3", len(views))
		}
	})

	t.Run("outsider is refused", func(t *testing.T) {
		repo, _, service := newQuizTestSetup(t)
		repo.addQuiz(fixtureQuiz(1, nil))

		_, err := service.GetPresentation(ctx, 1, "outsider")
		if !errors.Is(err, ErrNotEnrolled) {
			t.Errorf("error = %v, want ErrNotEnrolled", err)
		}
	})

	t.Run("inactive quiz looks like not found", func(t *testing.T) {
		repo, _, service := newQuizTestSetup(t)
		quiz := fixtureQuiz(1, nil)
		quiz.IsActive = false
		repo.addQuiz(quiz)

		_, err := service.GetPresentation(ctx, 1, "learner-1")
		if !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("error = %v, want ErrQuizNotFound", err)
		}
	})
}

func TestQuizService_SetActive(t *testing.T) {
	ctx := context.Background()
	repo, _, service := newQuizTestSetup(t)
	repo.addQuiz(fixtureQuiz(1, nil))

	if err := service.SetActive(ctx, 1, false, "instructor-1"); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if repo.quizzes[1].IsActive {
		t.Error("quiz should be inactive")
	}

	if err := service.SetActive(ctx, 99, true, "instructor-1"); !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("error = %v, want ErrQuizNotFound", err)
	}

	var permErr *PermissionError
	if err := service.SetActive(ctx, 1, true, "learner-1"); !errors.As(err, &permErr) {
		t.Errorf("error = %v, want PermissionError", err)
	}
}

func TestQuizService_Regrade(t *testing.T) {
	ctx := context.Background()

	repo := newMockRepository()
	repo.addUser(&models.User{ID: "learner-1", Role: models.RoleLearner, CourseIDs: []uint{10}})
	repo.addUser(&models.User{ID: "instructor-1", Role: models.RoleInstructor})

	publisher := events.NewMockEventPublisher()
	quizService := NewQuizService(repo, testLogger(), validator.New(), publisher)
	attemptService := NewAttemptService(repo, nil, testLogger(), validator.New(), publisher)

	quiz := fixtureQuiz(1, nil)
	repo.addQuiz(quiz)

	// Answer with option 12, which is wrong under the current key.
	started, err := attemptService.Start(ctx, &StartAttemptRequest{QuizID: 1}, "learner-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := attemptService.SubmitResponse(ctx, started.ID, &SubmitResponseRequest{
		QuestionID:        1,
		SelectedOptionIDs: []uint{12},
	}, "learner-1"); err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}
	completed, err := attemptService.Complete(ctx, started.ID, "learner-1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if *completed.Score != 0 {
		t.Fatalf("Score = %d, want 0 before the key fix", *completed.Score)
	}

	// Fix the answer key: option 12 becomes the correct one.
	quiz.Questions[0].Options[0].IsCorrect = false
	quiz.Questions[0].Options[1].IsCorrect = true

	t.Run("learner is refused", func(t *testing.T) {
		_, err := quizService.Regrade(ctx, 1, "learner-1")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})

	t.Run("regrade rewrites the aggregate", func(t *testing.T) {
		regraded, err := quizService.Regrade(ctx, 1, "instructor-1")
		if err != nil {
			t.Fatalf("Regrade() error = %v", err)
		}
		if regraded != 1 {
			t.Errorf("regraded = %d, want 1", regraded)
		}

		stored := repo.attempt(started.ID)
		if stored.Score == nil || *stored.Score != 3 {
			t.Errorf("Score = %v, want 3 after the key fix", stored.Score)
		}
		if stored.Status != models.AttemptCompleted {
			t.Errorf("Status = %s, regrade must not change status", stored.Status)
		}
		if got := publisher.GetEventsByType(events.QuizRegraded); len(got) != 1 {
			t.Errorf("published %d regrade events, want 1", len(got))
		}
	})
}
