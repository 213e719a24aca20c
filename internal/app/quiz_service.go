package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"torcida-quiz-service/internal/domain"
	"torcida-quiz-service/internal/joincode"
	"torcida-quiz-service/internal/logger"
)

const codeAttempts = 5

// Defaults applied when a request leaves a field out.
type Defaults struct {
	TimeLimit       int
	MaxParticipants int
	Points          int
}

// DefaultSettings are used for zero values in Defaults.
var DefaultSettings = Defaults{TimeLimit: 30, MaxParticipants: 50, Points: 100}

func (d Defaults) withFallbacks() Defaults {
	if d.TimeLimit <= 0 {
		d.TimeLimit = DefaultSettings.TimeLimit
	}
	if d.MaxParticipants <= 0 {
		d.MaxParticipants = DefaultSettings.MaxParticipants
	}
	if d.Points <= 0 {
		d.Points = DefaultSettings.Points
	}
	return d
}

type CreateQuizInput struct {
	Title           string
	Description     string
	MaxParticipants int
	TimeLimit       int
}

// UpdateQuizInput carries the fields to change; nil leaves a field as is.
type UpdateQuizInput struct {
	Title           *string
	Description     *string
	MaxParticipants *int
	TimeLimit       *int
}

type OptionInput struct {
	Text      string
	IsCorrect bool
}

type AddQuestionInput struct {
	Text    string
	Points  int
	Options []OptionInput
}

// OptionView hides correctness from everyone but the quiz owner.
type OptionView struct {
	ID        string `json:"id"`
	Text      string `json:"option_text"`
	Order     int    `json:"option_order"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

type QuestionView struct {
	ID        string       `json:"id"`
	QuizID    string       `json:"quiz_id"`
	Text      string       `json:"question_text"`
	Order     int          `json:"question_order"`
	Points    int          `json:"points"`
	TimeLimit int          `json:"time_limit"`
	Options   []OptionView `json:"options"`
}

// QuizDetail is a quiz with its ordered questions.
type QuizDetail struct {
	domain.Quiz
	Questions []QuestionView `json:"questions"`
}

// QuizService manages quizzes, their questions and their lifecycle.
type QuizService struct {
	quizzes      QuizRepository
	questions    QuestionRepository
	participants ParticipantRepository
	sheets       SheetCache
	events       Broadcaster
	defaults     Defaults
	log          *logger.Logger
	now          func() time.Time
}

func NewQuizService(quizzes QuizRepository, questions QuestionRepository, participants ParticipantRepository, sheets SheetCache, events Broadcaster, defaults Defaults, log *logger.Logger) *QuizService {
	return newQuizServiceWithClock(quizzes, questions, participants, sheets, events, defaults, log, time.Now)
}

// newQuizServiceWithClock allows deterministic timestamps in tests.
func newQuizServiceWithClock(quizzes QuizRepository, questions QuestionRepository, participants ParticipantRepository, sheets SheetCache, events Broadcaster, defaults Defaults, log *logger.Logger, now func() time.Time) *QuizService {
	return &QuizService{
		quizzes:      quizzes,
		questions:    questions,
		participants: participants,
		sheets:       sheets,
		events:       events,
		defaults:     defaults.withFallbacks(),
		log:          log.With("service", "QuizService"),
		now:          now,
	}
}

func (s *QuizService) Create(ctx context.Context, creatorID string, in CreateQuizInput) (domain.Quiz, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Quiz{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	maxParticipants := in.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = s.defaults.MaxParticipants
	}
	timeLimit := in.TimeLimit
	if timeLimit == 0 {
		timeLimit = s.defaults.TimeLimit
	}
	if maxParticipants < 1 {
		return domain.Quiz{}, fmt.Errorf("%w: max_participants must be positive", domain.ErrValidation)
	}
	if timeLimit < 1 {
		return domain.Quiz{}, fmt.Errorf("%w: time_limit must be positive", domain.ErrValidation)
	}

	quiz := domain.Quiz{
		ID:              uuid.NewString(),
		CreatorID:       creatorID,
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		MaxParticipants: maxParticipants,
		TimeLimit:       timeLimit,
		Status:          domain.StatusDraft,
		CreatedAt:       s.now().UTC(),
	}
	for attempt := 1; ; attempt++ {
		code, err := joincode.Generate()
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("generate join code: %w", err)
		}
		quiz.Code = code
		err = s.quizzes.CreateQuiz(ctx, quiz)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrCodeTaken) || attempt == codeAttempts {
			return domain.Quiz{}, err
		}
		s.log.Warn("join code collision, retrying", "attempt", attempt)
	}
	s.log.Info("quiz created", "quiz_id", quiz.ID, "code", quiz.Code)
	return quiz, nil
}

func (s *QuizService) List(ctx context.Context, creatorID string) ([]domain.Quiz, error) {
	return s.quizzes.ListQuizzesByCreator(ctx, creatorID)
}

// Get returns a quiz with its questions. Option correctness is only revealed
// when viewerID owns the quiz.
func (s *QuizService) Get(ctx context.Context, quizID, viewerID string) (QuizDetail, error) {
	var (
		quiz  domain.Quiz
		sheet domain.QuestionSheet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quiz, err = s.quizzes.GetQuiz(gctx, quizID)
		return err
	})
	g.Go(func() error {
		var err error
		sheet, err = s.sheets.GetSheet(gctx, quizID)
		return err
	})
	if err := g.Wait(); err != nil {
		return QuizDetail{}, err
	}

	owner := viewerID != "" && viewerID == quiz.CreatorID
	detail := QuizDetail{Quiz: quiz, Questions: make([]QuestionView, 0, sheet.Len())}
	for _, q := range sheet.Questions {
		view := QuestionView{
			ID:        q.ID,
			QuizID:    q.QuizID,
			Text:      q.Text,
			Order:     q.Order,
			Points:    q.Points,
			TimeLimit: quiz.TimeLimit,
			Options:   make([]OptionView, 0, len(q.Options)),
		}
		for _, opt := range q.Options {
			ov := OptionView{ID: opt.ID, Text: opt.Text, Order: opt.Order}
			if owner {
				correct := opt.IsCorrect
				ov.IsCorrect = &correct
			}
			view.Options = append(view.Options, ov)
		}
		detail.Questions = append(detail.Questions, view)
	}
	return detail, nil
}

func (s *QuizService) Update(ctx context.Context, quizID, userID string, in UpdateQuizInput) (domain.Quiz, error) {
	quiz, err := s.owned(ctx, quizID, userID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Status == domain.StatusFinished {
		return domain.Quiz{}, domain.ErrQuizLocked
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return domain.Quiz{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
		}
		quiz.Title = title
	}
	if in.Description != nil {
		quiz.Description = strings.TrimSpace(*in.Description)
	}
	if in.MaxParticipants != nil {
		if *in.MaxParticipants < 1 {
			return domain.Quiz{}, fmt.Errorf("%w: max_participants must be positive", domain.ErrValidation)
		}
		quiz.MaxParticipants = *in.MaxParticipants
	}
	if in.TimeLimit != nil && *in.TimeLimit != quiz.TimeLimit {
		if !quiz.Status.Editable() {
			return domain.Quiz{}, domain.ErrQuizLocked
		}
		if *in.TimeLimit < 1 {
			return domain.Quiz{}, fmt.Errorf("%w: time_limit must be positive", domain.ErrValidation)
		}
		quiz.TimeLimit = *in.TimeLimit
	}
	if err := s.quizzes.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *QuizService) Delete(ctx context.Context, quizID, userID string) error {
	if _, err := s.owned(ctx, quizID, userID); err != nil {
		return err
	}
	if err := s.quizzes.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidateSheet(ctx, quizID)
	s.log.Info("quiz deleted", "quiz_id", quizID)
	return nil
}

func (s *QuizService) Activate(ctx context.Context, quizID, userID string) (domain.Quiz, error) {
	return s.transition(ctx, quizID, userID, domain.ActionActivate)
}

func (s *QuizService) Start(ctx context.Context, quizID, userID string) (domain.Quiz, error) {
	return s.transition(ctx, quizID, userID, domain.ActionStart)
}

func (s *QuizService) Finish(ctx context.Context, quizID, userID string) (domain.Quiz, error) {
	return s.transition(ctx, quizID, userID, domain.ActionFinish)
}

func (s *QuizService) transition(ctx context.Context, quizID, userID string, action domain.Action) (domain.Quiz, error) {
	quiz, err := s.owned(ctx, quizID, userID)
	if err != nil {
		return domain.Quiz{}, err
	}
	next, err := quiz.Status.Next(action)
	if err != nil {
		return domain.Quiz{}, err
	}
	if action == domain.ActionStart && quiz.QuestionCount == 0 {
		return domain.Quiz{}, domain.ErrNoQuestions
	}
	updated, err := s.quizzes.SetQuizStatus(ctx, quizID, quiz.Status, next, s.now().UTC())
	if err != nil {
		return domain.Quiz{}, err
	}
	s.log.Info("quiz status changed", "quiz_id", quizID, "from", quiz.Status, "to", next)
	if action == domain.ActionStart {
		// play reads the sheet from here on; drop anything cached while editing
		s.invalidateSheet(ctx, quizID)
	}

	view := statusView(updated, s.now())
	publish(ctx, s.events, s.log, domain.QuizEvent{Type: domain.EventStatus, QuizID: quizID, Status: &view})
	return updated, nil
}

func (s *QuizService) AddQuestion(ctx context.Context, quizID, userID string, in AddQuestionInput) (domain.Question, error) {
	quiz, err := s.owned(ctx, quizID, userID)
	if err != nil {
		return domain.Question{}, err
	}
	if !quiz.Status.Editable() {
		return domain.Question{}, domain.ErrQuizLocked
	}
	question, err := s.buildQuestion(quizID, in)
	if err != nil {
		return domain.Question{}, err
	}
	stored, err := s.questions.AddQuestion(ctx, question)
	if err != nil {
		return domain.Question{}, err
	}
	s.invalidateSheet(ctx, quizID)
	return stored, nil
}

func (s *QuizService) buildQuestion(quizID string, in AddQuestionInput) (domain.Question, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return domain.Question{}, fmt.Errorf("%w: question_text is required", domain.ErrValidation)
	}
	points := in.Points
	if points == 0 {
		points = s.defaults.Points
	}
	if points < 1 {
		return domain.Question{}, fmt.Errorf("%w: points must be positive", domain.ErrValidation)
	}
	if len(in.Options) < 2 {
		return domain.Question{}, fmt.Errorf("%w: at least 2 options are required", domain.ErrValidation)
	}

	question := domain.Question{ID: uuid.NewString(), QuizID: quizID, Text: text, Points: points}
	correct := 0
	for i, opt := range in.Options {
		optText := strings.TrimSpace(opt.Text)
		if optText == "" {
			return domain.Question{}, fmt.Errorf("%w: option %d has no text", domain.ErrValidation, i+1)
		}
		if opt.IsCorrect {
			correct++
		}
		question.Options = append(question.Options, domain.Option{
			ID:         uuid.NewString(),
			QuestionID: question.ID,
			Text:       optText,
			Order:      i + 1,
			IsCorrect:  opt.IsCorrect,
		})
	}
	if correct != 1 {
		return domain.Question{}, fmt.Errorf("%w: exactly one option must be correct", domain.ErrValidation)
	}
	return question, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, quizID, questionID, userID string) error {
	quiz, err := s.owned(ctx, quizID, userID)
	if err != nil {
		return err
	}
	if !quiz.Status.Editable() {
		return domain.ErrQuizLocked
	}
	if err := s.questions.DeleteQuestion(ctx, quizID, questionID); err != nil {
		return err
	}
	s.invalidateSheet(ctx, quizID)
	return nil
}

// Status is the polling view of a quiz.
func (s *QuizService) Status(ctx context.Context, quizID string) (domain.QuizStatusView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizStatusView{}, err
	}
	return statusView(quiz, s.now()), nil
}

func (s *QuizService) Leaderboard(ctx context.Context, quizID string) (domain.Leaderboard, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Leaderboard{}, err
	}
	return rankedLeaderboard(ctx, s.participants, quizID, s.now())
}

// Subscribe streams status and leaderboard events of an existing quiz.
func (s *QuizService) Subscribe(ctx context.Context, quizID string) (<-chan domain.QuizEvent, func(), error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, nil, err
	}
	return s.events.Subscribe(ctx, quizID)
}

// Owned loads a quiz and checks userID created it.
func (s *QuizService) Owned(ctx context.Context, quizID, userID string) (domain.Quiz, error) {
	return s.owned(ctx, quizID, userID)
}

func (s *QuizService) owned(ctx context.Context, quizID, userID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatorID != userID {
		return domain.Quiz{}, domain.ErrForbidden
	}
	return quiz, nil
}

func (s *QuizService) invalidateSheet(ctx context.Context, quizID string) {
	if err := s.sheets.Invalidate(ctx, quizID); err != nil {
		s.log.Warn("invalidate question sheet", "quiz_id", quizID, "error", err)
	}
}

func statusView(quiz domain.Quiz, now time.Time) domain.QuizStatusView {
	return domain.QuizStatusView{
		ID:               quiz.ID,
		Title:            quiz.Title,
		Status:           quiz.Status,
		StartedAt:        quiz.StartedAt,
		FinishedAt:       quiz.FinishedAt,
		ParticipantCount: quiz.ParticipantCount,
		QuestionCount:    quiz.QuestionCount,
		TimeLimit:        quiz.TimeLimit,
		RemainingSeconds: quiz.RemainingSeconds(now, quiz.QuestionCount),
	}
}

func rankedLeaderboard(ctx context.Context, participants ParticipantRepository, quizID string, now time.Time) (domain.Leaderboard, error) {
	entries, err := participants.Leaderboard(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		QuizID:    quizID,
		Entries:   domain.RankLeaderboard(entries),
		UpdatedAt: now.UTC(),
	}, nil
}

// publish is best effort: a failed fan-out never fails the request that caused it.
func publish(ctx context.Context, events Broadcaster, log *logger.Logger, event domain.QuizEvent) {
	if err := events.Publish(ctx, event); err != nil {
		log.Warn("publish quiz event", "quiz_id", event.QuizID, "type", event.Type, "error", err)
	}
}
