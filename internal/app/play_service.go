package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"torcida-quiz-service/internal/cpf"
	"torcida-quiz-service/internal/domain"
	"torcida-quiz-service/internal/joincode"
	"torcida-quiz-service/internal/logger"
)

// JoinResult tells the client where to go after joining.
type JoinResult struct {
	Quiz        domain.Quiz         `json:"quiz"`
	Participant *domain.Participant `json:"participant,omitempty"`
	Resumed     bool                `json:"resumed"`
	CanContinue bool                `json:"canContinue"`
	TimeExpired bool                `json:"timeExpired"`
}

type SubmitAnswerInput struct {
	QuestionID  string
	OptionID    string
	TimeTakenMs int64
}

type AnswerResult struct {
	IsCorrect     bool  `json:"is_correct"`
	PointsEarned  int   `json:"points_earned"`
	TimeTakenMs   int64 `json:"time_taken_ms"`
	TotalScore    int   `json:"total_score"`
	QuizCompleted bool  `json:"quiz_completed"`
}

// ParticipationView is one entry of a CPF's quiz history.
type ParticipationView struct {
	domain.Quiz
	ParticipantID string `json:"participant_id"`
	TotalScore    int    `json:"total_score"`
	Completed     bool   `json:"completed"`
	CanPlay       bool   `json:"can_play"`
	TimeExpired   bool   `json:"time_expired"`
}

// PlayService tracks participation: joining, answering and resuming.
type PlayService struct {
	quizzes      QuizRepository
	participants ParticipantRepository
	users        UserRepository
	sheets       SheetCache
	events       Broadcaster
	log          *logger.Logger
	now          func() time.Time
}

func NewPlayService(quizzes QuizRepository, participants ParticipantRepository, users UserRepository, sheets SheetCache, events Broadcaster, log *logger.Logger) *PlayService {
	return newPlayServiceWithClock(quizzes, participants, users, sheets, events, log, time.Now)
}

// newPlayServiceWithClock allows deterministic timestamps in tests.
func newPlayServiceWithClock(quizzes QuizRepository, participants ParticipantRepository, users UserRepository, sheets SheetCache, events Broadcaster, log *logger.Logger, now func() time.Time) *PlayService {
	return &PlayService{
		quizzes:      quizzes,
		participants: participants,
		users:        users,
		sheets:       sheets,
		events:       events,
		log:          log.With("service", "PlayService"),
		now:          now,
	}
}

// NormalizeIdentity validates an identity and returns it in canonical form.
func NormalizeIdentity(identity domain.Identity) (domain.Identity, error) {
	switch id := identity.(type) {
	case domain.AccountIdentity:
		if id.UserID == "" {
			return nil, domain.ErrUnauthorized
		}
		return id, nil
	case domain.AnonymousIdentity:
		if !cpf.Valid(id.CPF) {
			return nil, domain.ErrInvalidCPF
		}
		return domain.AnonymousIdentity{CPF: cpf.Clean(id.CPF), Name: strings.TrimSpace(id.Name)}, nil
	default:
		return nil, domain.ErrUnauthorized
	}
}

// Join enters the quiz behind code, resuming an unfinished participation.
func (s *PlayService) Join(ctx context.Context, code string, identity domain.Identity) (JoinResult, error) {
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return JoinResult{}, err
	}
	code = joincode.Normalize(code)
	if !joincode.Valid(code) {
		return JoinResult{}, domain.ErrQuizNotFound
	}
	quiz, err := s.quizzes.GetQuizByCode(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}
	if !quiz.Status.Joinable() {
		return JoinResult{}, domain.ErrQuizNotOpen
	}

	existing, err := s.participants.FindParticipant(ctx, quiz.ID, identity)
	found := err == nil
	if err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
		return JoinResult{}, err
	}
	if found && existing.Completed() {
		return JoinResult{}, domain.ErrAlreadyCompleted
	}
	if quiz.TimeExpired(s.now(), quiz.QuestionCount) {
		result := JoinResult{Quiz: quiz, TimeExpired: true}
		if found {
			result.Participant = &existing
		}
		return result, nil
	}
	if found {
		return JoinResult{Quiz: quiz, Participant: &existing, Resumed: true, CanContinue: true}, nil
	}

	name, err := s.displayName(ctx, identity)
	if err != nil {
		return JoinResult{}, err
	}
	p, err := s.participants.AddParticipant(ctx, domain.Participant{
		ID:          uuid.NewString(),
		QuizID:      quiz.ID,
		Identity:    identity,
		DisplayName: name,
		JoinedAt:    s.now().UTC(),
	})
	if err != nil {
		return JoinResult{}, err
	}
	quiz.ParticipantCount++
	s.log.Info("participant joined", "quiz_id", quiz.ID, "participant_id", p.ID)

	view := statusView(quiz, s.now())
	publish(ctx, s.events, s.log, domain.QuizEvent{Type: domain.EventStatus, QuizID: quiz.ID, Status: &view})
	return JoinResult{Quiz: quiz, Participant: &p, CanContinue: true}, nil
}

func (s *PlayService) displayName(ctx context.Context, identity domain.Identity) (string, error) {
	switch id := identity.(type) {
	case domain.AnonymousIdentity:
		if id.Name == "" {
			return "", fmt.Errorf("%w: participant_name is required", domain.ErrValidation)
		}
		return id.Name, nil
	case domain.AccountIdentity:
		user, err := s.users.GetUser(ctx, id.UserID)
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrUnauthorized
		}
		if err != nil {
			return "", err
		}
		return user.Name, nil
	}
	return "", domain.ErrUnauthorized
}

// SubmitAnswer scores and records one answer.
func (s *PlayService) SubmitAnswer(ctx context.Context, quizID string, identity domain.Identity, in SubmitAnswerInput) (AnswerResult, error) {
	if in.QuestionID == "" || in.OptionID == "" {
		return AnswerResult{}, fmt.Errorf("%w: question_id and option_id are required", domain.ErrValidation)
	}
	if in.TimeTakenMs < 0 {
		return AnswerResult{}, fmt.Errorf("%w: time_taken_ms must not be negative", domain.ErrValidation)
	}
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return AnswerResult{}, err
	}
	quiz, participant, sheet, err := s.playable(ctx, quizID, identity, domain.ErrNotParticipant)
	if err != nil {
		return AnswerResult{}, err
	}
	if participant.Completed() {
		return AnswerResult{}, domain.ErrAlreadyCompleted
	}
	now := s.now()
	if quiz.TimeExpired(now, sheet.Len()) {
		return AnswerResult{}, domain.ErrTimeExpired
	}
	question, ok := sheet.Question(in.QuestionID)
	if !ok {
		return AnswerResult{}, domain.ErrQuestionNotFound
	}
	option, ok := question.Option(in.OptionID)
	if !ok {
		return AnswerResult{}, domain.ErrOptionNotFound
	}

	points := domain.Score(option.IsCorrect, question.Points, in.TimeTakenMs, quiz.TimeLimit)
	outcome, err := s.participants.RecordAnswer(ctx, domain.Answer{
		ID:            uuid.NewString(),
		ParticipantID: participant.ID,
		QuestionID:    question.ID,
		OptionID:      option.ID,
		AnsweredAt:    now.UTC(),
		TimeTakenMs:   in.TimeTakenMs,
		IsCorrect:     option.IsCorrect,
		PointsEarned:  points,
	}, sheet.Len())
	if err != nil {
		return AnswerResult{}, err
	}

	if lb, err := rankedLeaderboard(ctx, s.participants, quizID, now); err == nil {
		publish(ctx, s.events, s.log, domain.QuizEvent{Type: domain.EventLeaderboard, QuizID: quizID, Leaderboard: &lb})
	} else {
		s.log.Warn("build leaderboard", "quiz_id", quizID, "error", err)
	}

	return AnswerResult{
		IsCorrect:     option.IsCorrect,
		PointsEarned:  points,
		TimeTakenMs:   in.TimeTakenMs,
		TotalScore:    outcome.TotalScore,
		QuizCompleted: outcome.Completed,
	}, nil
}

// Progress returns where a participant should resume. For a completed or
// expired participation the snapshot is returned together with the error.
func (s *PlayService) Progress(ctx context.Context, quizID string, identity domain.Identity) (domain.Progress, error) {
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return domain.Progress{}, err
	}
	quiz, participant, sheet, err := s.playable(ctx, quizID, identity, domain.ErrParticipantNotFound)
	if err != nil {
		return domain.Progress{}, err
	}
	answeredIDs, err := s.participants.AnsweredQuestionIDs(ctx, participant.ID)
	if err != nil {
		return domain.Progress{}, err
	}
	answered := make(map[string]bool, len(answeredIDs))
	for _, id := range answeredIDs {
		answered[id] = true
	}

	now := s.now()
	progress := domain.Progress{
		QuizID:              quiz.ID,
		ParticipantID:       participant.ID,
		NextQuestionIndex:   domain.NextQuestionIndex(sheet.Questions, answered),
		TotalQuestions:      sheet.Len(),
		AnsweredQuestionIDs: answeredIDs,
		TotalScore:          participant.TotalScore,
		RemainingSeconds:    quiz.RemainingSeconds(now, sheet.Len()),
		IsCompleted:         participant.Completed(),
	}
	if progress.IsCompleted {
		return progress, domain.ErrAlreadyCompleted
	}
	if quiz.TimeExpired(now, sheet.Len()) {
		return progress, domain.ErrTimeExpired
	}
	return progress, nil
}

// playable resolves the quiz, the caller's participant row and the question
// sheet, rejecting quizzes that are not being played.
func (s *PlayService) playable(ctx context.Context, quizID string, identity domain.Identity, missing error) (domain.Quiz, domain.Participant, domain.QuestionSheet, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, domain.Participant{}, domain.QuestionSheet{}, err
	}
	switch quiz.Status {
	case domain.StatusDraft, domain.StatusActive:
		return domain.Quiz{}, domain.Participant{}, domain.QuestionSheet{}, domain.ErrQuizNotStarted
	case domain.StatusFinished:
		return domain.Quiz{}, domain.Participant{}, domain.QuestionSheet{}, domain.ErrQuizFinished
	}
	participant, err := s.participants.FindParticipant(ctx, quiz.ID, identity)
	if errors.Is(err, domain.ErrParticipantNotFound) {
		return domain.Quiz{}, domain.Participant{}, domain.QuestionSheet{}, missing
	}
	if err != nil {
		return domain.Quiz{}, domain.Participant{}, domain.QuestionSheet{}, err
	}
	sheet, err := s.sheets.GetSheet(ctx, quiz.ID)
	if err != nil {
		return domain.Quiz{}, domain.Participant{}, domain.QuestionSheet{}, err
	}
	return quiz, participant, sheet, nil
}

// Participations lists every quiz a CPF took part in, newest first.
func (s *PlayService) Participations(ctx context.Context, rawCPF string) ([]ParticipationView, error) {
	if !cpf.Valid(rawCPF) {
		return nil, domain.ErrInvalidCPF
	}
	rows, err := s.participants.ParticipationsByCPF(ctx, cpf.Clean(rawCPF))
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]ParticipationView, 0, len(rows))
	for _, row := range rows {
		expired := row.Quiz.TimeExpired(now, row.Quiz.QuestionCount)
		completed := row.Participant.Completed()
		views = append(views, ParticipationView{
			Quiz:          row.Quiz,
			ParticipantID: row.Participant.ID,
			TotalScore:    row.Participant.TotalScore,
			Completed:     completed,
			CanPlay:       row.Quiz.Status == domain.StatusInProgress && !completed && !expired,
			TimeExpired:   expired,
		})
	}
	return views, nil
}
