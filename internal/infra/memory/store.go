package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"torcida-quiz-service/internal/domain"
)

// Store keeps every record in process memory. It backs local runs without
// Postgres and the service tests.
type Store struct {
	mu sync.RWMutex

	users        map[string]domain.User
	userByEmail  map[string]string
	quizzes      map[string]domain.Quiz
	quizByCode   map[string]string
	questions    map[string][]domain.Question
	participants map[string]domain.Participant
	quizMembers  map[string][]string
	answers      map[string]map[string]domain.Answer
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		userByEmail:  make(map[string]string),
		quizzes:      make(map[string]domain.Quiz),
		quizByCode:   make(map[string]string),
		questions:    make(map[string][]domain.Question),
		participants: make(map[string]domain.Participant),
		quizMembers:  make(map[string][]string),
		answers:      make(map[string]map[string]domain.Answer),
	}
}

func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.userByEmail[user.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.users[user.ID] = user
	s.userByEmail[user.Email] = user.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userByEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizByCode[quiz.Code]; ok {
		return domain.ErrCodeTaken
	}
	quiz.ParticipantCount, quiz.QuestionCount = 0, 0
	s.quizzes[quiz.ID] = quiz
	s.quizByCode[quiz.Code] = quiz.ID
	return nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizLocked(quizID)
}

func (s *Store) GetQuizByCode(_ context.Context, code string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.quizByCode[code]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.quizLocked(id)
}

func (s *Store) ListQuizzesByCreator(_ context.Context, creatorID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Quiz{}
	for id, quiz := range s.quizzes {
		if quiz.CreatorID != creatorID {
			continue
		}
		full, _ := s.quizLocked(id)
		out = append(out, full)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	current.Title = quiz.Title
	current.Description = quiz.Description
	current.MaxParticipants = quiz.MaxParticipants
	current.TimeLimit = quiz.TimeLimit
	s.quizzes[quiz.ID] = current
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	for _, pid := range s.quizMembers[quizID] {
		delete(s.participants, pid)
		delete(s.answers, pid)
	}
	delete(s.quizMembers, quizID)
	delete(s.questions, quizID)
	delete(s.quizByCode, quiz.Code)
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) SetQuizStatus(_ context.Context, quizID string, from, to domain.QuizStatus, at time.Time) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if quiz.Status != from {
		return domain.Quiz{}, domain.ErrInvalidTransition
	}
	quiz.Status = to
	switch to {
	case domain.StatusInProgress:
		quiz.StartedAt = &at
	case domain.StatusFinished:
		quiz.FinishedAt = &at
	}
	s.quizzes[quizID] = quiz
	return s.quizLocked(quizID)
}

func (s *Store) quizLocked(quizID string) (domain.Quiz, error) {
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if creator, ok := s.users[quiz.CreatorID]; ok {
		quiz.CreatorName = creator.Name
	}
	quiz.ParticipantCount = len(s.quizMembers[quizID])
	quiz.QuestionCount = len(s.questions[quizID])
	return quiz, nil
}

func (s *Store) AddQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	existing := s.questions[question.QuizID]
	question.Order = 1
	if n := len(existing); n > 0 {
		question.Order = existing[n-1].Order + 1
	}
	question.Options = append([]domain.Option(nil), question.Options...)
	s.questions[question.QuizID] = append(existing, question)
	return question, nil
}

func (s *Store) DeleteQuestion(_ context.Context, quizID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.questions[quizID]
	for i, q := range existing {
		if q.ID != questionID {
			continue
		}
		kept := make([]domain.Question, 0, len(existing)-1)
		kept = append(kept, existing[:i]...)
		s.questions[quizID] = append(kept, existing[i+1:]...)
		return nil
	}
	return domain.ErrQuestionNotFound
}

func (s *Store) LoadSheet(_ context.Context, quizID string) (domain.QuestionSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.QuestionSheet{}, domain.ErrQuizNotFound
	}
	questions := make([]domain.Question, 0, len(s.questions[quizID]))
	for _, q := range s.questions[quizID] {
		q.Options = append([]domain.Option(nil), q.Options...)
		questions = append(questions, q)
	}
	return domain.QuestionSheet{QuizID: quizID, Questions: questions}, nil
}

func (s *Store) FindParticipant(_ context.Context, quizID string, identity domain.Identity) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.findLocked(quizID, identity)
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *Store) findLocked(quizID string, identity domain.Identity) (domain.Participant, bool) {
	for _, pid := range s.quizMembers[quizID] {
		p := s.participants[pid]
		if sameIdentity(p.Identity, identity) {
			return p, true
		}
	}
	return domain.Participant{}, false
}

func sameIdentity(a, b domain.Identity) bool {
	switch x := a.(type) {
	case domain.AccountIdentity:
		y, ok := b.(domain.AccountIdentity)
		return ok && x.UserID == y.UserID
	case domain.AnonymousIdentity:
		y, ok := b.(domain.AnonymousIdentity)
		return ok && x.CPF == y.CPF
	}
	return false
}

func (s *Store) AddParticipant(_ context.Context, p domain.Participant) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[p.QuizID]
	if !ok {
		return domain.Participant{}, domain.ErrQuizNotFound
	}
	if existing, ok := s.findLocked(p.QuizID, p.Identity); ok {
		return existing, nil
	}
	if len(s.quizMembers[p.QuizID]) >= quiz.MaxParticipants {
		return domain.Participant{}, domain.ErrQuizFull
	}
	p.TotalScore, p.TotalTimeMs, p.CompletedAt = 0, 0, nil
	s.participants[p.ID] = p
	s.quizMembers[p.QuizID] = append(s.quizMembers[p.QuizID], p.ID)
	return p, nil
}

func (s *Store) RecordAnswer(_ context.Context, answer domain.Answer, questionCount int) (domain.AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[answer.ParticipantID]
	if !ok {
		return domain.AnswerOutcome{}, domain.ErrParticipantNotFound
	}
	if p.Completed() {
		return domain.AnswerOutcome{}, domain.ErrAlreadyCompleted
	}
	given := s.answers[p.ID]
	if given == nil {
		given = make(map[string]domain.Answer)
		s.answers[p.ID] = given
	}
	if _, dup := given[answer.QuestionID]; dup {
		return domain.AnswerOutcome{}, domain.ErrAlreadyAnswered
	}
	given[answer.QuestionID] = answer

	p.TotalScore += answer.PointsEarned
	p.TotalTimeMs += answer.TimeTakenMs
	if len(given) >= questionCount {
		at := answer.AnsweredAt
		p.CompletedAt = &at
	}
	s.participants[p.ID] = p
	return domain.AnswerOutcome{
		TotalScore:  p.TotalScore,
		TotalTimeMs: p.TotalTimeMs,
		Answered:    len(given),
		Completed:   p.Completed(),
	}, nil
}

func (s *Store) AnsweredQuestionIDs(_ context.Context, participantID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	given := make([]domain.Answer, 0, len(s.answers[participantID]))
	for _, a := range s.answers[participantID] {
		given = append(given, a)
	}
	sort.Slice(given, func(i, j int) bool { return given[i].AnsweredAt.Before(given[j].AnsweredAt) })
	ids := make([]string, 0, len(given))
	for _, a := range given {
		ids = append(ids, a.QuestionID)
	}
	return ids, nil
}

func (s *Store) Leaderboard(_ context.Context, quizID string) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.questions[quizID])
	entries := make([]domain.LeaderboardEntry, 0, len(s.quizMembers[quizID]))
	for _, pid := range s.quizMembers[quizID] {
		p := s.participants[pid]
		entry := domain.LeaderboardEntry{
			ParticipantID:  p.ID,
			Name:           p.DisplayName,
			TotalScore:     p.TotalScore,
			TotalTimeMs:    p.TotalTimeMs,
			TotalAnswered:  len(s.answers[pid]),
			TotalQuestions: total,
			Completed:      p.Completed(),
		}
		if acct, ok := p.Identity.(domain.AccountIdentity); ok {
			entry.UserID = acct.UserID
		}
		for _, a := range s.answers[pid] {
			if a.IsCorrect {
				entry.CorrectAnswers++
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Store) ParticipationsByCPF(_ context.Context, cpf string) ([]domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Participation{}
	for _, p := range s.participants {
		anon, ok := p.Identity.(domain.AnonymousIdentity)
		if !ok || anon.CPF != cpf {
			continue
		}
		quiz, err := s.quizLocked(p.QuizID)
		if err != nil {
			continue
		}
		out = append(out, domain.Participation{Quiz: quiz, Participant: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Participant.JoinedAt.After(out[j].Participant.JoinedAt) })
	return out, nil
}
