package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"torcida-quiz-service/internal/domain"
)

const participantColumns = `p.id, p.quiz_id, p.user_id, p.cpf, p.participant_name, p.joined_at, p.total_score, p.total_time_ms, p.completed_at`

type participantRow struct {
	p      domain.Participant
	userID *string
	cpf    *string
}

func (r *participantRow) dest() []interface{} {
	return []interface{}{&r.p.ID, &r.p.QuizID, &r.userID, &r.cpf, &r.p.DisplayName, &r.p.JoinedAt, &r.p.TotalScore, &r.p.TotalTimeMs, &r.p.CompletedAt}
}

func (r *participantRow) participant() domain.Participant {
	p := r.p
	switch {
	case r.userID != nil:
		p.Identity = domain.AccountIdentity{UserID: *r.userID}
	case r.cpf != nil:
		p.Identity = domain.AnonymousIdentity{CPF: *r.cpf, Name: p.DisplayName}
	}
	return p
}

// identityColumns maps an identity onto the user_id / cpf column pair.
func identityColumns(identity domain.Identity) (userID, cpf *string, err error) {
	switch id := identity.(type) {
	case domain.AccountIdentity:
		if !validID(id.UserID) {
			return nil, nil, domain.ErrParticipantNotFound
		}
		return &id.UserID, nil, nil
	case domain.AnonymousIdentity:
		return nil, &id.CPF, nil
	}
	return nil, nil, domain.ErrParticipantNotFound
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func findParticipant(ctx context.Context, q querier, quizID string, identity domain.Identity) (domain.Participant, error) {
	userID, cpf, err := identityColumns(identity)
	if err != nil {
		return domain.Participant{}, err
	}
	var row participantRow
	err = q.QueryRow(ctx, `
		SELECT `+participantColumns+`
		FROM quiz_participants p
		WHERE p.quiz_id = $1 AND (p.user_id = $2 OR p.cpf = $3)`,
		quizID, userID, cpf).Scan(row.dest()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("find participant: %w", err)
	}
	return row.participant(), nil
}

func (s *Store) FindParticipant(ctx context.Context, quizID string, identity domain.Identity) (domain.Participant, error) {
	if !validID(quizID) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return findParticipant(ctx, s.pool, quizID, identity)
}

// AddParticipant locks the quiz row so the capacity check and the insert see
// the same participant count.
func (s *Store) AddParticipant(ctx context.Context, p domain.Participant) (domain.Participant, error) {
	if !validID(p.QuizID) {
		return domain.Participant{}, domain.ErrQuizNotFound
	}
	userID, cpf, err := identityColumns(p.Identity)
	if err != nil {
		return domain.Participant{}, domain.ErrUnauthorized
	}
	var stored domain.Participant
	err = s.pool.BeginTxFunc(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var capacity int
		err := tx.QueryRow(ctx, `SELECT max_participants FROM quizzes WHERE id = $1 FOR UPDATE`, p.QuizID).Scan(&capacity)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return err
		}
		existing, err := findParticipant(ctx, tx, p.QuizID, p.Identity)
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, domain.ErrParticipantNotFound) {
			return err
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM quiz_participants WHERE quiz_id = $1`, p.QuizID).Scan(&count); err != nil {
			return err
		}
		if count >= capacity {
			return domain.ErrQuizFull
		}
		var row participantRow
		err = tx.QueryRow(ctx, `
			INSERT INTO quiz_participants AS p (id, quiz_id, user_id, cpf, participant_name, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+participantColumns,
			p.ID, p.QuizID, userID, cpf, p.DisplayName, p.JoinedAt).Scan(row.dest()...)
		if err != nil {
			return err
		}
		stored = row.participant()
		return nil
	})
	if isUniqueViolation(err, "") {
		// lost a race with the same identity joining from another request
		return s.FindParticipant(ctx, p.QuizID, p.Identity)
	}
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) || errors.Is(err, domain.ErrQuizFull) {
			return domain.Participant{}, err
		}
		return domain.Participant{}, fmt.Errorf("add participant: %w", err)
	}
	return stored, nil
}

// RecordAnswer inserts the answer and folds it into the participant totals in
// one transaction. The participant row lock serialises answers of the same
// participant; the (participant_id, question_id) constraint rejects duplicates.
func (s *Store) RecordAnswer(ctx context.Context, answer domain.Answer, questionCount int) (domain.AnswerOutcome, error) {
	if !validID(answer.ParticipantID) {
		return domain.AnswerOutcome{}, domain.ErrParticipantNotFound
	}
	var out domain.AnswerOutcome
	err := s.pool.BeginTxFunc(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var completed bool
		err := tx.QueryRow(ctx, `
			SELECT completed_at IS NOT NULL FROM quiz_participants WHERE id = $1 FOR UPDATE`,
			answer.ParticipantID).Scan(&completed)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrParticipantNotFound
		}
		if err != nil {
			return err
		}
		if completed {
			return domain.ErrAlreadyCompleted
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO participant_answers (id, participant_id, question_id, option_id, answered_at, time_taken_ms, is_correct, points_earned)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (participant_id, question_id) DO NOTHING`,
			answer.ID, answer.ParticipantID, answer.QuestionID, answer.OptionID,
			answer.AnsweredAt, answer.TimeTakenMs, answer.IsCorrect, answer.PointsEarned)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAlreadyAnswered
		}

		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM participant_answers WHERE participant_id = $1`, answer.ParticipantID).Scan(&out.Answered); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			UPDATE quiz_participants SET
				total_score = total_score + $2,
				total_time_ms = total_time_ms + $3,
				completed_at = CASE WHEN $4::boolean AND completed_at IS NULL THEN $5::timestamptz ELSE completed_at END
			WHERE id = $1
			RETURNING total_score, total_time_ms, completed_at IS NOT NULL`,
			answer.ParticipantID, answer.PointsEarned, answer.TimeTakenMs, out.Answered >= questionCount, answer.AnsweredAt,
		).Scan(&out.TotalScore, &out.TotalTimeMs, &out.Completed)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrParticipantNotFound), errors.Is(err, domain.ErrAlreadyCompleted), errors.Is(err, domain.ErrAlreadyAnswered):
			return domain.AnswerOutcome{}, err
		}
		return domain.AnswerOutcome{}, fmt.Errorf("record answer: %w", err)
	}
	return out, nil
}

func (s *Store) AnsweredQuestionIDs(ctx context.Context, participantID string) ([]string, error) {
	ids := []string{}
	if !validID(participantID) {
		return ids, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT question_id FROM participant_answers WHERE participant_id = $1 ORDER BY answered_at`, participantID)
	if err != nil {
		return nil, fmt.Errorf("answered questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Leaderboard(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error) {
	entries := []domain.LeaderboardEntry{}
	if !validID(quizID) {
		return entries, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.user_id, p.participant_name, p.total_score, p.total_time_ms, p.completed_at IS NOT NULL,
		       COUNT(a.id) FILTER (WHERE a.is_correct),
		       COUNT(a.id),
		       (SELECT COUNT(*) FROM questions qs WHERE qs.quiz_id = p.quiz_id)
		FROM quiz_participants p
		LEFT JOIN participant_answers a ON a.participant_id = p.id
		WHERE p.quiz_id = $1
		GROUP BY p.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e      domain.LeaderboardEntry
			userID *string
		)
		if err := rows.Scan(&e.ParticipantID, &userID, &e.Name, &e.TotalScore, &e.TotalTimeMs, &e.Completed,
			&e.CorrectAnswers, &e.TotalAnswered, &e.TotalQuestions); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		if userID != nil {
			e.UserID = *userID
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) ParticipationsByCPF(ctx context.Context, cpf string) ([]domain.Participation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+quizColumns+`, `+participantColumns+`
		FROM quiz_participants p
		JOIN quizzes q ON q.id = p.quiz_id
		LEFT JOIN users u ON u.id = q.creator_id
		WHERE p.cpf = $1
		ORDER BY p.joined_at DESC`, cpf)
	if err != nil {
		return nil, fmt.Errorf("participations: %w", err)
	}
	defer rows.Close()

	out := []domain.Participation{}
	for rows.Next() {
		var row participantRow
		quiz, err := scanQuiz(rows, row.dest()...)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Participation{Quiz: quiz, Participant: row.participant()})
	}
	return out, rows.Err()
}
