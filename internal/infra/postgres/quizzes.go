package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"torcida-quiz-service/internal/domain"
)

const quizColumns = `
	q.id, q.creator_id, COALESCE(u.name, ''), q.title, q.description, q.code,
	q.max_participants, q.time_limit, q.status, q.created_at, q.started_at, q.finished_at,
	(SELECT COUNT(*) FROM quiz_participants qp WHERE qp.quiz_id = q.id),
	(SELECT COUNT(*) FROM questions qs WHERE qs.quiz_id = q.id)`

const quizSelect = `SELECT ` + quizColumns + `
	FROM quizzes q
	LEFT JOIN users u ON u.id = q.creator_id`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanQuiz(row scanner, extra ...interface{}) (domain.Quiz, error) {
	var (
		q      domain.Quiz
		status string
	)
	dest := []interface{}{
		&q.ID, &q.CreatorID, &q.CreatorName, &q.Title, &q.Description, &q.Code,
		&q.MaxParticipants, &q.TimeLimit, &status, &q.CreatedAt, &q.StartedAt, &q.FinishedAt,
		&q.ParticipantCount, &q.QuestionCount,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("scan quiz: %w", err)
	}
	q.Status = domain.QuizStatus(status)
	return q, nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, creator_id, title, description, code, max_participants, time_limit, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		quiz.ID, quiz.CreatorID, quiz.Title, quiz.Description, quiz.Code,
		quiz.MaxParticipants, quiz.TimeLimit, string(quiz.Status), quiz.CreatedAt)
	if isUniqueViolation(err, "quizzes_code_key") {
		return domain.ErrCodeTaken
	}
	if err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if !validID(quizID) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return scanQuiz(s.pool.QueryRow(ctx, quizSelect+` WHERE q.id = $1`, quizID))
}

func (s *Store) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	return scanQuiz(s.pool.QueryRow(ctx, quizSelect+` WHERE q.code = $1`, code))
}

func (s *Store) ListQuizzesByCreator(ctx context.Context, creatorID string) ([]domain.Quiz, error) {
	out := []domain.Quiz{}
	if !validID(creatorID) {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, quizSelect+` WHERE q.creator_id = $1 ORDER BY q.created_at DESC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	if !validID(quiz.ID) {
		return domain.ErrQuizNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE quizzes SET title = $2, description = $3, max_participants = $4, time_limit = $5
		WHERE id = $1`,
		quiz.ID, quiz.Title, quiz.Description, quiz.MaxParticipants, quiz.TimeLimit)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	if !validID(quizID) {
		return domain.ErrQuizNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) SetQuizStatus(ctx context.Context, quizID string, from, to domain.QuizStatus, at time.Time) (domain.Quiz, error) {
	if !validID(quizID) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE quizzes SET
			status = $3,
			started_at = CASE WHEN $3 = 'in_progress' THEN $4::timestamptz ELSE started_at END,
			finished_at = CASE WHEN $3 = 'finished' THEN $4::timestamptz ELSE finished_at END
		WHERE id = $1 AND status = $2`,
		quizID, string(from), string(to), at)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("set quiz status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetQuiz(ctx, quizID); err != nil {
			return domain.Quiz{}, err
		}
		return domain.Quiz{}, domain.ErrInvalidTransition
	}
	return s.GetQuiz(ctx, quizID)
}
