package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"torcida-quiz-service/internal/domain"
)

func (s *Store) AddQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	if !validID(question.QuizID) {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	err := s.pool.BeginTxFunc(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		// lock the quiz so concurrent adds get distinct orders
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM quizzes WHERE id = $1 FOR UPDATE`, question.QuizID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO questions (id, quiz_id, question_text, question_order, points)
			VALUES ($1, $2, $3, (SELECT COALESCE(MAX(question_order), 0) + 1 FROM questions WHERE quiz_id = $2), $4)
			RETURNING question_order`,
			question.ID, question.QuizID, question.Text, question.Points).Scan(&question.Order)
		if err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, opt := range question.Options {
			batch.Queue(`
				INSERT INTO options (id, question_id, option_text, option_order, is_correct)
				VALUES ($1, $2, $3, $4, $5)`,
				opt.ID, question.ID, opt.Text, opt.Order, opt.IsCorrect)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if errors.Is(err, domain.ErrQuizNotFound) {
		return domain.Question{}, err
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("add question: %w", err)
	}
	return question, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	if !validID(quizID) || !validID(questionID) {
		return domain.ErrQuestionNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1 AND quiz_id = $2`, questionID, quizID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// LoadSheet reads the questions of a quiz with their options, both in order.
func (s *Store) LoadSheet(ctx context.Context, quizID string) (domain.QuestionSheet, error) {
	if !validID(quizID) {
		return domain.QuestionSheet{}, domain.ErrQuizNotFound
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1)`, quizID).Scan(&exists); err != nil {
		return domain.QuestionSheet{}, fmt.Errorf("load sheet: %w", err)
	}
	if !exists {
		return domain.QuestionSheet{}, domain.ErrQuizNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT qs.id, qs.question_text, qs.question_order, qs.points,
		       o.id, o.option_text, o.option_order, o.is_correct
		FROM questions qs
		JOIN options o ON o.question_id = qs.id
		WHERE qs.quiz_id = $1
		ORDER BY qs.question_order, o.option_order`, quizID)
	if err != nil {
		return domain.QuestionSheet{}, fmt.Errorf("load sheet: %w", err)
	}
	defer rows.Close()

	sheet := domain.QuestionSheet{QuizID: quizID, Questions: []domain.Question{}}
	for rows.Next() {
		var (
			q   domain.Question
			opt domain.Option
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Order, &q.Points, &opt.ID, &opt.Text, &opt.Order, &opt.IsCorrect); err != nil {
			return domain.QuestionSheet{}, fmt.Errorf("scan sheet: %w", err)
		}
		opt.QuestionID = q.ID
		n := len(sheet.Questions)
		if n == 0 || sheet.Questions[n-1].ID != q.ID {
			q.QuizID = quizID
			sheet.Questions = append(sheet.Questions, q)
			n++
		}
		sheet.Questions[n-1].Options = append(sheet.Questions[n-1].Options, opt)
	}
	return sheet, rows.Err()
}
