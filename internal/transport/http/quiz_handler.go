package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"torcida-quiz-service/internal/app"
	"torcida-quiz-service/internal/domain"
	"torcida-quiz-service/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type createQuizRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	MaxParticipants int    `json:"max_participants"`
	TimeLimit       int    `json:"time_limit"`
}

type updateQuizRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	MaxParticipants *int    `json:"max_participants"`
	TimeLimit       *int    `json:"time_limit"`
}

type optionRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type addQuestionRequest struct {
	QuestionText string          `json:"question_text" binding:"required"`
	Points       int             `json:"points"`
	Options      []optionRequest `json:"options" binding:"required"`
}

func (s *Server) createQuiz(c *gin.Context) {
	var req createQuizRequest
	if !s.bindJSON(c, &req) {
		return
	}
	quiz, err := s.quizzes.Create(c.Request.Context(), userID(c), app.CreateQuizInput{
		Title:           req.Title,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
		TimeLimit:       req.TimeLimit,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, quiz)
}

func (s *Server) listQuizzes(c *gin.Context) {
	quizzes, err := s.quizzes.List(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	respond(c, http.StatusOK, quizzes)
}

func (s *Server) getQuiz(c *gin.Context) {
	detail, err := s.quizzes.Get(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, detail)
}

func (s *Server) updateQuiz(c *gin.Context) {
	var req updateQuizRequest
	if !s.bindJSON(c, &req) {
		return
	}
	quiz, err := s.quizzes.Update(c.Request.Context(), c.Param("id"), userID(c), app.UpdateQuizInput{
		Title:           req.Title,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
		TimeLimit:       req.TimeLimit,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, quiz)
}

func (s *Server) deleteQuiz(c *gin.Context) {
	if err := s.quizzes.Delete(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "quiz deleted")
}

func (s *Server) activateQuiz(c *gin.Context) { s.lifecycle(c, s.quizzes.Activate) }
func (s *Server) startQuiz(c *gin.Context)    { s.lifecycle(c, s.quizzes.Start) }
func (s *Server) finishQuiz(c *gin.Context)   { s.lifecycle(c, s.quizzes.Finish) }

func (s *Server) lifecycle(c *gin.Context, move func(ctx context.Context, quizID, userID string) (domain.Quiz, error)) {
	quiz, err := move(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, quiz)
}

func (s *Server) addQuestion(c *gin.Context) {
	var req addQuestionRequest
	if !s.bindJSON(c, &req) {
		return
	}
	in := app.AddQuestionInput{Text: req.QuestionText, Points: req.Points}
	for _, opt := range req.Options {
		in.Options = append(in.Options, app.OptionInput{Text: opt.Text, IsCorrect: opt.IsCorrect})
	}
	question, err := s.quizzes.AddQuestion(c.Request.Context(), c.Param("id"), userID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, question)
}

func (s *Server) deleteQuestion(c *gin.Context) {
	err := s.quizzes.DeleteQuestion(c.Request.Context(), c.Param("id"), c.Param("questionId"), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "question deleted")
}

func (s *Server) status(c *gin.Context) {
	view, err := s.quizzes.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (s *Server) leaderboard(c *gin.Context) {
	lb, err := s.quizzes.Leaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, lb)
}

func (s *Server) exportLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	quiz, err := s.quizzes.Owned(ctx, c.Param("id"), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	lb, err := s.quizzes.Leaderboard(ctx, quiz.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	raw, err := report.LeaderboardWorkbook(quiz, lb)
	if err != nil {
		s.respondError(c, fmt.Errorf("render leaderboard workbook: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="ranking-%s.xlsx"`, quiz.Code))
	c.Data(http.StatusOK, xlsxContentType, raw)
}

func (s *Server) qrCode(c *gin.Context) {
	quiz, err := s.quizzes.Owned(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	png, err := report.JoinQRCode(s.opts.JoinURL, quiz.Code)
	if err != nil {
		s.respondError(c, fmt.Errorf("render join qr code: %w", err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
