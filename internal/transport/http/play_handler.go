package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"torcida-quiz-service/internal/app"
	"torcida-quiz-service/internal/domain"
)

type joinRequest struct {
	CPF             string `json:"cpf"`
	ParticipantName string `json:"participant_name"`
}

type answerRequest struct {
	QuestionID  string `json:"question_id" binding:"required"`
	OptionID    string `json:"option_id" binding:"required"`
	TimeTakenMs *int64 `json:"time_taken_ms" binding:"required"`
	CPF         string `json:"cpf"`
}

func (s *Server) join(c *gin.Context) {
	var req joinRequest
	if !s.bindOptionalJSON(c, &req) {
		return
	}
	who, err := identity(c, req.CPF, req.ParticipantName)
	if err != nil {
		s.respondError(c, err)
		return
	}
	code := c.Param("code")
	if code == "" {
		code = c.Param("id")
	}
	result, err := s.play.Join(c.Request.Context(), code, who)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (s *Server) submitAnswer(c *gin.Context) {
	var req answerRequest
	if !s.bindJSON(c, &req) {
		return
	}
	who, err := identity(c, req.CPF, "")
	if err != nil {
		s.respondError(c, err)
		return
	}
	result, err := s.play.SubmitAnswer(c.Request.Context(), c.Param("id"), who, app.SubmitAnswerInput{
		QuestionID:  req.QuestionID,
		OptionID:    req.OptionID,
		TimeTakenMs: *req.TimeTakenMs,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (s *Server) progress(c *gin.Context) {
	who, err := identity(c, c.Query("cpf"), "")
	if err != nil {
		s.respondError(c, err)
		return
	}
	progress, err := s.play.Progress(c.Request.Context(), c.Param("id"), who)
	switch {
	case err == nil:
		respond(c, http.StatusOK, progress)
	case errors.Is(err, domain.ErrAlreadyCompleted), errors.Is(err, domain.ErrTimeExpired):
		s.respondErrorWithData(c, err, progress)
	default:
		s.respondError(c, err)
	}
}

func (s *Server) participations(c *gin.Context) {
	views, err := s.play.Participations(c.Request.Context(), c.Param("cpf"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if views == nil {
		views = []app.ParticipationView{}
	}
	respond(c, http.StatusOK, views)
}
