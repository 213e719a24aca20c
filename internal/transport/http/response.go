package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"torcida-quiz-service/internal/domain"
)

// envelope wraps every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: true, Message: message})
}

// respondError maps err to a status code. Unknown errors become a 500 whose
// text is only exposed in development.
func (s *Server) respondError(c *gin.Context, err error) {
	s.respondErrorWithData(c, err, nil)
}

func (s *Server) respondErrorWithData(c *gin.Context, err error, data any) {
	status := errorStatus(err)
	body := envelope{Success: false, Data: data, Message: err.Error()}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
		body.Message = "internal server error"
		if s.opts.Development {
			body.Error = err.Error()
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidCPF),
		errors.Is(err, domain.ErrQuizNotOpen),
		errors.Is(err, domain.ErrQuizFull),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrQuizLocked),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrQuizNotStarted),
		errors.Is(err, domain.ErrNoQuestions):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotParticipant),
		errors.Is(err, domain.ErrAlreadyCompleted):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTimeExpired),
		errors.Is(err, domain.ErrQuizFinished):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
