package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"torcida-quiz-service/internal/app"
	"torcida-quiz-service/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsAnswerPayload struct {
	QuestionID  string `json:"question_id"`
	OptionID    string `json:"option_id"`
	TimeTakenMs *int64 `json:"time_taken_ms"`
	CPF         string `json:"cpf"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// errorFrame renders err the way respondError would: infrastructure
// failures only carry their text in development.
func (s *Server) errorFrame(err error) outboundMessage[any] {
	msg := err.Error()
	if errorStatus(err) == http.StatusInternalServerError {
		s.log.Error("ws request failed", "error", err)
		if !s.opts.Development {
			msg = "internal server error"
		}
	}
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// eventMessage unwraps a quiz event into the frame clients render.
func eventMessage(event domain.QuizEvent) outboundMessage[any] {
	switch {
	case event.Status != nil:
		return outboundMessage[any]{Type: event.Type, Payload: event.Status}
	case event.Leaderboard != nil:
		return outboundMessage[any]{Type: event.Type, Payload: event.Leaderboard}
	default:
		return outboundMessage[any]{Type: event.Type, Payload: event}
	}
}

// ServeWS streams status and leaderboard changes of one quiz. Clients may
// also submit answers over the socket; identity comes from a ?token= query
// parameter or the cpf in the answer payload.
func (s *Server) ServeWS(c *gin.Context) {
	ctx := c.Request.Context()
	quizID := c.Query("quizId")
	if quizID == "" {
		s.respondError(c, domain.ErrValidation)
		return
	}
	accountID := ""
	if raw := c.Query("token"); raw != "" {
		claims, err := s.tokens.Parse(raw)
		if err != nil {
			s.respondError(c, err)
			return
		}
		accountID = claims.UserID
	}
	status, err := s.quizzes.Status(ctx, quizID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "quiz_id", quizID, "error", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := s.quizzes.Subscribe(ctx, quizID)
	if err != nil {
		_ = conn.WriteJSON(s.errorFrame(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// The writer goroutine owns every write to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				s.log.Debug("ws write failed", "quiz_id", quizID, "error", err)
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- eventMessage(event):
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push(outboundMessage[any]{Type: domain.EventStatus, Payload: status})
	if lb, err := s.quizzes.Leaderboard(ctx, quizID); err == nil {
		push(outboundMessage[any]{Type: domain.EventLeaderboard, Payload: lb})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "ping":
			push(outboundMessage[any]{Type: "pong", Payload: struct{}{}})
		case "answer":
			var payload wsAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			if payload.QuestionID == "" || payload.OptionID == "" || payload.TimeTakenMs == nil {
				push(s.errorFrame(fmt.Errorf("%w: question_id, option_id and time_taken_ms are required", domain.ErrValidation)))
				continue
			}
			var who domain.Identity
			switch {
			case accountID != "":
				who = domain.AccountIdentity{UserID: accountID}
			case payload.CPF != "":
				who = domain.AnonymousIdentity{CPF: payload.CPF}
			default:
				push(s.errorFrame(domain.ErrUnauthorized))
				continue
			}
			result, err := s.play.SubmitAnswer(ctx, quizID, who, app.SubmitAnswerInput{
				QuestionID:  payload.QuestionID,
				OptionID:    payload.OptionID,
				TimeTakenMs: *payload.TimeTakenMs,
			})
			if err != nil {
				push(s.errorFrame(err))
				continue
			}
			push(outboundMessage[any]{Type: "answerResult", Payload: result})
		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
