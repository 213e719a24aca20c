// Package http exposes the quiz use cases over REST and websockets.
package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"torcida-quiz-service/internal/app"
	"torcida-quiz-service/internal/logger"
)

// Options tunes the HTTP surface.
type Options struct {
	ServiceName    string
	Tracing        bool
	AllowedOrigins []string
	// JoinURL is the link template encoded in QR codes; {code} is replaced.
	JoinURL     string
	Development bool
}

// Server holds the handlers and their dependencies.
type Server struct {
	auth     *app.AuthService
	quizzes  *app.QuizService
	play     *app.PlayService
	tokens   TokenParser
	log      *logger.Logger
	opts     Options
	upgrader websocket.Upgrader
}

func NewServer(authService *app.AuthService, quizzes *app.QuizService, play *app.PlayService, tokens TokenParser, log *logger.Logger, opts Options) *Server {
	return &Server{
		auth:    authService,
		quizzes: quizzes,
		play:    play,
		tokens:  tokens,
		log:     log.With("component", "http"),
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Requested-With"},
	}
	allowAll := len(s.opts.AllowedOrigins) == 0
	for _, origin := range s.opts.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.opts.AllowedOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), cors.New(s.corsConfig()))
	if s.opts.Tracing {
		r.Use(otelgin.Middleware(s.opts.ServiceName))
	}

	r.GET("/healthz", s.health)
	r.GET("/ws", s.ServeWS)

	authRoutes := r.Group("/auth")
	authRoutes.POST("/register", s.register)
	authRoutes.POST("/login", s.login)

	quizzes := r.Group("/quizzes")
	quizzes.POST("", s.requireAuth(), s.createQuiz)
	quizzes.GET("", s.requireAuth(), s.listQuizzes)
	quizzes.GET("/:id", s.optionalAuth(), s.getQuiz)
	quizzes.PUT("/:id", s.requireAuth(), s.updateQuiz)
	quizzes.DELETE("/:id", s.requireAuth(), s.deleteQuiz)
	quizzes.POST("/:id/activate", s.requireAuth(), s.activateQuiz)
	quizzes.POST("/:id/start", s.requireAuth(), s.startQuiz)
	quizzes.POST("/:id/finish", s.requireAuth(), s.finishQuiz)
	quizzes.POST("/:id/questions", s.requireAuth(), s.addQuestion)
	quizzes.DELETE("/:id/questions/:questionId", s.requireAuth(), s.deleteQuestion)

	// The first form takes the join code in the :id position.
	quizzes.POST("/:id/join", s.optionalAuth(), s.join)
	quizzes.POST("/join/:code", s.optionalAuth(), s.join)
	quizzes.POST("/:id/answers", s.optionalAuth(), s.submitAnswer)
	quizzes.GET("/:id/progress", s.optionalAuth(), s.progress)
	quizzes.GET("/:id/status", s.status)
	quizzes.GET("/:id/leaderboard", s.leaderboard)
	quizzes.GET("/:id/leaderboard/export", s.requireAuth(), s.exportLeaderboard)
	quizzes.GET("/:id/qrcode", s.requireAuth(), s.qrCode)

	r.GET("/participants/:cpf/quizzes", s.participations)
	return r
}

func (s *Server) health(c *gin.Context) {
	respondMessage(c, http.StatusOK, "ok")
}
