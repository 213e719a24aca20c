package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"torcida-quiz-service/internal/app"
	"torcida-quiz-service/internal/auth"
	"torcida-quiz-service/internal/domain"
	"torcida-quiz-service/internal/infra/postgres"
	pgmigrations "torcida-quiz-service/internal/infra/postgres/migrations"
	infraredis "torcida-quiz-service/internal/infra/redis"
	"torcida-quiz-service/internal/logger"
)

const (
	cpfAna   = "529.982.247-25"
	cpfBruno = "111.444.777-35"
)

type services struct {
	store   *postgres.Store
	redis   *goredis.Client
	auth    *app.AuthService
	quizzes *app.QuizService
	play    *app.PlayService
}

func setup(t *testing.T, ctx context.Context) *services {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	store := postgres.NewStore(pool)
	sheets := infraredis.NewSheetCache(redisClient, store, 5*time.Minute)
	events := infraredis.NewBroadcaster(redisClient)
	log := logger.Nop()
	tokens := auth.NewTokenIssuer("integration-secret-key", time.Hour)

	return &services{
		store:   store,
		redis:   redisClient,
		auth:    app.NewAuthService(store, tokens, log),
		quizzes: app.NewQuizService(store, store, store, sheets, events, app.Defaults{}, log),
		play:    app.NewPlayService(store, store, store, sheets, events, log),
	}
}

func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := setup(t, ctx)

	org, err := s.auth.Register(ctx, app.RegisterInput{Email: "org@torcida.app", Password: "segredo123", Name: "Organizadora"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.auth.Register(ctx, app.RegisterInput{Email: "ORG@torcida.app", Password: "segredo123", Name: "Dup"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	player, err := s.auth.Register(ctx, app.RegisterInput{Email: "jogador@torcida.app", Password: "segredo123", Name: "Caio"})
	if err != nil {
		t.Fatalf("register player: %v", err)
	}

	quiz, err := s.quizzes.Create(ctx, org.User.ID, app.CreateQuizInput{Title: "Final", TimeLimit: 20})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	var questions []domain.Question
	for i := 1; i <= 2; i++ {
		q, err := s.quizzes.AddQuestion(ctx, quiz.ID, org.User.ID, app.AddQuestionInput{
			Text: fmt.Sprintf("Pergunta %d", i),
			Options: []app.OptionInput{
				{Text: "Certa", IsCorrect: true},
				{Text: "Errada"},
			},
		})
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
		if q.Order != i {
			t.Fatalf("expected order %d, got %d", i, q.Order)
		}
		questions = append(questions, q)
	}

	// Warm the cache, then make sure a new question invalidates it.
	detail, err := s.quizzes.Get(ctx, quiz.ID, org.User.ID)
	if err != nil || len(detail.Questions) != 2 {
		t.Fatalf("get quiz: %v (%d questions)", err, len(detail.Questions))
	}
	if n, _ := s.redis.Exists(ctx, "quiz:"+quiz.ID+":sheet").Result(); n != 1 {
		t.Fatalf("expected cached question sheet")
	}

	if _, err := s.quizzes.Activate(ctx, quiz.ID, org.User.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := s.quizzes.Start(ctx, quiz.ID, org.User.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	updates, cancel, err := s.quizzes.Subscribe(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if _, err := s.play.Join(ctx, quiz.Code, domain.AnonymousIdentity{CPF: cpfAna, Name: "Ana"}); err != nil {
		t.Fatalf("join ana: %v", err)
	}
	if _, err := s.play.Join(ctx, strings.ToLower(quiz.Code), domain.AccountIdentity{UserID: player.User.ID}); err != nil {
		t.Fatalf("join caio: %v", err)
	}
	again, err := s.play.Join(ctx, quiz.Code, domain.AnonymousIdentity{CPF: "52998224725", Name: "Ana"})
	if err != nil || !again.Resumed {
		t.Fatalf("expected resumed join, got %+v err=%v", again, err)
	}

	ana := domain.AnonymousIdentity{CPF: cpfAna}
	for _, q := range questions {
		if _, err := s.play.SubmitAnswer(ctx, quiz.ID, ana, app.SubmitAnswerInput{QuestionID: q.ID, OptionID: q.Options[0].ID, TimeTakenMs: 2000}); err != nil {
			t.Fatalf("ana answer: %v", err)
		}
	}
	caio := domain.AccountIdentity{UserID: player.User.ID}
	res, err := s.play.SubmitAnswer(ctx, quiz.ID, caio, app.SubmitAnswerInput{QuestionID: questions[0].ID, OptionID: questions[0].Options[1].ID, TimeTakenMs: 1000})
	if err != nil || res.IsCorrect || res.PointsEarned != 0 {
		t.Fatalf("expected wrong answer, got %+v err=%v", res, err)
	}
	if _, err := s.play.SubmitAnswer(ctx, quiz.ID, caio, app.SubmitAnswerInput{QuestionID: questions[0].ID, OptionID: questions[0].Options[0].ID}); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}

	lb, err := s.quizzes.Leaderboard(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].Name != "Ana" || !lb.Entries[0].Completed {
		t.Fatalf("expected ana leading and complete, got %+v", lb.Entries)
	}
	// 100 points at 2s of 20s is 95 per question.
	if lb.Entries[0].TotalScore != 190 || lb.Entries[0].TotalTimeMs != 4000 || lb.Entries[0].CorrectAnswers != 2 {
		t.Fatalf("unexpected ana entry %+v", lb.Entries[0])
	}
	if lb.Entries[1].UserID != player.User.ID || lb.Entries[1].TotalAnswered != 1 {
		t.Fatalf("unexpected caio entry %+v", lb.Entries[1])
	}

	progress, err := s.play.Progress(ctx, quiz.ID, caio)
	if err != nil || progress.NextQuestionIndex != 1 {
		t.Fatalf("expected caio at question 2, got %+v err=%v", progress, err)
	}

	views, err := s.play.Participations(ctx, cpfAna)
	if err != nil || len(views) != 1 || !views[0].Completed || views[0].CanPlay {
		t.Fatalf("unexpected participations %+v err=%v", views, err)
	}

	waitForEvent(t, updates, domain.EventLeaderboard)

	if _, err := s.quizzes.Finish(ctx, quiz.ID, org.User.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := s.play.SubmitAnswer(ctx, quiz.ID, caio, app.SubmitAnswerInput{QuestionID: questions[1].ID, OptionID: questions[1].Options[0].ID}); !errors.Is(err, domain.ErrQuizFinished) {
		t.Fatalf("expected ErrQuizFinished, got %v", err)
	}

	if err := s.quizzes.Delete(ctx, quiz.ID, org.User.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.store.GetQuiz(ctx, quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected deleted quiz, got %v", err)
	}
}

func TestCapacityIsEnforcedUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	s := setup(t, ctx)

	org, err := s.auth.Register(ctx, app.RegisterInput{Email: "org@torcida.app", Password: "segredo123", Name: "Organizadora"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	quiz, err := s.quizzes.Create(ctx, org.User.ID, app.CreateQuizInput{Title: "Lotado", MaxParticipants: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.quizzes.Activate(ctx, quiz.ID, org.User.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	errs := make(chan error, 2)
	for _, who := range []domain.AnonymousIdentity{{CPF: cpfAna, Name: "Ana"}, {CPF: cpfBruno, Name: "Bruno"}} {
		go func(id domain.AnonymousIdentity) {
			_, err := s.play.Join(ctx, quiz.Code, id)
			errs <- err
		}(who)
	}
	var full, ok int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrQuizFull):
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if ok != 1 || full != 1 {
		t.Fatalf("expected one join and one ErrQuizFull, got ok=%d full=%d", ok, full)
	}
}

func waitForEvent(t *testing.T, updates <-chan domain.QuizEvent, typ string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-updates:
			if !ok {
				t.Fatalf("event stream closed")
			}
			if ev.Type == typ {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", typ)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
