package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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

	"hw-quiz-service/internal/app"
	"hw-quiz-service/internal/domain"
	"hw-quiz-service/internal/gateway"
	pgcontent "hw-quiz-service/internal/infra/postgres"
	pgmigrations "hw-quiz-service/internal/infra/postgres/migrations"
	infraredis "hw-quiz-service/internal/infra/redis"
)

func TestAttemptFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuizFile(t, ctx, pgURL, "math.json", sampleQuizFile())

	backend := startFakeBackend()
	defer backend.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	client := gateway.New(backend.URL, 5*time.Second)
	content := infraredis.NewContentRepository(redisClient, pgcontent.NewContentLoader(pool), 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)

	auth := app.NewAuthService(client, sessions)
	attempts := app.NewAttemptManager(content, client)

	token, sess, err := auth.Login(ctx, "browser-1", "alice", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Account != "alice" || len(sess.Quizzes) != 1 {
		t.Fatalf("unexpected session: %+v", sess)
	}

	selected, err := auth.SelectQuiz(ctx, token, "quiz-1")
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	attempt := attempts.Open(token, sess.Account, "integration-test", selected)
	events, cancel := attempt.Subscribe()
	defer cancel()

	if err := attempt.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	attempt.SelectChoice(1)
	attempt.Next()
	attempt.SelectBlank(0, 0)
	if err := attempt.Submit(false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind != "result" {
				continue
			}
			if ev.Result.Status != app.StatusAccepted {
				t.Fatalf("unexpected upload status: %q", ev.Result.Status)
			}
			if ev.Result.Score.Correct != 2 || ev.Result.Score.Total != 2 {
				t.Fatalf("unexpected server score: %+v", ev.Result.Score)
			}
			return
		case <-deadline:
			t.Fatal("no result event arrived")
		}
	}
}

// startFakeBackend emulates the scoring backend: auth and attempt
// submission, JSON in and out.
func startFakeBackend() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["action"] == "auth" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true, "account": body["account"], "display_name": "Alice", "role": "student",
				"quizzes": []map[string]any{
					{"id": "quiz-1", "name": "Math", "file": "math.json", "version": 1},
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "score": 2, "max_score": 2})
	}))
}

func sampleQuizFile() []byte {
	return []byte(`[
		{"question_type":"choice","question_content":"2+2?","options":["3","4"],"answer":"4"},
		{"question_type":"cloze","question_content":"_ of water","cloze_template":"_ of water","cloze_options":[["glass","brick"]],"cloze_answer_indices":[0]}
	]`)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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

func seedQuizFile(t *testing.T, ctx context.Context, dsn, file string, data []byte) {
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

	if _, err := db.ExecContext(ctx,
		`INSERT INTO quiz_files (file, data) VALUES (?, ?::jsonb) ON CONFLICT (file) DO UPDATE SET data=EXCLUDED.data`,
		file, string(data)); err != nil {
		t.Fatalf("insert quiz file: %v", err)
	}

	// Sanity: the seed must parse as quiz content.
	if _, err := domain.ParseQuestions(data); err != nil {
		t.Fatalf("seed content invalid: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
