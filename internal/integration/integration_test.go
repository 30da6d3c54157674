package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"course-exam-service/internal/app"
	"course-exam-service/internal/domain"
	"course-exam-service/internal/infra/postgres"
	pgmigrations "course-exam-service/internal/infra/postgres/migrations"
	infraredis "course-exam-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"
)

const bank = `Q: What is 2 + 2?
A: 3
B: 4
C: 5
D: 22
ANSWER: B

Q: Which is a prime?
A: 4
B: 6
C: 7
D: 9
ANSWER: C

Q: Capital of France?
A: Paris
B: Rome
C: Madrid
D: Berlin
ANSWER: A
`

func TestExamEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	// migrating twice must be harmless
	migrateSchema(t, ctx, pgURL)
	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	ticks := make(chan time.Time)
	services := app.NewServices(
		store,
		infraredis.NewPoolCache(redisClient, store, 5*time.Minute),
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		nil,
		app.Options{
			BcryptCost: bcrypt.MinCost,
			Exam: app.ExamOptions{
				NewTicker: func(time.Duration) (<-chan time.Time, func()) { return ticks, func() {} },
			},
		},
	)

	for i := 0; i < 2; i++ {
		if _, err := app.Bootstrap(ctx, store, services.Auth, app.DefaultSeedAccounts()); err != nil {
			t.Fatalf("bootstrap %d: %v", i, err)
		}
	}
	if n, _ := store.CountUsersByRole(ctx, domain.RoleAdmin); n != 1 {
		t.Fatalf("expected a single seeded admin, got %d", n)
	}

	course, err := services.Catalog.AddCourse(ctx, app.NewCourse{Code: "CS101", Title: "Intro", TimeAllocation: 1, ExamLength: 2, PassingMark: 40})
	if err != nil {
		t.Fatalf("add course: %v", err)
	}
	if _, err := services.Catalog.AddCourse(ctx, app.NewCourse{Code: "CS101", Title: "Again", TimeAllocation: 1, ExamLength: 1}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate course code, got %v", err)
	}
	n, err := services.Importer.Import(ctx, course.ID, strings.NewReader(bank))
	if err != nil || n != 3 {
		t.Fatalf("expected 3 imported, got %d (%v)", n, err)
	}
	courses, err := services.Catalog.ListCourses(ctx)
	if err != nil || len(courses) != 1 || courses[0].TotalQuestions != 3 {
		t.Fatalf("expected pool size 3, got %+v (%v)", courses, err)
	}

	session, err := services.Exams.Login(ctx, "student1", "pass123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := services.Exams.SelectCourse(ctx, session.ID(), course.ID); err != nil {
		t.Fatalf("select course: %v", err)
	}
	exam, err := services.Exams.StartExam(ctx, session.ID())
	if err != nil {
		t.Fatalf("start exam: %v", err)
	}
	_, _ = exam.Select("A")

	for i := 0; i < 60; i++ {
		ticks <- time.Now()
	}
	select {
	case <-exam.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("expected timeout submission")
	}
	outcome, _ := exam.Outcome()
	if outcome.Err != nil || !outcome.Timeout || outcome.Result.ID == 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	analytics, err := services.Analytics.Analyze(ctx, session.User().ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analytics.ExamsTaken != 1 || analytics.Recent[0].CourseCode != "CS101" || analytics.Recent[0].TimeSpent != 60 {
		t.Fatalf("unexpected analytics %+v", analytics)
	}

	if err := services.Exams.Logout(ctx, session.ID()); err != nil {
		t.Fatalf("logout: %v", err)
	}
}

func TestLockoutPersists(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)
	auth := app.NewAuthService(store, bcrypt.MinCost, 0)

	if _, err := auth.AddUser(ctx, "alice", "pw", domain.RoleCandidate); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if _, err := auth.AddUser(ctx, "alice", "pw", domain.RoleCandidate); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate username, got %v", err)
	}
	for i := 0; i < 5; i++ {
		_, _ = auth.Authenticate(ctx, "alice", "wrong")
	}
	if _, err := auth.Authenticate(ctx, "alice", "pw"); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected locked, got %v", err)
	}
	if err := auth.UnlockUser(ctx, "alice"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := auth.Authenticate(ctx, "alice", "pw"); err != nil {
		t.Fatalf("expected login after unlock, got %v", err)
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

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "exam", "POSTGRES_PASSWORD": "exampass", "POSTGRES_DB": "examdb"},
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
	dsn := fmt.Sprintf("postgres://exam:exampass@%s:%s/examdb?sslmode=disable", host, port.Port())
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
