package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/infra/memory"
)

type fakeSource struct {
	questions []domain.Question
	err       error
	calls     int
	lastID    int
	lastCount int
}

func (f *fakeSource) Fetch(_ context.Context, categoryID, amount int) ([]domain.Question, error) {
	f.calls++
	f.lastID = categoryID
	f.lastCount = amount
	return f.questions, f.err
}

func sampleQuestions() []domain.Question {
	qs := make([]domain.Question, 5)
	for i := range qs {
		qs[i] = domain.Question{
			Prompt:  "sample",
			Options: []string{"w", "x", "y", "z"},
			Correct: "x",
		}
	}
	return qs
}

func newTestService(source app.QuestionSource) (*app.QuizService, *memory.ScoreStore, *memory.SessionRegistry) {
	store := memory.NewScoreStore(app.PlainVerifier{})
	registry := memory.NewSessionRegistry()
	fixed := time.Date(2025, 3, 14, 15, 9, 26, 0, time.Local)
	service := app.NewQuizServiceWithClock(store, source, registry, 20, app.AfterFunc, func() time.Time { return fixed })
	return service, store, registry
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(&fakeSource{})

	if err := service.Register(ctx, "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := service.Register(ctx, "alice", "other"); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	// Duplicate registration must not alter the stored account.
	if _, err := service.Login(ctx, "alice", "secret"); err != nil {
		t.Fatalf("login with original password: %v", err)
	}
	if _, err := service.Login(ctx, "alice", "other"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := service.Login(ctx, "nobody", "secret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(&fakeSource{})

	if err := service.Register(ctx, "", "secret"); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if err := service.Register(ctx, "alice", ""); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestStartQuizFetchFailureNeverCreatesSession(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{err: errors.New("connection refused")}
	service, _, registry := newTestService(source)

	if _, err := service.StartQuiz(ctx, "alice", "Science"); err == nil {
		t.Fatalf("expected fetch error")
	}
	if _, ok := registry.Get("alice"); ok {
		t.Fatalf("failed fetch must not leave a session behind")
	}
}

func TestStartQuizEmptyResultNeverCreatesSession(t *testing.T) {
	ctx := context.Background()
	service, _, registry := newTestService(&fakeSource{})

	if _, err := service.StartQuiz(ctx, "alice", "Science"); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if _, ok := registry.Get("alice"); ok {
		t.Fatalf("empty result must not leave a session behind")
	}
}

func TestStartQuizUnknownCategory(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{questions: sampleQuestions()}
	service, _, _ := newTestService(source)

	if _, err := service.StartQuiz(ctx, "alice", "Botany"); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if source.calls != 0 {
		t.Fatalf("unknown category must not reach the provider")
	}
}

func TestStartQuizResolvesCategoryID(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{questions: sampleQuestions()}
	service, _, _ := newTestService(source)

	session, err := service.StartQuiz(ctx, "alice", "History")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Abandon()
	if source.lastID != 23 || source.lastCount != 5 {
		t.Fatalf("expected fetch(23, 5), got fetch(%d, %d)", source.lastID, source.lastCount)
	}
}

func TestFinishPersistsScoreRecord(t *testing.T) {
	ctx := context.Background()
	service, store, registry := newTestService(&fakeSource{questions: sampleQuestions()})

	session, err := service.StartQuiz(ctx, "alice", "Science")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.SelectAnswer("x"); err != nil {
		t.Fatalf("select: %v", err)
	}
	score, err := session.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if score.Score != 1 || score.Total != 5 {
		t.Fatalf("expected 1/5, got %d/%d", score.Score, score.Total)
	}

	records, err := store.ScoresFor(ctx, "alice")
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one score record, got %d", len(records))
	}
	rec := records[0]
	if rec.Category != "Science" || rec.Score != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Timestamp != "2025-03-14 15:09:26" {
		t.Fatalf("unexpected timestamp %q", rec.Timestamp)
	}
	if _, ok := registry.Get("alice"); ok {
		t.Fatalf("finished session should be removed from registry")
	}
}

type failingRecordStore struct {
	app.ScoreStore
}

func (failingRecordStore) RecordScore(context.Context, domain.ScoreRecord) error {
	return errors.New("disk full")
}

func TestFinishSurvivesPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	store := failingRecordStore{ScoreStore: memory.NewScoreStore(app.PlainVerifier{})}
	registry := memory.NewSessionRegistry()
	service := app.NewQuizServiceWithClock(store, &fakeSource{questions: sampleQuestions()}, registry, 20, app.AfterFunc, time.Now)

	session, err := service.StartQuiz(ctx, "alice", "Science")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	score, err := session.Finish()
	if err != nil {
		t.Fatalf("a failed save must not hide the score: %v", err)
	}
	if score.Total != 5 {
		t.Fatalf("expected total 5, got %d", score.Total)
	}
}

func TestStartQuizAbandonsPriorSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewScoreStore(app.PlainVerifier{})
	registry := memory.NewSessionRegistry()
	service := app.NewQuizServiceWithClock(store, &fakeSource{questions: sampleQuestions()}, registry, 20, app.AfterFunc, time.Now)

	first, err := service.StartQuiz(ctx, "alice", "Science")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := service.StartQuiz(ctx, "alice", "Sports")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if first == second {
		t.Fatalf("expected a fresh session")
	}
	if err := first.Next(); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("prior session should be abandoned, got %v", err)
	}

	// The abandoned session must not have persisted anything.
	records, _ := store.ScoresFor(ctx, "alice")
	if len(records) != 0 {
		t.Fatalf("abandoned session persisted %d records", len(records))
	}
	second.Abandon()
}

func TestSessionForAndAbandon(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(&fakeSource{questions: sampleQuestions()})

	if _, err := service.SessionFor("alice"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}

	started, err := service.StartQuiz(ctx, "alice", "Science")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	got, err := service.SessionFor("alice")
	if err != nil || got != started {
		t.Fatalf("expected active session, got %v (%v)", got, err)
	}

	service.Abandon("alice")
	if _, err := service.SessionFor("alice"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession after abandon, got %v", err)
	}
}

func TestCategories(t *testing.T) {
	service, _, _ := newTestService(&fakeSource{})

	names := service.Categories()
	expected := []string{"General Knowledge", "History", "Science", "Sports"}
	if len(names) != len(expected) {
		t.Fatalf("expected %d categories, got %v", len(expected), names)
	}
	for i, name := range expected {
		if names[i] != name {
			t.Fatalf("expected category %q at %d, got %q", name, i, names[i])
		}
	}
}

func TestLeaderboardOrdersByScore(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestService(&fakeSource{})

	seed := []domain.ScoreRecord{
		{Username: "alice", Category: "Science", Score: 2, Timestamp: "2025-03-14 10:00:00"},
		{Username: "bob", Category: "Sports", Score: 5, Timestamp: "2025-03-14 11:00:00"},
		{Username: "carol", Category: "History", Score: 4, Timestamp: "2025-03-14 12:00:00"},
	}
	for _, rec := range seed {
		if err := store.RecordScore(ctx, rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	board, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 3 || board[0].Username != "bob" || board[1].Username != "carol" || board[2].Username != "alice" {
		t.Fatalf("unexpected order: %+v", board)
	}
}

func TestMyScoresNewestFirst(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestService(&fakeSource{})

	seed := []domain.ScoreRecord{
		{Username: "alice", Category: "Science", Score: 2, Timestamp: "2025-03-13 10:00:00"},
		{Username: "alice", Category: "Sports", Score: 4, Timestamp: "2025-03-14 09:00:00"},
		{Username: "bob", Category: "History", Score: 5, Timestamp: "2025-03-14 10:00:00"},
	}
	for _, rec := range seed {
		if err := store.RecordScore(ctx, rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	records, err := service.MyScores(ctx, "alice")
	if err != nil {
		t.Fatalf("my scores: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected alice's 2 records, got %d", len(records))
	}
	if records[0].Category != "Sports" || records[1].Category != "Science" {
		t.Fatalf("expected newest first, got %+v", records)
	}
}
