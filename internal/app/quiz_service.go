package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"quizdesk/internal/domain"
)

// QuestionSource fetches trivia questions from the external provider.
type QuestionSource interface {
	Fetch(ctx context.Context, categoryID, amount int) ([]domain.Question, error)
}

// ScoreStore persists user accounts and score records (sqlite, postgres,
// in-memory, or a caching wrapper).
type ScoreStore interface {
	CreateUser(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) (domain.UserAccount, error)
	RecordScore(ctx context.Context, rec domain.ScoreRecord) error
	ScoresFor(ctx context.Context, username string) ([]domain.ScoreRecord, error)
	Leaderboard(ctx context.Context) ([]domain.ScoreRecord, error)
}

// SessionRegistry tracks the at-most-one active session per user.
type SessionRegistry interface {
	Put(username string, s *Session)
	Get(username string) (*Session, bool)
	Delete(username string)
}

// CredentialVerifier compares a stored password with a supplied one. Stores
// take a verifier so hashing can be introduced without touching their
// contract.
type CredentialVerifier interface {
	Verify(stored, supplied string) bool
}

// PlainVerifier compares passwords byte for byte.
type PlainVerifier struct{}

func (PlainVerifier) Verify(stored, supplied string) bool { return stored == supplied }

// DefaultQuestionSeconds is the per-question countdown duration.
const DefaultQuestionSeconds = 20

// DefaultQuestionCount is how many questions make up one quiz.
const DefaultQuestionCount = 5

// QuizService contains the quiz use cases: account registration and login,
// starting a quiz for a category, navigating the active session, and reading
// score history and the leaderboard.
type QuizService struct {
	store    ScoreStore
	source   QuestionSource
	sessions SessionRegistry
	seconds  int
	amount   int
	schedule Schedule
	now      func() time.Time
}

func NewQuizService(store ScoreStore, source QuestionSource, sessions SessionRegistry) *QuizService {
	return NewQuizServiceWithClock(store, source, sessions, DefaultQuestionSeconds, AfterFunc, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic timers and timestamps.
func NewQuizServiceWithClock(store ScoreStore, source QuestionSource, sessions SessionRegistry, seconds int, schedule Schedule, now func() time.Time) *QuizService {
	return &QuizService{
		store:    store,
		source:   source,
		sessions: sessions,
		seconds:  seconds,
		amount:   DefaultQuestionCount,
		schedule: schedule,
		now:      now,
	}
}

// Categories lists the selectable quiz categories.
func (s *QuizService) Categories() []string {
	return domain.CategoryNames()
}

// Register creates a new account. Empty fields are rejected; duplicates
// surface as domain.ErrDuplicateUsername with the stored account untouched.
func (s *QuizService) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return domain.ErrMissingCredentials
	}
	return s.store.CreateUser(ctx, username, password)
}

// Login authenticates an existing account.
func (s *QuizService) Login(ctx context.Context, username, password string) (domain.UserAccount, error) {
	if username == "" || password == "" {
		return domain.UserAccount{}, domain.ErrMissingCredentials
	}
	return s.store.Authenticate(ctx, username, password)
}

// StartQuiz fetches questions for the category and opens a session. A fetch
// failure or empty result set never constructs a session. Starting while a
// session is already active abandons the old one first.
func (s *QuizService) StartQuiz(ctx context.Context, username, category string) (*Session, error) {
	categoryID, ok := domain.CategoryID(category)
	if !ok {
		return nil, domain.ErrUnknownCategory
	}
	questions, err := s.source.Fetch(ctx, categoryID, s.amount)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	if prev, ok := s.sessions.Get(username); ok {
		prev.Abandon()
		s.sessions.Delete(username)
	}

	session := newSession(username, category, questions, s.seconds, s.schedule, func(score domain.FinalScore) {
		s.sessions.Delete(username)
		rec := domain.ScoreRecord{
			Username:  username,
			Category:  category,
			Score:     score.Score,
			Timestamp: s.now().Format(domain.TimeLayout),
		}
		// Score display and persistence are decoupled: a failed save is
		// logged, the user still sees their score.
		if err := s.store.RecordScore(context.Background(), rec); err != nil {
			log.Printf("record score for %s: %v", username, err)
		}
	})
	s.sessions.Put(username, session)
	return session, nil
}

// SessionFor returns the user's active session, if any.
func (s *QuizService) SessionFor(username string) (*Session, error) {
	session, ok := s.sessions.Get(username)
	if !ok {
		return nil, domain.ErrNoActiveSession
	}
	return session, nil
}

// Abandon drops the user's active session without persisting anything.
func (s *QuizService) Abandon(username string) {
	if session, ok := s.sessions.Get(username); ok {
		session.Abandon()
		s.sessions.Delete(username)
	}
}

// MyScores returns the user's score history, most recent first.
func (s *QuizService) MyScores(ctx context.Context, username string) ([]domain.ScoreRecord, error) {
	return s.store.ScoresFor(ctx, username)
}

// Leaderboard returns all scores ordered best first.
func (s *QuizService) Leaderboard(ctx context.Context) ([]domain.ScoreRecord, error) {
	return s.store.Leaderboard(ctx)
}
