package memory

import (
	"context"
	"sort"
	"sync"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// ScoreStore is an in-memory implementation of app.ScoreStore, used by tests
// and zero-config demo runs.
type ScoreStore struct {
	verify app.CredentialVerifier

	mu     sync.RWMutex
	nextID int64
	users  map[string]domain.UserAccount
	scores []domain.ScoreRecord
}

func NewScoreStore(verify app.CredentialVerifier) *ScoreStore {
	return &ScoreStore{
		verify: verify,
		users:  make(map[string]domain.UserAccount),
	}
}

func (s *ScoreStore) CreateUser(_ context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return domain.ErrDuplicateUsername
	}
	s.nextID++
	s.users[username] = domain.UserAccount{ID: s.nextID, Username: username, Password: password}
	return nil
}

func (s *ScoreStore) Authenticate(_ context.Context, username, password string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.users[username]
	if !ok || !s.verify.Verify(account.Password, password) {
		return domain.UserAccount{}, domain.ErrInvalidCredentials
	}
	return account, nil
}

func (s *ScoreStore) RecordScore(_ context.Context, rec domain.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, rec)
	return nil
}

func (s *ScoreStore) ScoresFor(_ context.Context, username string) ([]domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.ScoreRecord, 0)
	for _, rec := range s.scores {
		if rec.Username == username {
			records = append(records, rec)
		}
	}
	// TimeLayout sorts lexicographically in chronological order.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, nil
}

func (s *ScoreStore) Leaderboard(_ context.Context) ([]domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.ScoreRecord, len(s.scores))
	copy(records, s.scores)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
	return records, nil
}
