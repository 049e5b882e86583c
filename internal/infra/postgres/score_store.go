// Package postgres is the optional shared score store, for deployments where
// several desktops point at one database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

const uniqueViolation = "23505"

// ScoreStore implements app.ScoreStore on a pgx pool.
type ScoreStore struct {
	pool   *pgxpool.Pool
	verify app.CredentialVerifier
}

func NewScoreStore(pool *pgxpool.Pool, verify app.CredentialVerifier) *ScoreStore {
	return &ScoreStore{pool: pool, verify: verify}
}

var _ app.ScoreStore = (*ScoreStore)(nil)

func (s *ScoreStore) CreateUser(ctx context.Context, username, password string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, password) VALUES ($1, $2)`,
		username, password)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *ScoreStore) Authenticate(ctx context.Context, username, password string) (domain.UserAccount, error) {
	var account domain.UserAccount
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password FROM users WHERE username=$1`,
		username).Scan(&account.ID, &account.Username, &account.Password)
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return domain.UserAccount{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("load user: %w", err)
	}
	if !s.verify.Verify(account.Password, password) {
		return domain.UserAccount{}, domain.ErrInvalidCredentials
	}
	return account, nil
}

func (s *ScoreStore) RecordScore(ctx context.Context, rec domain.ScoreRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scores (username, category, score, timestamp) VALUES ($1, $2, $3, $4)`,
		rec.Username, rec.Category, rec.Score, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *ScoreStore) ScoresFor(ctx context.Context, username string) ([]domain.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT username, category, score, timestamp FROM scores WHERE username=$1 ORDER BY timestamp DESC`,
		username)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *ScoreStore) Leaderboard(ctx context.Context) ([]domain.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT username, category, score, timestamp FROM scores ORDER BY score DESC`)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]domain.ScoreRecord, error) {
	records := make([]domain.ScoreRecord, 0)
	for rows.Next() {
		var rec domain.ScoreRecord
		if err := rows.Scan(&rec.Username, &rec.Category, &rec.Score, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}
	return records, nil
}
