// Package sqlite is the default local score store, backed by bun over the
// sqliteshim driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Username string `bun:"username,unique,notnull"`
	Password string `bun:"password,notnull"`
}

type scoreRow struct {
	bun.BaseModel `bun:"table:scores"`

	ID        int64  `bun:"id,pk,autoincrement"`
	Username  string `bun:"username,notnull"`
	Category  string `bun:"category,notnull"`
	Score     int    `bun:"score,notnull"`
	Timestamp string `bun:"timestamp,notnull"`
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := sqldb.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// ScoreStore implements app.ScoreStore on a local sqlite database.
type ScoreStore struct {
	db     *bun.DB
	verify app.CredentialVerifier
}

func NewScoreStore(db *bun.DB, verify app.CredentialVerifier) *ScoreStore {
	return &ScoreStore{db: db, verify: verify}
}

var _ app.ScoreStore = (*ScoreStore)(nil)

// Init creates the users and scores tables if they do not exist.
func (s *ScoreStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*userRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*scoreRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create scores table: %w", err)
	}
	return nil
}

func (s *ScoreStore) CreateUser(ctx context.Context, username, password string) error {
	exists, err := s.db.NewSelect().Model((*userRow)(nil)).
		Where("username = ?", username).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if exists {
		return domain.ErrDuplicateUsername
	}
	row := &userRow{Username: username, Password: password}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *ScoreStore) Authenticate(ctx context.Context, username, password string) (domain.UserAccount, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).
		Where("username = ?", username).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserAccount{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("load user: %w", err)
	}
	if !s.verify.Verify(row.Password, password) {
		return domain.UserAccount{}, domain.ErrInvalidCredentials
	}
	return domain.UserAccount{ID: row.ID, Username: row.Username, Password: row.Password}, nil
}

func (s *ScoreStore) RecordScore(ctx context.Context, rec domain.ScoreRecord) error {
	row := &scoreRow{
		Username:  rec.Username,
		Category:  rec.Category,
		Score:     rec.Score,
		Timestamp: rec.Timestamp,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *ScoreStore) ScoresFor(ctx context.Context, username string) ([]domain.ScoreRecord, error) {
	var rows []scoreRow
	err := s.db.NewSelect().Model(&rows).
		Where("username = ?", username).
		Order("timestamp DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	return toRecords(rows), nil
}

func (s *ScoreStore) Leaderboard(ctx context.Context) ([]domain.ScoreRecord, error) {
	var rows []scoreRow
	err := s.db.NewSelect().Model(&rows).
		Order("score DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return toRecords(rows), nil
}

func toRecords(rows []scoreRow) []domain.ScoreRecord {
	records := make([]domain.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.ScoreRecord{
			Username:  row.Username,
			Category:  row.Category,
			Score:     row.Score,
			Timestamp: row.Timestamp,
		})
	}
	return records
}
