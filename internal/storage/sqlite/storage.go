package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username       TEXT PRIMARY KEY,
	password_hash  TEXT    NOT NULL,
	rating         INTEGER NOT NULL,
	initial_rating INTEGER NOT NULL,
	created_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS games (
	id           TEXT PRIMARY KEY,
	played_at    INTEGER NOT NULL,
	white        TEXT    NOT NULL,
	black        TEXT    NOT NULL,
	moves_log    TEXT    NOT NULL,
	result       TEXT    NOT NULL,
	white_change INTEGER NOT NULL,
	black_change INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_games_white ON games(white, played_at);
CREATE INDEX IF NOT EXISTS idx_games_black ON games(black, played_at);
`

// Config holds SQLite settings
type Config struct {
	// Path is the database file
	Path string
	// MaxOpenConns limits the connection pool
	MaxOpenConns int
}

// DefaultConfig returns sensible defaults for SQLite configuration
func DefaultConfig() Config {
	return Config{
		Path:         "chessmatch.db",
		MaxOpenConns: 1,
	}
}

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	db *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// New opens the database file and creates the schema if needed
func New(ctx context.Context, cfg Config) (*Storage, error) {
	db, err := sql.Open("sqlite3", cfg.Path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, rating, initial_rating, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(user.Username), user.PasswordHash, user.Rating, user.InitialRating, user.CreatedAt.UnixNano(),
	)
	if isConstraintViolation(err) {
		return model.ErrUserExists
	}
	return err
}

func (s *Storage) GetUser(ctx context.Context, username model.Username) (*model.User, error) {
	return getUser(ctx, s.db, username)
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, password_hash, rating, initial_rating, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Storage) UpdateRating(ctx context.Context, username model.Username, delta int) (*model.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE users SET rating = rating + ? WHERE username = ?`, delta, string(username))
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, model.ErrUserNotFound
	}

	user, err := getUser(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	return user, tx.Commit()
}

// Game history operations

func (s *Storage) SaveGame(ctx context.Context, record *model.GameRecord) error {
	moves, err := json.Marshal(record.MovesLog)
	if err != nil {
		return fmt.Errorf("failed to marshal moves: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO games (id, played_at, white, black, moves_log, result, white_change, black_change)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(record.ID), record.Date.UnixNano(), string(record.White), string(record.Black),
		string(moves), string(record.Result), record.RatingChange.White, record.RatingChange.Black,
	)
	if isConstraintViolation(err) {
		return model.ErrGameExists
	}
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.SessionID) (*model.GameRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, string(id))
	record, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrGameNotFound
	}
	return record, err
}

func (s *Storage) ListGamesForUser(ctx context.Context, username model.Username) ([]*model.GameRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE white = ? OR black = ? ORDER BY played_at, id`,
		string(username), string(username),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := []*model.GameRecord{}
	for rows.Next() {
		record, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

const gameColumns = `id, played_at, white, black, moves_log, result, white_change, black_change`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getUser(ctx context.Context, q queryer, username model.Username) (*model.User, error) {
	row := q.QueryRowContext(ctx,
		`SELECT username, password_hash, rating, initial_rating, created_at FROM users WHERE username = ?`,
		string(username),
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	return user, err
}

func scanUser(row scanner) (*model.User, error) {
	var (
		user      model.User
		createdAt int64
	)
	if err := row.Scan(&user.Username, &user.PasswordHash, &user.Rating, &user.InitialRating, &createdAt); err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return &user, nil
}

func scanGame(row scanner) (*model.GameRecord, error) {
	var (
		record   model.GameRecord
		playedAt int64
		moves    string
	)
	err := row.Scan(&record.ID, &playedAt, &record.White, &record.Black, &moves,
		&record.Result, &record.RatingChange.White, &record.RatingChange.Black)
	if err != nil {
		return nil, err
	}
	record.Date = time.Unix(0, playedAt).UTC()
	if err := json.Unmarshal([]byte(moves), &record.MovesLog); err != nil {
		return nil, fmt.Errorf("failed to decode moves of game %s: %w", record.ID, err)
	}
	return &record, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
