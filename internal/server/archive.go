package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MatchRecord summarises one finished game.
type MatchRecord struct {
	ID          string    `json:"id"`
	RoomCode    string    `json:"roomCode"`
	PlayerNames [2]string `json:"playerNames"`
	Scores      [2]int    `json:"scores"`
	Winner      *int      `json:"winner"`
	Moves       int       `json:"moves"`
	Captures    int       `json:"captures"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
}

// MatchArchive stores finished matches. Live rooms are never persisted.
type MatchArchive interface {
	RecordMatch(ctx context.Context, m MatchRecord) error
	RecentMatches(ctx context.Context, limit int) ([]MatchRecord, error)
	Ping(ctx context.Context) error
	Close()
}

var ErrArchiveDisabled = errors.New("match archive is not configured")

// NopArchive is used when no database is configured.
type NopArchive struct{}

func (NopArchive) RecordMatch(context.Context, MatchRecord) error { return nil }

func (NopArchive) RecentMatches(context.Context, int) ([]MatchRecord, error) {
	return []MatchRecord{}, nil
}

func (NopArchive) Ping(context.Context) error { return ErrArchiveDisabled }

func (NopArchive) Close() {}

// PostgresArchive keeps matches in a Postgres table through a pgx pool.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &PostgresArchive{pool: pool}, nil
}

// Migrate creates the matches table if it does not exist yet.
func (a *PostgresArchive) Migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS matches (
			id          TEXT PRIMARY KEY,
			room_code   TEXT NOT NULL,
			player_one  TEXT NOT NULL,
			player_two  TEXT NOT NULL,
			score_one   INTEGER NOT NULL,
			score_two   INTEGER NOT NULL,
			winner      INTEGER,
			moves       INTEGER NOT NULL,
			captures    INTEGER NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			ended_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS matches_ended_at_idx ON matches (ended_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate matches table: %w", err)
	}
	return nil
}

func (a *PostgresArchive) RecordMatch(ctx context.Context, m MatchRecord) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO matches (id, room_code, player_one, player_two, score_one, score_two,
			winner, moves, captures, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`,
		m.ID, m.RoomCode, m.PlayerNames[0], m.PlayerNames[1], m.Scores[0], m.Scores[1],
		m.Winner, m.Moves, m.Captures, m.StartedAt, m.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record match %s: %w", m.RoomCode, err)
	}
	return nil
}

func (a *PostgresArchive) RecentMatches(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT id, room_code, player_one, player_two, score_one, score_two,
			winner, moves, captures, started_at, ended_at
		FROM matches
		ORDER BY ended_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (MatchRecord, error) {
		var m MatchRecord
		err := row.Scan(&m.ID, &m.RoomCode, &m.PlayerNames[0], &m.PlayerNames[1], &m.Scores[0], &m.Scores[1],
			&m.Winner, &m.Moves, &m.Captures, &m.StartedAt, &m.EndedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan matches: %w", err)
	}
	if matches == nil {
		matches = []MatchRecord{}
	}
	return matches, nil
}

func (a *PostgresArchive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

func (a *PostgresArchive) Close() {
	a.pool.Close()
}
