// Package store records finished matches in SQLite and answers personal
// best and leaderboard queries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/tilecraft/slide/game"
)

const DefaultLeaderboardSize = 20

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id          TEXT PRIMARY KEY,
	identity    TEXT NOT NULL,
	score       INTEGER NOT NULL,
	max_tile    INTEGER NOT NULL,
	moves       INTEGER NOT NULL,
	autonomous  INTEGER NOT NULL,
	algorithm   TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS results_identity_score ON results (identity, score DESC);
CREATE INDEX IF NOT EXISTS results_score ON results (score DESC);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps an in-memory database alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("store-opened")
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Entry is one recorded match.
type Entry struct {
	ID          string `json:"id" yaml:"id"`
	game.Result `yaml:",inline"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
}

// SubmitResult records r. Matches without an identity are not recorded and
// yield game.ErrAnonymous.
func (s *Store) SubmitResult(ctx context.Context, r game.Result) error {
	if r.Identity == "" {
		return game.ErrAnonymous
	}
	if !r.Autonomous {
		r.Algorithm = game.HumanLabel
	}
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (id, identity, score, max_tile, moves, autonomous, algorithm, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.Identity, r.Score, r.MaxTile, r.Moves, r.Autonomous, r.Algorithm,
		s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}
	log.Debug().Str("id", id).Str("identity", r.Identity).Int("score", r.Score).Msg("result-stored")
	return nil
}

// PersonalBest is the highest recorded score for identity, or 0.
func (s *Store) PersonalBest(ctx context.Context, identity string) (int, error) {
	if identity == "" {
		return 0, nil
	}
	var best sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(score) FROM results WHERE identity = ?`, identity).Scan(&best)
	if err != nil {
		return 0, err
	}
	return int(best.Int64), nil
}

// Leaderboard returns the top limit matches by score, ties broken by the
// earlier match.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identity, score, max_tile, moves, autonomous, algorithm, created_at
		 FROM results ORDER BY score DESC, created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Identity, &e.Score, &e.MaxTile, &e.Moves,
			&e.Autonomous, &e.Algorithm, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
