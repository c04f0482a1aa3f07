// Package store loads songs, artists, users, time and songplays rows into a
// relational database, one transaction per source file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"go.nownabe.dev/sparkify"
)

const pingTimeout = 5 * time.Second

var (
	_ sparkify.Loader       = (*Store)(nil)
	_ sparkify.SongResolver = (*Store)(nil)
)

// Store writes projected rows into the star schema and resolves songs against it.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database at dsn. The store keeps a single connection
// and uses it sequentially.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, xerrors.Errorf("failed to open %s database: %w", d.Name, err)
	}
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, xerrors.Errorf("failed to connect to %s database: %w", d.Name, err)
	}

	return New(db, d), nil
}

// New wraps an open database.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTables creates the star schema tables if they do not exist.
func (s *Store) CreateTables(ctx context.Context) error {
	for _, q := range s.dialect.create {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return xerrors.Errorf("failed to create tables: %w", err)
		}
	}

	log.Ctx(ctx).Info().Str("dialect", s.dialect.Name).Msg("tables created")

	return nil
}

// DropTables drops the star schema tables if they exist.
func (s *Store) DropTables(ctx context.Context) error {
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", t)); err != nil {
			return xerrors.Errorf("failed to drop %s: %w", t, err)
		}
	}

	log.Ctx(ctx).Info().Str("dialect", s.dialect.Name).Msg("tables dropped")

	return nil
}

// Load writes a batch in one transaction.
func (s *Store) Load(ctx context.Context, b *sparkify.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range b.Songs {
		if _, err := tx.ExecContext(ctx, songInsert, r.SongID, r.Title, r.ArtistID, r.Year, r.Duration); err != nil {
			return xerrors.Errorf("failed to insert song %s: %w", r.SongID, err)
		}
	}

	for _, r := range b.Artists {
		if _, err := tx.ExecContext(ctx, artistInsert,
			r.ArtistID, r.Name, r.Location, nullFloat(r.Latitude), nullFloat(r.Longitude)); err != nil {
			return xerrors.Errorf("failed to insert artist %s: %w", r.ArtistID, err)
		}
	}

	for _, r := range b.Times {
		if _, err := tx.ExecContext(ctx, timeInsert,
			r.StartTime, r.Hour, r.Day, r.Week, r.Month, r.Year, r.Weekday); err != nil {
			return xerrors.Errorf("failed to insert time %d: %w", r.StartTime, err)
		}
	}

	for _, r := range b.Users {
		if _, err := tx.ExecContext(ctx, userUpsert, r.UserID, r.FirstName, r.LastName, r.Gender, r.Level); err != nil {
			return xerrors.Errorf("failed to upsert user %d: %w", r.UserID, err)
		}
	}

	for _, r := range b.Songplays {
		if _, err := tx.ExecContext(ctx, songplayUpsert,
			r.StartTime, r.UserID, r.Level, nullString(r.SongID), nullString(r.ArtistID),
			r.SessionID, r.Location, r.UserAgent); err != nil {
			return xerrors.Errorf("failed to upsert songplay at %d: %w", r.StartTime, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Errorf("failed to commit: %w", err)
	}

	return nil
}

// ResolveSong looks up a song by exact title, artist name and duration.
func (s *Store) ResolveSong(ctx context.Context, title, artist string, duration float64) (*string, *string, error) {
	var songID, artistID string

	err := s.db.QueryRowContext(ctx, songSelect, title, artist, duration).Scan(&songID, &artistID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to select song: %w", err)
	}

	return &songID, &artistID, nil
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}

	return *p
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}

	return *p
}
