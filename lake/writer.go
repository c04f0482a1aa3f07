// Package lake materializes the star schema as partitioned Parquet datasets.
//
// A Writer collects rows from sparkify handlers in an embedded DuckDB database,
// so later log files can resolve songs loaded earlier, and Flush writes one
// deduplicated dataset per table.
package lake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"go.nownabe.dev/sparkify"
)

var (
	_ sparkify.Loader       = (*Writer)(nil)
	_ sparkify.SongResolver = (*Writer)(nil)
)

var schema = []string{
	`CREATE OR REPLACE TABLE songs (seq BIGINT, song_id VARCHAR, title VARCHAR, artist_id VARCHAR, year INTEGER, duration DOUBLE)`,
	`CREATE OR REPLACE TABLE artists (seq BIGINT, artist_id VARCHAR, name VARCHAR, location VARCHAR, latitude DOUBLE, longitude DOUBLE)`,
	`CREATE OR REPLACE TABLE users (seq BIGINT, user_id BIGINT, first_name VARCHAR, last_name VARCHAR, gender VARCHAR, level VARCHAR)`,
	`CREATE OR REPLACE TABLE time_rows (seq BIGINT, start_time BIGINT, hour INTEGER, day INTEGER, week INTEGER, month INTEGER, year INTEGER, weekday INTEGER)`,
	`CREATE OR REPLACE TABLE songplays (seq BIGINT, start_time BIGINT, user_id BIGINT, level VARCHAR, song_id VARCHAR, artist_id VARCHAR, session_id BIGINT, location VARCHAR, user_agent VARCHAR)`,
}

// dataset is one Parquet output. Rows are deduplicated on key, keeping the
// first row for immutable dimensions and the last row otherwise.
type dataset struct {
	name      string
	query     string
	partition []string
}

var datasets = []dataset{
	{
		name: "songs",
		query: `SELECT song_id, title, artist_id, year, duration FROM songs
QUALIFY row_number() OVER (PARTITION BY song_id ORDER BY seq) = 1`,
		partition: []string{"year", "artist_id"},
	},
	{
		name: "artists",
		query: `SELECT artist_id, name, location, latitude, longitude FROM artists
QUALIFY row_number() OVER (PARTITION BY artist_id ORDER BY seq) = 1`,
		partition: []string{"artist_id"},
	},
	{
		name: "users",
		query: `SELECT user_id, first_name, last_name, gender, level FROM users
QUALIFY row_number() OVER (PARTITION BY user_id ORDER BY seq DESC) = 1`,
	},
	{
		name: "time",
		query: `SELECT start_time, hour, day, week, month, year, weekday FROM time_rows
QUALIFY row_number() OVER (PARTITION BY start_time ORDER BY seq) = 1`,
		partition: []string{"year", "month"},
	},
	{
		name: "songplays",
		query: `SELECT row_number() OVER (ORDER BY start_time, seq) AS songplay_id,
	start_time, user_id, level, song_id, artist_id, session_id, location, user_agent,
	year(epoch_ms(start_time)) AS year, month(epoch_ms(start_time)) AS month
FROM (
	SELECT * FROM songplays
	QUALIFY row_number() OVER (
		PARTITION BY start_time, user_id, coalesce(song_id, ''), coalesce(artist_id, '')
		ORDER BY seq DESC
	) = 1
) plays`,
		partition: []string{"year", "month"},
	},
}

const songSelect = `SELECT songs.song_id, songs.artist_id
FROM songs
JOIN artists ON songs.artist_id = artists.artist_id
WHERE songs.title = ? AND artists.name = ? AND songs.duration = ?
LIMIT 1`

// Writer accumulates projected rows and writes them as Parquet.
type Writer struct {
	db  *sql.DB
	seq int64
}

// Open creates a writer backed by the DuckDB database at path, or by memory when path is empty.
// Rows left in the database by an earlier run are discarded.
func Open(ctx context.Context, path string) (*Writer, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, xerrors.Errorf("failed to open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			db.Close()
			return nil, xerrors.Errorf("failed to create lake tables: %w", err)
		}
	}

	return &Writer{db: db}, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

func (w *Writer) next() int64 {
	w.seq++
	return w.seq
}

// Load appends a batch in one transaction.
func (w *Writer) Load(ctx context.Context, b *sparkify.Batch) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(q string, args ...any) error {
		_, err := tx.ExecContext(ctx, q, args...)
		return err
	}

	for _, r := range b.Songs {
		if err := exec(`INSERT INTO songs VALUES (?, ?, ?, ?, ?, ?)`,
			w.next(), r.SongID, r.Title, r.ArtistID, r.Year, r.Duration); err != nil {
			return xerrors.Errorf("failed to insert song %s: %w", r.SongID, err)
		}
	}

	for _, r := range b.Artists {
		if err := exec(`INSERT INTO artists VALUES (?, ?, ?, ?, ?, ?)`,
			w.next(), r.ArtistID, r.Name, r.Location, nullFloat(r.Latitude), nullFloat(r.Longitude)); err != nil {
			return xerrors.Errorf("failed to insert artist %s: %w", r.ArtistID, err)
		}
	}

	for _, r := range b.Users {
		if err := exec(`INSERT INTO users VALUES (?, ?, ?, ?, ?, ?)`,
			w.next(), r.UserID, r.FirstName, r.LastName, r.Gender, r.Level); err != nil {
			return xerrors.Errorf("failed to insert user %d: %w", r.UserID, err)
		}
	}

	for _, r := range b.Times {
		if err := exec(`INSERT INTO time_rows VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			w.next(), r.StartTime, r.Hour, r.Day, r.Week, r.Month, r.Year, r.Weekday); err != nil {
			return xerrors.Errorf("failed to insert time %d: %w", r.StartTime, err)
		}
	}

	for _, r := range b.Songplays {
		if err := exec(`INSERT INTO songplays VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.next(), r.StartTime, r.UserID, r.Level, nullString(r.SongID), nullString(r.ArtistID),
			r.SessionID, r.Location, r.UserAgent); err != nil {
			return xerrors.Errorf("failed to insert songplay at %d: %w", r.StartTime, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Errorf("failed to commit: %w", err)
	}

	return nil
}

// ResolveSong looks up a song loaded so far by exact title, artist name and duration.
func (w *Writer) ResolveSong(ctx context.Context, title, artist string, duration float64) (*string, *string, error) {
	var songID, artistID string

	err := w.db.QueryRowContext(ctx, songSelect, title, artist, duration).Scan(&songID, &artistID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to select song: %w", err)
	}

	return &songID, &artistID, nil
}

// Flush writes every table under dir as a Parquet dataset, replacing earlier output.
func (w *Writer) Flush(ctx context.Context, dir string) error {
	l := log.Ctx(ctx)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Errorf("failed to create %s: %w", dir, err)
	}

	for _, d := range datasets {
		out := filepath.Join(dir, d.name)
		if err := os.RemoveAll(out); err != nil {
			return xerrors.Errorf("failed to clear %s: %w", out, err)
		}

		if _, err := w.db.ExecContext(ctx, copyStatement(d, out)); err != nil {
			return xerrors.Errorf("failed to write %s: %w", d.name, err)
		}

		l.Info().Str("dataset", d.name).Msgf("parquet written to %s", out)
	}

	return nil
}

func copyStatement(d dataset, out string) string {
	if len(d.partition) == 0 {
		return fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET, COMPRESSION 'ZSTD', PER_THREAD_OUTPUT)",
			d.query, quote(out))
	}

	return fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET, COMPRESSION 'ZSTD', PARTITION_BY (%s), OVERWRITE_OR_IGNORE)",
		d.query, quote(out), strings.Join(d.partition, ", "))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
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
