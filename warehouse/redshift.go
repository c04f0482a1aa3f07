package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"golang.org/x/xerrors"
)

// RedshiftConfig locates the source data and the role Redshift assumes to read it.
type RedshiftConfig struct {
	IAMRole     string
	Region      string
	LogData     string
	LogJSONPath string
	SongData    string
}

// SQLExecer runs statements on a database/sql connection, committing each one.
type SQLExecer struct {
	DB *sql.DB
}

// Exec implements Execer.
func (e *SQLExecer) Exec(ctx context.Context, query string) error {
	if _, err := e.DB.ExecContext(ctx, query); err != nil {
		return xerrors.Errorf("failed to execute query: %w", err)
	}

	return nil
}

type copyStager struct {
	ex      Execer
	iamRole string
	region  string
}

// Stage empties the staging table and runs a Redshift COPY into it.
func (s *copyStager) Stage(ctx context.Context, t StagingTable) error {
	if err := s.ex.Exec(ctx, fmt.Sprintf("TRUNCATE %s", t.Name)); err != nil {
		return xerrors.Errorf("failed to truncate %s: %w", t.Name, err)
	}

	if err := s.ex.Exec(ctx, copyStatement(t, s.iamRole, s.region)); err != nil {
		return xerrors.Errorf("failed to copy %s: %w", t.Source, err)
	}

	return nil
}

func copyStatement(t StagingTable, iamRole, region string) string {
	format := t.Format
	if format == "" {
		format = "auto"
	}

	return fmt.Sprintf(`COPY %s FROM %s
IAM_ROLE %s
FORMAT AS JSON %s
REGION %s
TIMEFORMAT AS 'epochmillisecs'`,
		t.Name, quote(t.Source), quote(iamRole), quote(format), quote(region))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// OpenRedshift connects to a Redshift cluster through the Postgres wire protocol.
func OpenRedshift(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, xerrors.Errorf("failed to open redshift: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, xerrors.Errorf("failed to connect to redshift: %w", err)
	}

	return db, nil
}

// NewRedshift builds the Redshift flavour on an Execer, usually a *SQLExecer.
func NewRedshift(ex Execer, cfg RedshiftConfig) *Warehouse {
	return &Warehouse{
		Name:   "redshift",
		Stager: &copyStager{ex: ex, iamRole: cfg.IAMRole, region: cfg.Region},
		Execer: ex,
		Staging: []StagingTable{
			{Name: "staging_events", Source: cfg.LogData, Format: cfg.LogJSONPath},
			{Name: "staging_songs", Source: cfg.SongData, Format: "auto"},
		},
		Steps:       redshiftSteps,
		ClearFormat: "DELETE FROM %s",
		Create:      redshiftCreate,
		Drop:        dropStatements(`"time"`),
	}
}

func dropStatements(timeTable string) []string {
	names := []string{"staging_events", "staging_songs", "songplays", "users", "songs", "artists", timeTable}

	qs := make([]string, len(names))
	for i, n := range names {
		qs[i] = fmt.Sprintf("DROP TABLE IF EXISTS %s", n)
	}

	return qs
}
