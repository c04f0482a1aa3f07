package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// Execer runs a single SQL statement against a warehouse.
type Execer interface {
	Exec(ctx context.Context, query string) error
}

// Step fills one star schema table from the staging tables.
type Step struct {
	// Table is the destination table.
	Table string

	// Columns optionally lists destination columns, for tables with generated keys.
	Columns []string

	// SQL is the SELECT producing the table's rows.
	SQL string

	// AppendOnly keeps existing rows instead of clearing the table first.
	AppendOnly bool
}

// Statement returns the INSERT statement of the step.
func (s Step) Statement() string {
	target := s.Table
	if len(s.Columns) > 0 {
		target = fmt.Sprintf("%s (%s)", s.Table, strings.Join(s.Columns, ", "))
	}

	return fmt.Sprintf("INSERT INTO %s \n%s", target, s.SQL)
}

// Run clears the table unless the step is append only, then inserts.
// clearFormat is a format with one %s for the table, such as "DELETE FROM %s".
func (s Step) Run(ctx context.Context, ex Execer, clearFormat string) error {
	l := log.Ctx(ctx).With().Str("table", s.Table).Logger()

	if !s.AppendOnly {
		l.Info().Msgf("clearing %s", s.Table)

		if err := ex.Exec(ctx, fmt.Sprintf(clearFormat, s.Table)); err != nil {
			return xerrors.Errorf("failed to clear %s: %w", s.Table, err)
		}
	}

	stmt := s.Statement()
	l.Debug().Msgf("running sql: \n%s", stmt)

	if err := ex.Exec(ctx, stmt); err != nil {
		return xerrors.Errorf("failed to insert into %s: %w", s.Table, err)
	}

	l.Info().Msgf("successfully completed insert into %s", s.Table)

	return nil
}
