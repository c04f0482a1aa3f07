// Package warehouse loads the star schema inside a data warehouse: source files
// are bulk-copied from object storage into staging tables, then each table is
// filled by a set-based INSERT ... SELECT.
package warehouse

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// StagingTable is a landing table filled by bulk copy from object storage.
type StagingTable struct {
	Name string

	// Source is the s3:// or gs:// location of the JSON files.
	Source string

	// Format describes how JSON fields map to columns, e.g. a jsonpaths file or "auto".
	Format string
}

// Stager bulk-copies object storage into a staging table, replacing its contents.
type Stager interface {
	Stage(context.Context, StagingTable) error
}

// Warehouse is one flavour of warehouse load.
type Warehouse struct {
	Name    string
	Stager  Stager
	Execer  Execer
	Staging []StagingTable
	Steps   []Step

	// ClearFormat clears a table before a non append-only step.
	ClearFormat string

	// Create and Drop hold the DDL of the staging and star schema tables.
	Create []string
	Drop   []string
}

// Run loads the staging tables and then inserts into the star schema.
func (w *Warehouse) Run(ctx context.Context) error {
	if err := w.LoadStaging(ctx); err != nil {
		return err
	}

	return w.InsertTables(ctx)
}

// LoadStaging copies every staging table from object storage.
func (w *Warehouse) LoadStaging(ctx context.Context) error {
	l := log.Ctx(ctx)

	for i, t := range w.Staging {
		l.Info().Str("warehouse", w.Name).Msgf("staging %s from %s", t.Name, t.Source)

		if err := w.Stager.Stage(ctx, t); err != nil {
			return xerrors.Errorf("failed to stage %s: %w", t.Name, err)
		}

		l.Info().Msgf("%d/%d staging tables loaded.", i+1, len(w.Staging))
	}

	return nil
}

// InsertTables runs the steps in order.
func (w *Warehouse) InsertTables(ctx context.Context) error {
	for _, s := range w.Steps {
		if err := s.Run(ctx, w.Execer, w.ClearFormat); err != nil {
			return err
		}
	}

	return nil
}

// CreateTables creates the staging and star schema tables.
func (w *Warehouse) CreateTables(ctx context.Context) error {
	return w.execAll(ctx, w.Create, "create tables")
}

// DropTables drops the staging and star schema tables.
func (w *Warehouse) DropTables(ctx context.Context) error {
	return w.execAll(ctx, w.Drop, "drop tables")
}

func (w *Warehouse) execAll(ctx context.Context, queries []string, what string) error {
	for _, q := range queries {
		if err := w.Execer.Exec(ctx, q); err != nil {
			return xerrors.Errorf("failed to %s in %s: %w", what, w.Name, err)
		}
	}

	log.Ctx(ctx).Info().Str("warehouse", w.Name).Msg(fmt.Sprintf("%d statements executed to %s", len(queries), what))

	return nil
}
