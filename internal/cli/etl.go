package cli

import (
	"context"

	"github.com/spf13/cobra"

	"go.nownabe.dev/sparkify"
	"go.nownabe.dev/sparkify/config"
	"go.nownabe.dev/sparkify/contrib/handlers"
	"go.nownabe.dev/sparkify/store"
)

func newCreateTablesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create-tables",
		Short: "Drop and recreate the star schema in the relational database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, "create-tables", func() error {
				ctx := cmd.Context()

				st, err := o.openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()

				if err := st.DropTables(ctx); err != nil {
					return err
				}

				return st.CreateTables(ctx)
			})
		},
	}
}

func newETLCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "etl",
		Short: "Load song_data and log_data files into the relational database, one file at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, "etl", func() error {
				ctx := cmd.Context()

				if err := config.Validate(o.cfg.Data); err != nil {
					return err
				}

				st, err := o.openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()

				etl, err := o.newETL(ctx, o.cfg.Data.Root)
				if err != nil {
					return err
				}

				if err := handlers.AddStarSchema(ctx, etl, st, o.notifier()); err != nil {
					return err
				}

				return etl.Run(ctx, o.cfg.Data.Root)
			})
		},
	}
}

func (o *options) openStore(ctx context.Context) (*store.Store, error) {
	if err := config.Validate(o.cfg.Database); err != nil {
		return nil, err
	}

	d, err := store.DialectFor(o.cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	return store.Open(ctx, d, o.cfg.Database.DSN())
}

// newETL builds an ETL able to read root, which may be an s3:// URI served by the aws section.
func (o *options) newETL(ctx context.Context, root string) (sparkify.ETL, error) {
	opts := o.etlOptions()

	loc, err := sparkify.ParseLocation(root)
	if err != nil {
		return nil, err
	}

	if loc.Scheme == "s3" {
		if err := config.Validate(o.cfg.AWS); err != nil {
			return nil, err
		}

		c, err := newS3Client(ctx, o.cfg.AWS)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sparkify.WithS3Client(c))
	}

	return sparkify.New(opts...)
}
