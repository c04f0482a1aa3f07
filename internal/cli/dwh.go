package cli

import (
	"context"

	"github.com/spf13/cobra"

	"go.nownabe.dev/sparkify/config"
	"go.nownabe.dev/sparkify/warehouse"
)

func newDWHCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dwh",
		Short: "Load the star schema in Amazon Redshift from S3",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create-tables",
			Short: "Drop and recreate the staging and star schema tables in Redshift",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, "dwh create-tables", func() error {
					return o.withRedshift(cmd.Context(), func(ctx context.Context, w *warehouse.Warehouse) error {
						if err := w.DropTables(ctx); err != nil {
							return err
						}

						return w.CreateTables(ctx)
					})
				})
			},
		},
		&cobra.Command{
			Use:   "etl",
			Short: "Copy S3 data into the staging tables, then insert into the star schema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, "dwh etl", func() error {
					return o.withRedshift(cmd.Context(), func(ctx context.Context, w *warehouse.Warehouse) error {
						return w.Run(ctx)
					})
				})
			},
		},
	)

	return cmd
}

func (o *options) withRedshift(ctx context.Context, f func(context.Context, *warehouse.Warehouse) error) error {
	if err := config.Validate(o.cfg.Cluster, o.cfg.Warehouse); err != nil {
		return err
	}

	db, err := warehouse.OpenRedshift(ctx, o.cfg.Cluster.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	wc := o.cfg.Warehouse
	w := warehouse.NewRedshift(&warehouse.SQLExecer{DB: db}, warehouse.RedshiftConfig{
		IAMRole:     wc.IAMRole,
		Region:      wc.Region,
		LogData:     wc.LogData,
		LogJSONPath: wc.LogJSONPath,
		SongData:    wc.SongData,
	})

	return f(ctx, w)
}
