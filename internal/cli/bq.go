package cli

import (
	"context"

	"github.com/spf13/cobra"

	"go.nownabe.dev/sparkify/config"
	"go.nownabe.dev/sparkify/warehouse"
)

func newBQCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bq",
		Short: "Load the star schema in BigQuery from Cloud Storage",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create-tables",
			Short: "Drop and recreate the star schema tables in the BigQuery dataset",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, "bq create-tables", func() error {
					return o.withBigQuery(cmd.Context(), func(ctx context.Context, w *warehouse.Warehouse) error {
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
			Short: "Load Cloud Storage data into the staging tables, then insert into the star schema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, "bq etl", func() error {
					return o.withBigQuery(cmd.Context(), func(ctx context.Context, w *warehouse.Warehouse) error {
						return w.Run(ctx)
					})
				})
			},
		},
	)

	return cmd
}

func (o *options) withBigQuery(ctx context.Context, f func(context.Context, *warehouse.Warehouse) error) error {
	if err := config.Validate(o.cfg.BigQuery); err != nil {
		return err
	}

	bc := o.cfg.BigQuery
	w, client, err := warehouse.NewBigQuery(ctx, warehouse.BigQueryConfig{
		Project:  bc.Project,
		Dataset:  bc.Dataset,
		Location: bc.Location,
		LogData:  bc.LogData,
		SongData: bc.SongData,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	return f(ctx, w)
}
