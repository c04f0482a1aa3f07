package cli

import (
	"github.com/spf13/cobra"

	"go.nownabe.dev/sparkify/config"
	"go.nownabe.dev/sparkify/contrib/handlers"
	"go.nownabe.dev/sparkify/lake"
)

func newLakeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lake",
		Short: "Write the star schema as partitioned Parquet files, optionally uploading them to S3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, "lake", func() error {
				ctx := cmd.Context()
				lc := o.cfg.Lake

				if err := config.Validate(lc, o.cfg.AWS); err != nil {
					return err
				}

				w, err := lake.Open(ctx, lc.Database)
				if err != nil {
					return err
				}
				defer w.Close()

				etl, err := o.newETL(ctx, lc.Input)
				if err != nil {
					return err
				}

				if err := handlers.AddStarSchema(ctx, etl, w, o.notifier()); err != nil {
					return err
				}

				if err := etl.Run(ctx, lc.Input); err != nil {
					return err
				}

				if err := w.Flush(ctx, lc.Output); err != nil {
					return err
				}

				if lc.Upload == "" {
					return nil
				}

				c, err := newS3Client(ctx, o.cfg.AWS)
				if err != nil {
					return err
				}

				u, err := lake.NewUploader(c, lc.Upload, lc.Concurrency)
				if err != nil {
					return err
				}

				_, err = u.Upload(ctx, lc.Output)

				return err
			})
		},
	}
}
