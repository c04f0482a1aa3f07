package warehouse

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// BigQueryConfig locates the dataset and the source data in Cloud Storage.
type BigQueryConfig struct {
	Project  string
	Dataset  string
	Location string
	LogData  string
	SongData string
}

type bqStager struct {
	client  *bigquery.Client
	dataset string
}

// Stage runs a load job from Cloud Storage, truncating the staging table.
func (s *bqStager) Stage(ctx context.Context, t StagingTable) error {
	ref := bigquery.NewGCSReference(t.Source)
	ref.SourceFormat = bigquery.JSON
	ref.Schema = stagingSchemas[t.Name]
	ref.IgnoreUnknownValues = true

	loader := s.client.Dataset(s.dataset).Table(t.Name).LoaderFrom(ref)
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteTruncate

	job, err := loader.Run(ctx)
	if err != nil {
		return xerrors.Errorf("failed to run bigquery load job: %w", err)
	}

	return waitJob(ctx, job)
}

type bqExecer struct {
	client  *bigquery.Client
	dataset string
}

// Exec runs a query job with the dataset as default.
func (e *bqExecer) Exec(ctx context.Context, query string) error {
	q := e.client.Query(query)
	q.DefaultProjectID = e.client.Project()
	q.DefaultDatasetID = e.dataset

	job, err := q.Run(ctx)
	if err != nil {
		return xerrors.Errorf("failed to run bigquery query job: %w", err)
	}

	return waitJob(ctx, job)
}

func waitJob(ctx context.Context, job *bigquery.Job) error {
	status, err := job.Wait(ctx)
	if err != nil {
		return xerrors.Errorf("failed to wait job %s: %w", job.ID(), err)
	}

	if err := status.Err(); err != nil {
		log.Ctx(ctx).Error().Msgf("job %s failed: %v", job.ID(), status.Errors)
		return xerrors.Errorf("job %s failed: %w", job.ID(), err)
	}

	return nil
}

// NewBigQuery builds the BigQuery flavour. Close the returned client when done.
func NewBigQuery(ctx context.Context, cfg BigQueryConfig) (*Warehouse, *bigquery.Client, error) {
	client, err := bigquery.NewClient(ctx, cfg.Project)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to build bigquery client for %s: %w", cfg.Project, err)
	}

	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	w := newBigQueryWarehouse(
		&bqStager{client: client, dataset: cfg.Dataset},
		&bqExecer{client: client, dataset: cfg.Dataset},
		cfg,
	)

	return w, client, nil
}

func newBigQueryWarehouse(st Stager, ex Execer, cfg BigQueryConfig) *Warehouse {
	return &Warehouse{
		Name:   "bigquery",
		Stager: st,
		Execer: ex,
		Staging: []StagingTable{
			{Name: "staging_events", Source: cfg.LogData},
			{Name: "staging_songs", Source: cfg.SongData},
		},
		Steps:       bigQuerySteps,
		ClearFormat: "TRUNCATE TABLE %s",
		Create:      bigQueryCreate,
		Drop:        dropStatements("`time`"),
	}
}
