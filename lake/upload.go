package lake

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"go.nownabe.dev/sparkify"
)

const defaultConcurrency = 8

type putter interface {
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies a written lake to an s3:// location.
type Uploader struct {
	client      putter
	bucket      string
	prefix      string
	concurrency int
}

// NewUploader builds an uploader to dest, e.g. "s3://bucket/lake".
func NewUploader(client *s3.Client, dest string, concurrency int) (*Uploader, error) {
	return newUploader(client, dest, concurrency)
}

func newUploader(client putter, dest string, concurrency int) (*Uploader, error) {
	loc, err := sparkify.ParseLocation(dest)
	if err != nil {
		return nil, err
	}

	if loc.Scheme != "s3" {
		return nil, xerrors.Errorf("upload destination must be s3://: %s: %w", dest, sparkify.ErrUnsupportedScheme)
	}

	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Uploader{client: client, bucket: loc.Bucket, prefix: loc.Path, concurrency: concurrency}, nil
}

// Upload puts every file under dir, keeping relative paths as keys. It returns the number of uploaded files.
func (u *Uploader) Upload(ctx context.Context, dir string) (int, error) {
	files, err := sparkify.CollectFiles(dir, "")
	if err != nil {
		return 0, err
	}

	keys, err := u.keys(dir, files)
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for i, f := range files {
		f, key := f, keys[i]

		g.Go(func() error {
			return u.put(ctx, f, key)
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	log.Ctx(ctx).Info().Msgf("%d files uploaded to s3://%s/%s", len(files), u.bucket, u.prefix)

	return len(files), nil
}

// keys maps files under dir to object keys. Every key is resolved before any upload starts.
func (u *Uploader) keys(dir string, files []string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, xerrors.Errorf("failed to resolve %s: %w", dir, err)
	}

	keys := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(absDir, f)
		if err != nil {
			return nil, xerrors.Errorf("failed to resolve %s: %w", f, err)
		}
		keys[i] = path.Join(u.prefix, filepath.ToSlash(rel))
	}

	return keys, nil
}

func (u *Uploader) put(ctx context.Context, file, key string) error {
	body, err := os.Open(file)
	if err != nil {
		return xerrors.Errorf("failed to open %s: %w", file, err)
	}
	defer body.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return xerrors.Errorf("failed to put s3://%s/%s: %w", u.bucket, key, err)
	}

	return nil
}
