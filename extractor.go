package sparkify

import (
	"context"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// extractor opens source objects for reading.
type extractor interface {
	extract(context.Context, Object) (io.Reader, func(), error)
}

// source is a storage backend that both lists and opens objects.
type source interface {
	collector
	extractor
}

// s3API is the subset of the S3 client used to read source objects.
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type fsSource struct{}

type s3Source struct {
	client s3API
}

type gcsSource struct {
	client *storage.Client
}

func (s *fsSource) extract(ctx context.Context, o Object) (io.Reader, func(), error) {
	f, err := os.Open(o.Name)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to open %s: %w", o.FullPath(), err)
	}

	return f, func() {
		if err := f.Close(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msgf("failed to close %s", o.FullPath())
		}
	}, nil
}

func (s *s3Source) extract(ctx context.Context, o Object) (io.Reader, func(), error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.Bucket),
		Key:    aws.String(o.Name),
	})
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to get %s: %w", o.FullPath(), err)
	}

	return out.Body, func() { out.Body.Close() }, nil
}

func (s *gcsSource) extract(ctx context.Context, o Object) (io.Reader, func(), error) {
	r, err := s.client.Bucket(o.Bucket).Object(o.Name).NewReader(ctx)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to get reader of %s: %w", o.FullPath(), err)
	}

	return r, func() { r.Close() }, nil
}
