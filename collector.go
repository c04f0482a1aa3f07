package sparkify

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/xerrors"
	"google.golang.org/api/iterator"
)

// collector enumerates source objects under a location.
type collector interface {
	collect(ctx context.Context, loc Location, ext string) ([]Object, error)
}

// CollectFiles returns the absolute paths of all files under root whose names end with ext,
// sorted. A missing root yields an empty list.
func CollectFiles(root, ext string) ([]string, error) {
	files := []string{}

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return files, nil
		}

		return nil, xerrors.Errorf("failed to stat %s: %w", root, err)
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		files = append(files, abs)

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(files)

	return files, nil
}

func (s *fsSource) collect(_ context.Context, loc Location, ext string) ([]Object, error) {
	files, err := CollectFiles(loc.Path, ext)
	if err != nil {
		return nil, err
	}

	objs := make([]Object, len(files))
	for i, f := range files {
		objs[i] = Object{Name: f}
	}

	return objs, nil
}

func (s *s3Source) collect(ctx context.Context, loc Location, ext string) ([]Object, error) {
	objs := []Object{}

	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(loc.Bucket),
		Prefix: aws.String(loc.Path),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, xerrors.Errorf("failed to list objects in %s: %w", loc, err)
		}

		for _, o := range page.Contents {
			key := aws.ToString(o.Key)
			if strings.HasSuffix(key, ext) {
				objs = append(objs, Object{Scheme: schemeS3, Bucket: loc.Bucket, Name: key})
			}
		}
	}

	sort.Slice(objs, func(i, j int) bool { return objs[i].Name < objs[j].Name })

	return objs, nil
}

func (s *gcsSource) collect(ctx context.Context, loc Location, ext string) ([]Object, error) {
	objs := []Object{}

	it := s.client.Bucket(loc.Bucket).Objects(ctx, &storage.Query{Prefix: loc.Path})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("failed to list objects in %s: %w", loc, err)
		}

		if strings.HasSuffix(attrs.Name, ext) {
			objs = append(objs, Object{Scheme: schemeGCS, Bucket: loc.Bucket, Name: attrs.Name})
		}
	}

	sort.Slice(objs, func(i, j int) bool { return objs[i].Name < objs[j].Name })

	return objs, nil
}
