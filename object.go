package sparkify

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

const (
	schemeS3  = "s3"
	schemeGCS = "gs"
)

// Object is a source file on the local filesystem or in a storage bucket.
type Object struct {
	// Scheme is empty for local files, "s3" for Amazon S3 or "gs" for Cloud Storage.
	Scheme string
	Bucket string
	Name   string

	// for test
	source io.Reader
}

// FullPath returns the location of the object.
func (o *Object) FullPath() string {
	if o.Scheme == "" {
		return o.Name
	}

	return fmt.Sprintf("%s://%s/%s", o.Scheme, o.Bucket, o.Name)
}

// Location is a parsed data root such as "data", "s3://bucket/prefix" or "gs://bucket/prefix".
type Location struct {
	Scheme string
	Bucket string
	Path   string
}

// ParseLocation parses a local path or a bucket URI.
func ParseLocation(root string) (Location, error) {
	if !strings.Contains(root, "://") {
		return Location{Path: root}, nil
	}

	u, err := url.Parse(root)
	if err != nil {
		return Location{}, xerrors.Errorf("failed to parse %s: %w", root, err)
	}

	switch u.Scheme {
	case "file":
		return Location{Path: u.Path}, nil
	case schemeS3, schemeGCS:
		if u.Host == "" {
			return Location{}, xerrors.Errorf("bucket is missing in %s", root)
		}

		return Location{Scheme: u.Scheme, Bucket: u.Host, Path: strings.TrimPrefix(u.Path, "/")}, nil
	default:
		return Location{}, xerrors.Errorf("%s: %w", root, ErrUnsupportedScheme)
	}
}

// Join returns the location of the child directory or key prefix.
func (l Location) Join(elem string) Location {
	if elem == "" {
		return l
	}

	if l.Scheme == "" {
		l.Path = filepath.Join(l.Path, elem)
		return l
	}

	p := strings.Trim(elem, "/")
	if l.Path != "" {
		p = strings.TrimSuffix(l.Path, "/") + "/" + p
	}
	l.Path = p

	return l
}

func (l Location) String() string {
	if l.Scheme == "" {
		return l.Path
	}

	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Path)
}
