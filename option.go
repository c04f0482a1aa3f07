package sparkify

import (
	"io"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Option configures ETL.
type Option interface {
	apply(*etl) error
}

type optionFunc func(*etl) error

func (f optionFunc) apply(l *etl) error {
	return f(l)
}

// WithPrettyLogging configures ETL to print human friendly logs.
func WithPrettyLogging() Option {
	return optionFunc(func(l *etl) error {
		l.prettyLogging = true
		return nil
	})
}

// WithLogLevel configures the minimum level of logs, e.g. "debug" or "warn".
func WithLogLevel(level string) Option {
	return optionFunc(func(l *etl) error {
		lv, err := zerolog.ParseLevel(level)
		if err != nil {
			return xerrors.Errorf("invalid log level %q: %w", level, err)
		}
		l.logLevel = lv

		return nil
	})
}

// WithLogOutput configures where logs are written. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return optionFunc(func(l *etl) error {
		l.output = w
		return nil
	})
}

// WithS3Client configures the client used for s3:// data roots.
func WithS3Client(c *s3.Client) Option {
	return optionFunc(func(l *etl) error {
		if c != nil {
			l.s3Client = c
		}

		return nil
	})
}

// WithGCSClient configures the client used for gs:// data roots.
func WithGCSClient(c *storage.Client) Option {
	return optionFunc(func(l *etl) error {
		l.gcsClient = c
		return nil
	})
}
