package sparkify

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

var (
	// ErrNoHandler is returned by Handle when no handler matches an object.
	ErrNoHandler = errors.New("no handler matched")

	// ErrInvalidHandler is returned by AddHandler for incomplete handlers.
	ErrInvalidHandler = errors.New("invalid handler")

	// ErrUnsupportedScheme is returned for data roots other than local paths, s3:// and gs://.
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// ETL runs registered handlers over source files and loads what they project.
type ETL interface {
	AddHandler(context.Context, *Handler) error
	MustAddHandler(context.Context, *Handler)
	Run(ctx context.Context, root string) error
	Handle(context.Context, Object) error
}

type etl struct {
	handlers []*Handler
	sources  map[string]source

	s3Client  s3API
	gcsClient *storage.Client

	output        io.Writer
	logLevel      zerolog.Level
	prettyLogging bool
	logger        zerolog.Logger
}

// New builds a new ETL.
func New(opts ...Option) (ETL, error) {
	l := &etl{
		handlers: []*Handler{},
		sources:  map[string]source{"": &fsSource{}},
		output:   os.Stderr,
		logLevel: zerolog.InfoLevel,
	}

	for _, opt := range opts {
		if err := opt.apply(l); err != nil {
			return nil, xerrors.Errorf("failed to apply option: %w", err)
		}
	}

	var w io.Writer = l.output
	if l.prettyLogging {
		w = zerolog.ConsoleWriter{Out: l.output}
	}
	l.logger = zerolog.New(w).Level(l.logLevel).With().Timestamp().Logger()

	return l, nil
}

// AddHandler adds a handler. Handlers run in the order they were added.
func (l *etl) AddHandler(ctx context.Context, h *Handler) error {
	if h == nil || h.Name == "" {
		return xerrors.Errorf("handler name is required: %w", ErrInvalidHandler)
	}

	if h.Projector == nil {
		return xerrors.Errorf("%s: projector is required: %w", h.Name, ErrInvalidHandler)
	}

	if h.Loader == nil {
		return xerrors.Errorf("%s: loader is required: %w", h.Name, ErrInvalidHandler)
	}

	if h.Parser == nil {
		h.Parser = JSONLinesParser()
	}

	l.handlers = append(l.handlers, h)

	return nil
}

// MustAddHandler adds a handler and panics if it is invalid.
func (l *etl) MustAddHandler(ctx context.Context, h *Handler) {
	if err := l.AddHandler(ctx, h); err != nil {
		panic(err)
	}
}

// Run processes every file under root, one handler after another.
func (l *etl) Run(ctx context.Context, root string) error {
	ctx = l.newRunContext(ctx)
	logger := log.Ctx(ctx)

	loc, err := ParseLocation(root)
	if err != nil {
		return xerrors.Errorf("invalid data root: %w", err)
	}

	src, err := l.sourceFor(ctx, loc.Scheme)
	if err != nil {
		return err
	}

	logger.Info().Str("root", loc.String()).Msg("etl started")

	for _, h := range l.handlers {
		n, err := l.runHandler(ctx, src, loc, h)
		l.notify(ctx, &Result{Handler: h, Location: loc.Join(h.Prefix).String(), Files: n, Error: err})

		if err != nil {
			logger.Error().Err(err).Str("handler", h.Name).Msg("etl failed")
			return xerrors.Errorf("handler %s failed: %w", h.Name, err)
		}
	}

	if t, ok := startedTimeFrom(ctx); ok {
		logger.Info().Dur("elapsed", time.Since(t)).Msg("etl finished")
	}

	return nil
}

func (l *etl) runHandler(ctx context.Context, src source, root Location, h *Handler) (int, error) {
	logger := log.Ctx(ctx).With().Str("handler", h.Name).Logger()
	ctx = logger.WithContext(ctx)

	dir := root.Join(h.Prefix)

	objs, err := src.collect(ctx, dir, h.extension())
	if err != nil {
		return 0, xerrors.Errorf("failed to collect files: %w", err)
	}

	files := make([]Object, 0, len(objs))
	for _, o := range objs {
		if h.accept(o) {
			files = append(files, o)
		}
	}

	logger.Info().Msgf("%d files found in %s", len(files), dir)

	for i, o := range files {
		if err := h.handle(ctx, o, src); err != nil {
			return i, err
		}

		filesProcessed.WithLabelValues(h.Name).Inc()
		logger.Info().Msgf("%d/%d files processed.", i+1, len(files))
	}

	return len(files), nil
}

// Handle processes a single object through every handler matching it.
func (l *etl) Handle(ctx context.Context, o Object) error {
	ctx = l.newRunContext(ctx)
	logger := log.Ctx(ctx)

	src, err := l.sourceFor(ctx, o.Scheme)
	if err != nil {
		return err
	}

	matched := false

	for _, h := range l.handlers {
		if !h.match(o) {
			continue
		}
		matched = true

		hctx := logger.With().Str("handler", h.Name).Logger().WithContext(ctx)
		err := h.handle(hctx, o, src)
		l.notify(hctx, &Result{Handler: h, Location: o.FullPath(), Files: 1, Error: err})

		if err != nil {
			return xerrors.Errorf("handler %s failed: %w", h.Name, err)
		}

		filesProcessed.WithLabelValues(h.Name).Inc()
	}

	if !matched {
		logger.Warn().Msgf("no handler matched %s", o.FullPath())
		return xerrors.Errorf("%s: %w", o.FullPath(), ErrNoHandler)
	}

	return nil
}

func (l *etl) newRunContext(ctx context.Context) context.Context {
	id := uuid.NewString()
	logger := l.logger.With().Str("run_id", id).Logger()

	ctx = withRunID(ctx, id)
	ctx = withStartedTime(ctx)

	return logger.WithContext(ctx)
}

func (l *etl) notify(ctx context.Context, r *Result) {
	if r.Handler.Notifier == nil {
		return
	}

	if err := r.Handler.Notifier.Notify(ctx, r); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to notify")
	}
}

func (l *etl) sourceFor(ctx context.Context, scheme string) (source, error) {
	if s, ok := l.sources[scheme]; ok {
		return s, nil
	}

	var s source

	switch scheme {
	case schemeS3:
		c := l.s3Client
		if c == nil {
			cfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, xerrors.Errorf("failed to load aws config: %w", err)
			}
			c = s3.NewFromConfig(cfg)
		}
		s = &s3Source{client: c}
	case schemeGCS:
		c := l.gcsClient
		if c == nil {
			var err error
			c, err = storage.NewClient(ctx)
			if err != nil {
				return nil, xerrors.Errorf("failed to build storage client: %w", err)
			}
		}
		s = &gcsSource{client: c}
	default:
		return nil, xerrors.Errorf("%s: %w", scheme, ErrUnsupportedScheme)
	}

	l.sources[scheme] = s

	return s, nil
}
