package sparkify

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"
)

const defaultExtension = ".json"

// Handler defines how to extract, transform and load one kind of source file.
type Handler struct {
	// Name is the handler's name used in logs, metrics and notifications.
	Name string

	// Prefix is the directory or key prefix under the data root holding the handler's files,
	// e.g. "song_data".
	Prefix string

	// Extension filters source files by suffix. Defaults to ".json".
	Extension string

	// Pattern optionally restricts the handled objects further by their full path.
	Pattern *regexp.Regexp

	Encoding  encoding.Encoding
	Parser    Parser
	Projector Projector
	Loader    Loader
	Notifier  Notifier

	extractor extractor
}

func (h *Handler) extension() string {
	if h.Extension == "" {
		return defaultExtension
	}

	return h.Extension
}

func (h *Handler) accept(o Object) bool {
	return h.Pattern == nil || h.Pattern.MatchString(o.FullPath())
}

func (h *Handler) match(o Object) bool {
	if !strings.HasSuffix(o.Name, h.extension()) || !h.accept(o) {
		return false
	}

	if h.Prefix == "" {
		return true
	}

	name := "/" + filepath.ToSlash(o.Name)
	prefix := "/" + strings.Trim(filepath.ToSlash(h.Prefix), "/") + "/"

	return strings.Contains(name, prefix)
}

func (h *Handler) handle(ctx context.Context, o Object, ex extractor) error {
	l := log.Ctx(ctx)

	if h.extractor != nil {
		ex = h.extractor
	}

	r, closer, err := ex.extract(ctx, o)
	if err != nil {
		return xerrors.Errorf("failed to extract: %w", err)
	}
	defer closer()

	if h.Encoding != nil {
		r = transform.NewReader(r, h.Encoding.NewDecoder())
	}

	records, err := h.Parser(ctx, r)
	if err != nil {
		l.Error().Err(err).Msgf("failed to parse %s", o.FullPath())
		return xerrors.Errorf("failed to parse %s: %w", o.FullPath(), err)
	}

	batch, err := h.Projector(ctx, records)
	if err != nil {
		l.Error().Err(err).Msgf("failed to project %s", o.FullPath())
		return xerrors.Errorf("failed to project %s: %w", o.FullPath(), err)
	}

	if batch.Len() == 0 {
		l.Debug().Msgf("no rows projected from %s", o.FullPath())
		return nil
	}

	if err := h.Loader.Load(ctx, batch); err != nil {
		return xerrors.Errorf("failed to load %s: %w", o.FullPath(), err)
	}

	for table, n := range batch.counts() {
		rowsProjected.WithLabelValues(table).Add(float64(n))
	}

	return nil
}
