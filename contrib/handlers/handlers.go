// Package handlers provides pre-configured sparkify handlers for the song
// metadata and activity log datasets.
package handlers

import (
	"context"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/xerrors"

	"go.nownabe.dev/sparkify"
)

const (
	// SongDataPrefix is the directory of song metadata files under a data root.
	SongDataPrefix = "song_data"

	// LogDataPrefix is the directory of activity log files under a data root.
	LogDataPrefix = "log_data"
)

// Destination is a loader which can resolve the songs it has loaded.
type Destination interface {
	sparkify.Loader
	sparkify.SongResolver
}

// SongData builds a *sparkify.Handler for song metadata files.
func SongData(name string, loader sparkify.Loader, notifier sparkify.Notifier) *sparkify.Handler {
	return &sparkify.Handler{
		Name:      name,
		Prefix:    SongDataPrefix,
		Encoding:  unicode.UTF8BOM,
		Parser:    sparkify.JSONLinesParser(),
		Projector: sparkify.SongProjector(),
		Loader:    loader,
		Notifier:  notifier,
	}
}

// LogData builds a *sparkify.Handler for every .json activity log file.
// Songs are resolved against dest.
func LogData(name string, dest Destination, notifier sparkify.Notifier) *sparkify.Handler {
	return &sparkify.Handler{
		Name:      name,
		Prefix:    LogDataPrefix,
		Encoding:  unicode.UTF8BOM,
		Parser:    sparkify.JSONLinesParser(),
		Projector: sparkify.LogProjector(dest),
		Loader:    dest,
		Notifier:  notifier,
	}
}

// MustAddHandlers adds handlers in order and panics on an invalid one.
func MustAddHandlers(ctx context.Context, etl sparkify.ETL, hs ...*sparkify.Handler) {
	for _, h := range hs {
		etl.MustAddHandler(ctx, h)
	}
}

// AddStarSchema adds the song handler and then the log handler, both loading into dest.
func AddStarSchema(ctx context.Context, etl sparkify.ETL, dest Destination, notifier sparkify.Notifier) error {
	for _, h := range []*sparkify.Handler{
		SongData("songs", dest, notifier),
		LogData("logs", dest, notifier),
	} {
		if err := etl.AddHandler(ctx, h); err != nil {
			return xerrors.Errorf("failed to add %s handler: %w", h.Name, err)
		}
	}

	return nil
}
