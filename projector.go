package sparkify

import (
	"context"

	"golang.org/x/xerrors"
)

// Projector transforms the parsed records of one source object into rows for the destination tables.
type Projector func(context.Context, [][]byte) (*Batch, error)

// SongProjector provides a projector for song metadata files.
// Every record yields one song row and one artist row.
func SongProjector() Projector {
	return func(_ context.Context, lines [][]byte) (*Batch, error) {
		records, err := decodeLines[SongRecord](lines)
		if err != nil {
			return nil, xerrors.Errorf("failed to decode song records: %w", err)
		}

		b := &Batch{
			Songs:   make([]Song, 0, len(records)),
			Artists: make([]Artist, 0, len(records)),
		}
		for _, r := range records {
			s, a := ExtractSong(r)
			b.Songs = append(b.Songs, s)
			b.Artists = append(b.Artists, a)
		}

		return b, nil
	}
}

// LogProjector provides a projector for activity log files.
// Songs are looked up through resolver, which may be nil.
func LogProjector(resolver SongResolver) Projector {
	return func(ctx context.Context, lines [][]byte) (*Batch, error) {
		events, err := decodeLines[LogEvent](lines)
		if err != nil {
			return nil, xerrors.Errorf("failed to decode log events: %w", err)
		}

		return TransformLogs(ctx, events, resolver)
	}
}
