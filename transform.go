package sparkify

import (
	"context"
	"time"

	"golang.org/x/xerrors"
)

const nextSongPage = "NextSong"

// SongResolver finds the catalog IDs of a played song by exact title, artist name and duration.
// Both IDs are nil when nothing matches.
type SongResolver interface {
	ResolveSong(ctx context.Context, title, artist string, duration float64) (songID, artistID *string, err error)
}

// ExtractSong splits a song metadata record into its song and artist rows.
func ExtractSong(r SongRecord) (Song, Artist) {
	s := Song{
		SongID:   r.SongID,
		Title:    r.Title,
		ArtistID: r.ArtistID,
		Year:     r.Year,
		Duration: r.Duration,
	}

	a := Artist{
		ArtistID:  r.ArtistID,
		Name:      r.ArtistName,
		Location:  r.ArtistLocation,
		Latitude:  r.ArtistLatitude,
		Longitude: r.ArtistLongitude,
	}

	return s, a
}

// NewTime derives the time row of an epoch-millisecond timestamp in UTC.
// Week is the ISO week and Weekday counts from Monday = 0.
func NewTime(ts int64) Time {
	t := time.UnixMilli(ts).UTC()
	_, week := t.ISOWeek()

	return Time{
		StartTime: ts,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   (int(t.Weekday()) + 6) % 7,
	}
}

// TransformLogs projects the NextSong events of one log file into time, user and songplay rows.
// A nil resolver leaves every songplay unresolved.
func TransformLogs(ctx context.Context, events []LogEvent, resolver SongResolver) (*Batch, error) {
	b := &Batch{}
	seen := map[int64]struct{}{}

	for i, ev := range events {
		if ev.Page != nextSongPage {
			continue
		}

		if !ev.UserID.Valid {
			return nil, xerrors.Errorf("event %d at ts %d has no userId", i, ev.TS)
		}

		if _, ok := seen[ev.TS]; !ok {
			seen[ev.TS] = struct{}{}
			b.Times = append(b.Times, NewTime(ev.TS))
		}

		b.Users = append(b.Users, User{
			UserID:    ev.UserID.ID,
			FirstName: ev.FirstName,
			LastName:  ev.LastName,
			Gender:    ev.Gender,
			Level:     ev.Level,
		})

		var songID, artistID *string
		if resolver != nil {
			var err error
			songID, artistID, err = resolver.ResolveSong(ctx, ev.Song, ev.Artist, ev.Length)
			if err != nil {
				return nil, xerrors.Errorf("failed to resolve song %q by %q: %w", ev.Song, ev.Artist, err)
			}
		}

		b.Songplays = append(b.Songplays, Songplay{
			StartTime: ev.TS,
			UserID:    ev.UserID.ID,
			Level:     ev.Level,
			SongID:    songID,
			ArtistID:  artistID,
			SessionID: ev.SessionID,
			Location:  ev.Location,
			UserAgent: ev.UserAgent,
		})
	}

	return b, nil
}
