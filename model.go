package sparkify

import (
	"bytes"
	"strconv"

	"golang.org/x/xerrors"
)

// SongRecord is one line of a song metadata file.
type SongRecord struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`
}

// LogEvent is one line of an activity log file.
type LogEvent struct {
	Artist        string  `json:"artist"`
	Auth          string  `json:"auth"`
	FirstName     string  `json:"firstName"`
	Gender        string  `json:"gender"`
	ItemInSession int     `json:"itemInSession"`
	LastName      string  `json:"lastName"`
	Length        float64 `json:"length"`
	Level         string  `json:"level"`
	Location      string  `json:"location"`
	Method        string  `json:"method"`
	Page          string  `json:"page"`
	Registration  float64 `json:"registration"`
	SessionID     int64   `json:"sessionId"`
	Song          string  `json:"song"`
	Status        int     `json:"status"`
	TS            int64   `json:"ts"`
	UserAgent     string  `json:"userAgent"`
	UserID        UserID  `json:"userId"`
}

// UserID is a user ID encoded either as a JSON number or as a numeric string.
// Valid is false when the field is null or an empty string.
type UserID struct {
	ID    int64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *UserID) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*u = UserID{}
		return nil
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid userId %s: %w", b, err)
	}
	*u = UserID{ID: id, Valid: true}

	return nil
}

// Song is a row of the songs table.
type Song struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Artist is a row of the artists table.
type Artist struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// User is a row of the users table.
type User struct {
	UserID    int64
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// Time is a row of the time table. StartTime is in epoch milliseconds.
type Time struct {
	StartTime int64
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int
}

// Songplay is a row of the songplays table.
// SongID and ArtistID are nil when the played song is not in the catalog.
type Songplay struct {
	StartTime int64
	UserID    int64
	Level     string
	SongID    *string
	ArtistID  *string
	SessionID int64
	Location  string
	UserAgent string
}

// Batch holds the rows projected from one source object.
type Batch struct {
	Songs     []Song
	Artists   []Artist
	Users     []User
	Times     []Time
	Songplays []Songplay
}

// Len returns the total number of rows in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}

	return len(b.Songs) + len(b.Artists) + len(b.Users) + len(b.Times) + len(b.Songplays)
}

func (b *Batch) counts() map[string]int {
	return map[string]int{
		"songs":     len(b.Songs),
		"artists":   len(b.Artists),
		"users":     len(b.Users),
		"time":      len(b.Times),
		"songplays": len(b.Songplays),
	}
}
