package store_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.nownabe.dev/sparkify"
	"go.nownabe.dev/sparkify/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	ctx := context.Background()

	st, err := store.Open(ctx, store.SQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.CreateTables(ctx); err != nil {
		t.Fatal(err)
	}

	return st
}

func count(t *testing.T, st *store.Store, query string, args ...any) int {
	t.Helper()

	var n int
	if err := st.DB().QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("failed to count with %q: %v", query, err)
	}

	return n
}

func strp(s string) *string { return &s }

func TestStore_Load_idempotent(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	lat := 35.14968
	b := &sparkify.Batch{
		Songs:   []sparkify.Song{{SongID: "SO1", Title: "S", ArtistID: "AR1", Year: 2000, Duration: 218.93179}},
		Artists: []sparkify.Artist{{ArtistID: "AR1", Name: "A", Location: "LA", Latitude: &lat}},
		Times:   []sparkify.Time{sparkify.NewTime(1541106106796)},
		Users:   []sparkify.User{{UserID: 8, FirstName: "Kaylee", LastName: "Summers", Gender: "F", Level: "free"}},
		Songplays: []sparkify.Songplay{
			{StartTime: 1541106106796, UserID: 8, Level: "free", SongID: strp("SO1"), ArtistID: strp("AR1"), SessionID: 139},
			{StartTime: 1541106106796, UserID: 8, Level: "free", SessionID: 139},
		},
	}

	for i := 0; i < 2; i++ {
		if err := st.Load(ctx, b); err != nil {
			t.Fatalf("load #%d failed: %v", i, err)
		}
	}

	for table, expect := range map[string]int{"songs": 1, "artists": 1, "time": 1, "users": 1, "songplays": 2} {
		if n := count(t, st, "SELECT COUNT(*) FROM "+table); n != expect {
			t.Errorf("%s should have %d rows, but %d", table, expect, n)
		}
	}

	if n := count(t, st, "SELECT COUNT(*) FROM artists WHERE longitude IS NULL AND latitude = $1", lat); n != 1 {
		t.Errorf("artist should keep latitude and a NULL longitude")
	}

	if n := count(t, st, "SELECT COUNT(*) FROM time WHERE hour = 21 AND week = 44 AND weekday = 3"); n != 1 {
		t.Errorf("time row should hold derived components")
	}
}

func TestStore_Load_upsert(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	first := &sparkify.Batch{
		Songs:     []sparkify.Song{{SongID: "SO1", Title: "old", ArtistID: "AR1"}},
		Users:     []sparkify.User{{UserID: 8, FirstName: "Kaylee", Level: "free"}},
		Songplays: []sparkify.Songplay{{StartTime: 1000, UserID: 8, Level: "free", SessionID: 1, Location: "A", UserAgent: "B"}},
	}
	second := &sparkify.Batch{
		Songs:     []sparkify.Song{{SongID: "SO1", Title: "new", ArtistID: "AR1"}},
		Users:     []sparkify.User{{UserID: 8, FirstName: "Kaylee", Level: "paid"}},
		Songplays: []sparkify.Songplay{{StartTime: 1000, UserID: 8, Level: "paid", SessionID: 2, Location: "C", UserAgent: "D"}},
	}

	for _, b := range []*sparkify.Batch{first, second} {
		if err := st.Load(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	if n := count(t, st, "SELECT COUNT(*) FROM songs WHERE title = 'old'"); n != 1 {
		t.Error("songs should keep the first row")
	}

	if n := count(t, st, "SELECT COUNT(*) FROM users WHERE level = 'paid'"); n != 1 {
		t.Error("users should take the last row")
	}

	if n := count(t, st, "SELECT COUNT(*) FROM songplays"); n != 1 {
		t.Errorf("songplays should have 1 row, but %d", n)
	}

	if n := count(t, st,
		"SELECT COUNT(*) FROM songplays WHERE level = 'paid' AND session_id = 2 AND location = 'C' AND user_agent = 'D'"); n != 1 {
		t.Error("songplay should take the last level, session, location and user agent")
	}
}

func TestStore_ResolveSong(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	b := &sparkify.Batch{
		Songs:   []sparkify.Song{{SongID: "SO1", Title: "S", ArtistID: "AR1", Duration: 218.93179}},
		Artists: []sparkify.Artist{{ArtistID: "AR1", Name: "A"}},
	}
	if err := st.Load(ctx, b); err != nil {
		t.Fatal(err)
	}

	songID, artistID, err := st.ResolveSong(ctx, "S", "A", 218.93179)
	if err != nil {
		t.Fatal(err)
	}

	if songID == nil || *songID != "SO1" || artistID == nil || *artistID != "AR1" {
		t.Errorf("expected (SO1, AR1), but (%v, %v)", songID, artistID)
	}

	cases := []struct {
		title, artist string
		duration      float64
	}{
		{"S", "A", 218.9},
		{"S", "B", 218.93179},
		{"T", "A", 218.93179},
	}

	for _, c := range cases {
		songID, artistID, err := st.ResolveSong(ctx, c.title, c.artist, c.duration)
		if err != nil {
			t.Fatal(err)
		}

		if songID != nil || artistID != nil {
			t.Errorf("%+v should not resolve, but (%v, %v)", c, songID, artistID)
		}
	}
}

func TestStore_DropTables(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	if err := st.DropTables(ctx); err != nil {
		t.Fatal(err)
	}

	if n := count(t, st, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('songs', 'artists', 'users', 'time', 'songplays')"); n != 0 {
		t.Errorf("all tables should be dropped, but %d remain", n)
	}

	if err := st.CreateTables(ctx); err != nil {
		t.Fatalf("tables should be recreated: %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"postgres", "postgresql", "sqlite", "sqlite3"} {
		if _, err := store.DialectFor(name); err != nil {
			t.Errorf("%s should be a known dialect: %v", name, err)
		}
	}

	if _, err := store.DialectFor("mysql"); err == nil {
		t.Error("expected error but no error occurred")
	}
}

func TestETL_withStore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "song_data", "A", "A", "A", "TRAAAAW128F429D538.json"),
		`{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": null, "artist_longitude": null, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`)
	writeFile(t, filepath.Join(root, "log_data", "2018", "11", "2018-11-01-events.json"),
		`{"artist":"Casual","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":0,"lastName":"Summers","length":218.93179,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"I Didn't Mean To","status":200,"ts":1541106106796,"userAgent":"Mozilla/5.0","userId":"8"}
{"artist":"Des'ree","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":1,"lastName":"Summers","length":246.30812,"level":"paid","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"You Gotta Be","status":200,"ts":1541106496796,"userAgent":"Mozilla/5.0","userId":"8"}`)

	st := newTestStore(t)
	ctx := context.Background()

	etl, err := sparkify.New(sparkify.WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	etl.MustAddHandler(ctx, &sparkify.Handler{Name: "store-songs", Prefix: "song_data", Projector: sparkify.SongProjector(), Loader: st})
	etl.MustAddHandler(ctx, &sparkify.Handler{Name: "store-logs", Prefix: "log_data", Projector: sparkify.LogProjector(st), Loader: st})

	for i := 0; i < 2; i++ {
		if err := etl.Run(ctx, root); err != nil {
			t.Fatal(err)
		}
	}

	if n := count(t, st, "SELECT COUNT(*) FROM songplays"); n != 2 {
		t.Errorf("songplays should have 2 rows, but %d", n)
	}

	if n := count(t, st, "SELECT COUNT(*) FROM songplays WHERE song_id = 'SOMZWCG12A8C13C480' AND artist_id = 'ARD7TVE1187B99BFB1'"); n != 1 {
		t.Error("the first play should resolve to the loaded song")
	}

	if n := count(t, st, "SELECT COUNT(*) FROM songplays WHERE song_id IS NULL AND artist_id IS NULL"); n != 1 {
		t.Error("the second play should be unresolved")
	}

	if n := count(t, st, "SELECT COUNT(*) FROM users WHERE user_id = 8 AND level = 'paid'"); n != 1 {
		t.Error("user 8 should end up paid")
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
