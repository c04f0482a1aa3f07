package sparkify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testSongLine = `{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": null, "artist_longitude": null, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`

const testLogLines = `{"artist":"Casual","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":0,"lastName":"Summers","length":218.93179,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"I Didn't Mean To","status":200,"ts":1541106106796,"userAgent":"Mozilla/5.0","userId":"8"}
{"artist":null,"auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":1,"lastName":"Summers","length":null,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"GET","page":"Home","registration":1540344794796.0,"sessionId":139,"song":null,"status":200,"ts":1541106352796,"userAgent":"Mozilla/5.0","userId":"8"}
{"artist":"Des'ree","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":2,"lastName":"Summers","length":246.30812,"level":"paid","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"You Gotta Be","status":200,"ts":1541106496796,"userAgent":"Mozilla/5.0","userId":8}
`

func TestETL_Handle(t *testing.T) {
	tl := newTestLoader()
	tn := newTestNotifier()

	handler := &Handler{
		Name:      "test-handle",
		Prefix:    "log_data",
		Projector: LogProjector(nil),
		Loader:    tl,
		Notifier:  tn,
		extractor: newTestExtractor(),
	}

	ctx := context.Background()

	etl, err := New(WithPrettyLogging(), WithLogLevel("debug"), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	etl.MustAddHandler(ctx, handler)

	o := Object{Name: "data/log_data/2018/11/2018-11-01-events.json", source: bytes.NewBufferString(testLogLines)}

	if err := etl.Handle(ctx, o); err != nil {
		t.Fatal(err)
	}

	if len(tl.batches) != 1 {
		t.Fatalf("loader should be called once, but %d times", len(tl.batches))
	}

	b := tl.batches[0]

	if len(b.Songplays) != 2 {
		t.Fatalf("Size of songplays should be 2, but %d", len(b.Songplays))
	}

	if len(b.Users) != 2 {
		t.Errorf("Size of users should be 2, but %d", len(b.Users))
	}

	if len(b.Times) != 2 {
		t.Errorf("Size of time rows should be 2, but %d", len(b.Times))
	}

	if b.Users[1].Level != "paid" {
		t.Errorf(`users[1].Level should be "paid", but "%s"`, b.Users[1].Level)
	}

	if len(tn.results) != 1 || tn.results[0].Error != nil {
		t.Errorf("notifier should receive one successful result, but %+v", tn.results)
	}

	if got := testutil.ToFloat64(filesProcessed.WithLabelValues("test-handle")); got != 1 {
		t.Errorf("files processed should be 1, but %v", got)
	}
}

func TestETL_Handle_error(t *testing.T) {
	projector := func(context.Context, [][]byte) (*Batch, error) {
		return nil, errors.New("projector error")
	}

	tn := newTestNotifier()

	handler := &Handler{
		Name:      "test-handle-error",
		Projector: projector,
		Loader:    newTestLoader(),
		Notifier:  tn,
		extractor: newTestExtractor(),
	}

	ctx := context.Background()

	etl, err := New(WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	etl.MustAddHandler(ctx, handler)

	o := Object{Name: "test/name.json", source: bytes.NewBufferString("{}")}

	if err := etl.Handle(ctx, o); err == nil {
		t.Error("expected error but no error occurred")
	}

	if len(tn.results) != 1 || tn.results[0].Error == nil {
		t.Errorf("notifier should receive the error, but %+v", tn.results)
	}
}

func TestETL_Handle_noHandler(t *testing.T) {
	ctx := context.Background()

	etl, err := New(WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	etl.MustAddHandler(ctx, &Handler{
		Name:      "songs",
		Prefix:    "song_data",
		Projector: SongProjector(),
		Loader:    newTestLoader(),
	})

	err = etl.Handle(ctx, Object{Name: "data/log_data/a.json"})
	if !errors.Is(err, ErrNoHandler) {
		t.Errorf("expected ErrNoHandler, but %v", err)
	}
}

func TestETL_AddHandler_invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]*Handler{
		"nil":          nil,
		"no name":      {Projector: SongProjector(), Loader: newTestLoader()},
		"no projector": {Name: "h", Loader: newTestLoader()},
		"no loader":    {Name: "h", Projector: SongProjector()},
	}

	for name, h := range cases {
		h := h
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			etl, err := New(WithLogOutput(io.Discard))
			if err != nil {
				t.Fatal(err)
			}

			if err := etl.AddHandler(context.Background(), h); !errors.Is(err, ErrInvalidHandler) {
				t.Errorf("expected ErrInvalidHandler, but %v", err)
			}
		})
	}
}

func TestNew_invalidLogLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(WithLogLevel("loud")); err == nil {
		t.Error("expected error but no error occurred")
	}
}

func TestETL_Run(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "song_data", "A", "B", "C", "TRABCEI128F424C983.json"), testSongLine)
	writeTestFile(t, filepath.Join(root, "song_data", "A", "B", "C", "README.txt"), "not a song")
	writeTestFile(t, filepath.Join(root, "log_data", "2018", "11", "2018-11-01-events.json"), testLogLines)

	tl := newTestLoader()
	resolver := &testResolver{songs: map[string][2]string{}}

	// The resolver learns songs from loaded batches, so log events see songs loaded earlier in the run.
	loader := LoaderFunc(func(ctx context.Context, b *Batch) error {
		for _, s := range b.Songs {
			resolver.songs[s.Title] = [2]string{s.SongID, s.ArtistID}
		}
		return tl.Load(ctx, b)
	})

	ctx := context.Background()

	etl, err := New(WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	etl.MustAddHandler(ctx, &Handler{Name: "run-songs", Prefix: "song_data", Projector: SongProjector(), Loader: loader})
	etl.MustAddHandler(ctx, &Handler{Name: "run-logs", Prefix: "log_data", Projector: LogProjector(resolver), Loader: loader})

	if err := etl.Run(ctx, root); err != nil {
		t.Fatal(err)
	}

	if len(tl.batches) != 2 {
		t.Fatalf("loader should be called twice, but %d times", len(tl.batches))
	}

	if len(tl.batches[0].Songs) != 1 || len(tl.batches[0].Artists) != 1 {
		t.Errorf("first batch should hold one song and one artist, but %+v", tl.batches[0])
	}

	plays := tl.batches[1].Songplays
	if len(plays) != 2 {
		t.Fatalf("Size of songplays should be 2, but %d", len(plays))
	}

	if plays[0].SongID == nil || *plays[0].SongID != "SOMZWCG12A8C13C480" {
		t.Errorf("songplays[0] should be resolved, but %+v", plays[0])
	}

	if plays[1].SongID != nil || plays[1].ArtistID != nil {
		t.Errorf("songplays[1] should be unresolved, but %+v", plays[1])
	}

	if got := testutil.ToFloat64(filesProcessed.WithLabelValues("run-songs")); got != 1 {
		t.Errorf("files processed by run-songs should be 1, but %v", got)
	}

	if got := testutil.ToFloat64(filesProcessed.WithLabelValues("run-logs")); got != 1 {
		t.Errorf("files processed by run-logs should be 1, but %v", got)
	}
}

func TestETL_Run_missingRoot(t *testing.T) {
	tn := newTestNotifier()

	ctx := context.Background()

	etl, err := New(WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	etl.MustAddHandler(ctx, &Handler{Name: "h", Prefix: "song_data", Projector: SongProjector(), Loader: newTestLoader(), Notifier: tn})

	if err := etl.Run(ctx, filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Fatal(err)
	}

	if len(tn.results) != 1 || tn.results[0].Files != 0 {
		t.Errorf("notifier should receive a result with no files, but %+v", tn.results)
	}
}

func TestETL_Run_unsupportedScheme(t *testing.T) {
	t.Parallel()

	etl, err := New(WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}

	if err := etl.Run(context.Background(), "ftp://example.com/data"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("expected ErrUnsupportedScheme, but %v", err)
	}
}

func TestETL_Run_s3(t *testing.T) {
	client := &testS3Client{objects: map[string]string{
		"udacity/song_data/A/A/A/TRAAAAW128F429D538.json": testSongLine,
		"udacity/song_data/A/A/A/notes.txt":               "skip",
	}}

	tl := newTestLoader()

	ctx := context.Background()

	e, err := New(WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	e.(*etl).sources[schemeS3] = &s3Source{client: client}
	e.MustAddHandler(ctx, &Handler{Name: "s3-songs", Prefix: "song_data", Projector: SongProjector(), Loader: tl})

	if err := e.Run(ctx, "s3://bucket/udacity"); err != nil {
		t.Fatal(err)
	}

	if client.listedPrefix != "udacity/song_data" {
		t.Errorf(`listed prefix should be "udacity/song_data", but %q`, client.listedPrefix)
	}

	if len(tl.batches) != 1 || tl.batches[0].Songs[0].SongID != "SOMZWCG12A8C13C480" {
		t.Errorf("unexpected batches: %+v", tl.batches)
	}
}

func writeTestFile(t *testing.T, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

type testExtractor struct{}

func newTestExtractor() extractor {
	return &testExtractor{}
}

func (e *testExtractor) extract(_ context.Context, o Object) (io.Reader, func(), error) {
	return o.source, func() {}, nil
}

type testLoader struct {
	batches []*Batch
}

func newTestLoader() *testLoader {
	return &testLoader{}
}

func (l *testLoader) Load(_ context.Context, b *Batch) error {
	l.batches = append(l.batches, b)
	return nil
}

type testNotifier struct {
	results []*Result
}

func newTestNotifier() *testNotifier {
	return &testNotifier{}
}

func (n *testNotifier) Notify(_ context.Context, r *Result) error {
	n.results = append(n.results, r)
	return nil
}

type testResolver struct {
	songs map[string][2]string
}

func (r *testResolver) ResolveSong(_ context.Context, title, _ string, _ float64) (*string, *string, error) {
	ids, ok := r.songs[title]
	if !ok {
		return nil, nil, nil
	}

	return &ids[0], &ids[1], nil
}

type testS3Client struct {
	objects      map[string]string
	listedPrefix string
}

func (c *testS3Client) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	c.listedPrefix = aws.ToString(in.Prefix)

	out := &s3.ListObjectsV2Output{}
	for k := range c.objects {
		if strings.HasPrefix(k, c.listedPrefix) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}

	return out, nil
}

func (c *testS3Client) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}
