package warehouse

import (
	"cloud.google.com/go/bigquery"
)

// Staging columns keep the field names of the source JSON.
var stagingSchemas = map[string]bigquery.Schema{
	"staging_events": {
		{Name: "artist", Type: bigquery.StringFieldType},
		{Name: "auth", Type: bigquery.StringFieldType},
		{Name: "firstName", Type: bigquery.StringFieldType},
		{Name: "gender", Type: bigquery.StringFieldType},
		{Name: "itemInSession", Type: bigquery.IntegerFieldType},
		{Name: "lastName", Type: bigquery.StringFieldType},
		{Name: "length", Type: bigquery.FloatFieldType},
		{Name: "level", Type: bigquery.StringFieldType},
		{Name: "location", Type: bigquery.StringFieldType},
		{Name: "method", Type: bigquery.StringFieldType},
		{Name: "page", Type: bigquery.StringFieldType},
		{Name: "registration", Type: bigquery.FloatFieldType},
		{Name: "sessionId", Type: bigquery.IntegerFieldType},
		{Name: "song", Type: bigquery.StringFieldType},
		{Name: "status", Type: bigquery.IntegerFieldType},
		{Name: "ts", Type: bigquery.IntegerFieldType},
		{Name: "userAgent", Type: bigquery.StringFieldType},
		// Numbers and numeric strings both load as STRING.
		{Name: "userId", Type: bigquery.StringFieldType},
	},
	"staging_songs": {
		{Name: "num_songs", Type: bigquery.IntegerFieldType},
		{Name: "artist_id", Type: bigquery.StringFieldType},
		{Name: "artist_latitude", Type: bigquery.FloatFieldType},
		{Name: "artist_longitude", Type: bigquery.FloatFieldType},
		{Name: "artist_location", Type: bigquery.StringFieldType},
		{Name: "artist_name", Type: bigquery.StringFieldType},
		{Name: "song_id", Type: bigquery.StringFieldType},
		{Name: "title", Type: bigquery.StringFieldType},
		{Name: "duration", Type: bigquery.FloatFieldType},
		{Name: "year", Type: bigquery.IntegerFieldType},
	},
}

var bigQueryCreate = []string{
	"CREATE TABLE IF NOT EXISTS songplays (songplay_id STRING NOT NULL, start_time INT64 NOT NULL, user_id INT64 NOT NULL, " +
		"level STRING, song_id STRING, artist_id STRING, session_id INT64, location STRING, user_agent STRING)",
	"CREATE TABLE IF NOT EXISTS users (user_id INT64 NOT NULL, first_name STRING, last_name STRING, gender STRING, level STRING)",
	"CREATE TABLE IF NOT EXISTS songs (song_id STRING NOT NULL, title STRING, artist_id STRING, year INT64, duration FLOAT64)",
	"CREATE TABLE IF NOT EXISTS artists (artist_id STRING NOT NULL, name STRING, location STRING, latitude FLOAT64, longitude FLOAT64)",
	"CREATE TABLE IF NOT EXISTS `time` (start_time INT64 NOT NULL, hour INT64, day INT64, week INT64, month INT64, year INT64, weekday INT64)",
}

var bigQuerySteps = []Step{
	{
		Table: "songplays",
		SQL: `SELECT GENERATE_UUID(), e.ts, SAFE_CAST(e.userId AS INT64), e.level, s.song_id, s.artist_id, e.sessionId, e.location, e.userAgent
FROM staging_events e
LEFT JOIN (
	SELECT DISTINCT song_id, artist_id, title, artist_name, duration FROM staging_songs
) s ON e.song = s.title AND e.artist = s.artist_name AND e.length = s.duration
WHERE e.page = 'NextSong' AND SAFE_CAST(e.userId AS INT64) IS NOT NULL`,
	},
	{
		Table: "users",
		SQL: `SELECT SAFE_CAST(userId AS INT64), firstName, lastName, gender, level
FROM staging_events
WHERE page = 'NextSong' AND SAFE_CAST(userId AS INT64) IS NOT NULL
QUALIFY ROW_NUMBER() OVER (PARTITION BY userId ORDER BY ts DESC) = 1`,
	},
	{
		Table: "songs",
		SQL: `SELECT song_id, title, artist_id, year, duration
FROM staging_songs
WHERE song_id IS NOT NULL
QUALIFY ROW_NUMBER() OVER (PARTITION BY song_id ORDER BY title) = 1`,
	},
	{
		Table: "artists",
		SQL: `SELECT artist_id, artist_name, artist_location, artist_latitude, artist_longitude
FROM staging_songs
WHERE artist_id IS NOT NULL
QUALIFY ROW_NUMBER() OVER (PARTITION BY artist_id ORDER BY artist_name) = 1`,
	},
	{
		Table: "`time`",
		SQL: `SELECT ts,
	EXTRACT(HOUR FROM t),
	EXTRACT(DAY FROM t),
	EXTRACT(ISOWEEK FROM t),
	EXTRACT(MONTH FROM t),
	EXTRACT(YEAR FROM t),
	MOD(EXTRACT(DAYOFWEEK FROM t) + 5, 7)
FROM (
	SELECT DISTINCT ts, TIMESTAMP_MILLIS(ts) AS t
	FROM staging_events
	WHERE page = 'NextSong'
)`,
	},
}
