package warehouse

var redshiftCreate = []string{
	`CREATE TABLE IF NOT EXISTS staging_events (
	artist VARCHAR,
	auth VARCHAR,
	first_name VARCHAR,
	gender VARCHAR,
	item_in_session INT,
	last_name VARCHAR,
	length FLOAT,
	level VARCHAR,
	location VARCHAR,
	method VARCHAR,
	page VARCHAR,
	registration FLOAT,
	session_id INT,
	song VARCHAR,
	status INT,
	ts BIGINT,
	user_agent VARCHAR,
	user_id INT
)`,
	`CREATE TABLE IF NOT EXISTS staging_songs (
	num_songs INT,
	artist_id VARCHAR,
	artist_latitude FLOAT,
	artist_longitude FLOAT,
	artist_location VARCHAR(512),
	artist_name VARCHAR(512),
	song_id VARCHAR,
	title VARCHAR(512),
	duration FLOAT,
	year INT
)`,
	`CREATE TABLE IF NOT EXISTS songplays (
	songplay_id INT IDENTITY(0,1) PRIMARY KEY,
	start_time BIGINT NOT NULL SORTKEY,
	user_id INT NOT NULL,
	level VARCHAR,
	song_id VARCHAR DISTKEY,
	artist_id VARCHAR,
	session_id INT,
	location VARCHAR,
	user_agent VARCHAR
)`,
	`CREATE TABLE IF NOT EXISTS users (
	user_id INT PRIMARY KEY SORTKEY,
	first_name VARCHAR,
	last_name VARCHAR,
	gender VARCHAR,
	level VARCHAR
) DISTSTYLE ALL`,
	`CREATE TABLE IF NOT EXISTS songs (
	song_id VARCHAR PRIMARY KEY SORTKEY DISTKEY,
	title VARCHAR(512),
	artist_id VARCHAR,
	year INT,
	duration FLOAT
)`,
	`CREATE TABLE IF NOT EXISTS artists (
	artist_id VARCHAR PRIMARY KEY SORTKEY,
	name VARCHAR(512),
	location VARCHAR(512),
	latitude FLOAT,
	longitude FLOAT
) DISTSTYLE ALL`,
	`CREATE TABLE IF NOT EXISTS "time" (
	start_time BIGINT PRIMARY KEY SORTKEY,
	hour INT,
	day INT,
	week INT,
	month INT,
	year INT,
	weekday INT
) DISTSTYLE ALL`,
}

var redshiftSteps = []Step{
	{
		Table:   "songplays",
		Columns: []string{"start_time", "user_id", "level", "song_id", "artist_id", "session_id", "location", "user_agent"},
		SQL: `SELECT e.ts, e.user_id, e.level, s.song_id, s.artist_id, e.session_id, e.location, e.user_agent
FROM staging_events e
LEFT JOIN (
	SELECT DISTINCT song_id, artist_id, title, artist_name, duration FROM staging_songs
) s ON e.song = s.title AND e.artist = s.artist_name AND e.length = s.duration
WHERE e.page = 'NextSong'`,
	},
	{
		Table: "users",
		SQL: `SELECT user_id, first_name, last_name, gender, level
FROM (
	SELECT user_id, first_name, last_name, gender, level,
		ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY ts DESC) AS rn
	FROM staging_events
	WHERE page = 'NextSong' AND user_id IS NOT NULL
) latest
WHERE rn = 1`,
	},
	{
		Table: "songs",
		SQL: `SELECT song_id, title, artist_id, year, duration
FROM (
	SELECT song_id, title, artist_id, year, duration,
		ROW_NUMBER() OVER (PARTITION BY song_id ORDER BY title) AS rn
	FROM staging_songs
	WHERE song_id IS NOT NULL
) first_song
WHERE rn = 1`,
	},
	{
		Table: "artists",
		SQL: `SELECT artist_id, artist_name, artist_location, artist_latitude, artist_longitude
FROM (
	SELECT artist_id, artist_name, artist_location, artist_latitude, artist_longitude,
		ROW_NUMBER() OVER (PARTITION BY artist_id ORDER BY artist_name) AS rn
	FROM staging_songs
	WHERE artist_id IS NOT NULL
) first_artist
WHERE rn = 1`,
	},
	{
		Table: `"time"`,
		SQL: `SELECT ts,
	EXTRACT(hour FROM t),
	EXTRACT(day FROM t),
	EXTRACT(week FROM t),
	EXTRACT(month FROM t),
	EXTRACT(year FROM t),
	(EXTRACT(dow FROM t) + 6) % 7
FROM (
	SELECT DISTINCT ts, TIMESTAMP 'epoch' + ts / 1000 * INTERVAL '1 second' AS t
	FROM staging_events
	WHERE page = 'NextSong'
) events`,
	},
}
