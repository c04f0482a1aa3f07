package store

// Tables in the order they are dropped.
var tables = []string{"songplays", "users", "songs", "artists", "time"}

func tableDefinitions(serial string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS songplays (
	songplay_id ` + serial + `,
	start_time BIGINT NOT NULL,
	user_id INT NOT NULL,
	level VARCHAR,
	song_id VARCHAR,
	artist_id VARCHAR,
	session_id INT,
	location VARCHAR,
	user_agent VARCHAR
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS songplays_natural_key
	ON songplays (start_time, user_id, (COALESCE(song_id, '')), (COALESCE(artist_id, '')))`,
		`CREATE TABLE IF NOT EXISTS users (
	user_id INT PRIMARY KEY,
	first_name VARCHAR,
	last_name VARCHAR,
	gender VARCHAR,
	level VARCHAR
)`,
		`CREATE TABLE IF NOT EXISTS songs (
	song_id VARCHAR PRIMARY KEY,
	title VARCHAR,
	artist_id VARCHAR,
	year INT,
	duration FLOAT
)`,
		`CREATE TABLE IF NOT EXISTS artists (
	artist_id VARCHAR PRIMARY KEY,
	name VARCHAR,
	location VARCHAR,
	latitude FLOAT,
	longitude FLOAT
)`,
		`CREATE TABLE IF NOT EXISTS time (
	start_time BIGINT PRIMARY KEY,
	hour INT,
	day INT,
	week INT,
	month INT,
	year INT,
	weekday INT
)`,
	}
}

const (
	songInsert = `INSERT INTO songs (song_id, title, artist_id, year, duration)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING`

	artistInsert = `INSERT INTO artists (artist_id, name, location, latitude, longitude)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING`

	userUpsert = `INSERT INTO users (user_id, first_name, last_name, gender, level)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	gender = EXCLUDED.gender,
	level = EXCLUDED.level`

	timeInsert = `INSERT INTO time (start_time, hour, day, week, month, year, weekday)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT DO NOTHING`

	songplayUpsert = `INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (start_time, user_id, (COALESCE(song_id, '')), (COALESCE(artist_id, ''))) DO UPDATE SET
	level = EXCLUDED.level,
	session_id = EXCLUDED.session_id,
	location = EXCLUDED.location,
	user_agent = EXCLUDED.user_agent`

	songSelect = `SELECT songs.song_id, songs.artist_id
FROM songs
JOIN artists ON songs.artist_id = artists.artist_id
WHERE songs.title = $1 AND artists.name = $2 AND songs.duration = $3
LIMIT 1`
)
