/*

Package sparkify is a small ETL framework that loads song metadata and
user activity logs of a music streaming app into a star schema.

Source files are newline-delimited JSON under a data root, which is a local
directory, an s3:// URI or a gs:// URI. Each Handler picks the files under its
Prefix, parses them, projects the records into table rows and passes the rows
of one file at a time to its Loader.

Getting started

	package main

	import (
		"context"

		"go.nownabe.dev/sparkify"
		"go.nownabe.dev/sparkify/store"
	)

	func main() {
		ctx := context.Background()

		st, err := store.Open(ctx, store.SQLite, "sparkify.db")
		if err != nil {
			panic(err)
		}
		defer st.Close()

		if err := st.CreateTables(ctx); err != nil {
			panic(err)
		}

		etl, err := sparkify.New(sparkify.WithPrettyLogging())
		if err != nil {
			panic(err)
		}

		// Songs first: log events are resolved against loaded songs.
		etl.MustAddHandler(ctx, &sparkify.Handler{
			Name:      "songs",
			Prefix:    "song_data",
			Parser:    sparkify.JSONLinesParser(),
			Projector: sparkify.SongProjector(),
			Loader:    st,
		})
		etl.MustAddHandler(ctx, &sparkify.Handler{
			Name:      "logs",
			Prefix:    "log_data",
			Parser:    sparkify.JSONLinesParser(),
			Projector: sparkify.LogProjector(st),
			Loader:    st,
		})

		if err := etl.Run(ctx, "data"); err != nil {
			panic(err)
		}
	}

Packages store, warehouse and lake provide the relational, warehouse and
Parquet destinations.

*/
package sparkify
