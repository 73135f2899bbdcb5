package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gameshelf/pkg/database"
)

func main() {
	var (
		gamesOut   = flag.String("games", "data/games.csv", "output CSV path for games")
		backlogOut = flag.String("backlog", "data/backlog.csv", "output CSV path for backlog entries")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportGames(ctx, db, *gamesOut); err != nil {
		log.Fatalf("export games failed: %v", err)
	}
	if err := exportBacklog(ctx, db, *backlogOut); err != nil {
		log.Fatalf("export backlog failed: %v", err)
	}

	log.Printf("exported games to %s and backlog to %s", *gamesOut, *backlogOut)
}

func exportGames(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"appid", "title", "slug", "developer", "publisher", "release_date", "metacritic_score", "review_percent", "review_label"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT appid, title, slug, developer, publisher, release_date, metacritic_score, review_percent, review_label
        FROM games
        ORDER BY title
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			appid       int64
			title       string
			slug        string
			developer   sql.NullString
			publisher   sql.NullString
			releaseDate sql.NullString
			metacritic  sql.NullInt64
			revPercent  sql.NullInt64
			revLabel    sql.NullString
		)

		if err := rows.Scan(&appid, &title, &slug, &developer, &publisher, &releaseDate, &metacritic, &revPercent, &revLabel); err != nil {
			return err
		}

		if err := w.Write([]string{
			strconv.FormatInt(appid, 10),
			title,
			slug,
			developer.String,
			publisher.String,
			releaseDate.String,
			nullInt(metacritic),
			nullInt(revPercent),
			revLabel.String,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportBacklog(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"user_id", "appid", "status", "rating", "notes", "updated_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT user_id, appid, status, rating, notes, updated_at
        FROM backlog
        ORDER BY updated_at DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID    string
			appid     int64
			status    string
			rating    sql.NullInt64
			notes     sql.NullString
			updatedAt sql.NullTime
		)

		if err := rows.Scan(&userID, &appid, &status, &rating, &notes, &updatedAt); err != nil {
			return err
		}

		updated := ""
		if updatedAt.Valid {
			updated = updatedAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			userID,
			strconv.FormatInt(appid, 10),
			status,
			nullInt(rating),
			notes.String,
			updated,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func nullInt(n sql.NullInt64) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}
