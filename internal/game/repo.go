package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"gameshelf/pkg/models"
)

// ErrDuplicateGame is surfaced when two imports race for the same new
// appid/slug and the loser hits the uniqueness constraint. Callers classify
// it as "already imported", never as a generic storage error.
var ErrDuplicateGame = errors.New("game already imported")

const releaseDateLayout = "2006-01-02"

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// EnsureTerms creates missing vocabulary rows ("create if missing, ignore if
// exists") and returns the ids for every name, in input order. Runs outside
// any import transaction: term creation is cheap and globally idempotent.
// Name matching is case-insensitive end to end (the columns collate NOCASE),
// so "Action" arriving after "action" resolves to the existing term instead
// of minting a duplicate; the first-seen display form stays stored.
func (r *Repo) EnsureTerms(ctx context.Context, table string, names []string) ([]int64, error) {
	if table != "tags" && table != "platforms" {
		return nil, fmt.Errorf("unknown term table %q", table)
	}

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if _, err := r.DB.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (name) VALUES (?)`, name); err != nil {
			return nil, fmt.Errorf("ensure %s %q: %w", table, name, err)
		}
		var id int64
		if err := r.DB.QueryRowContext(ctx,
			`SELECT id FROM `+table+` WHERE name = ? COLLATE NOCASE`, name).Scan(&id); err != nil {
			return nil, fmt.Errorf("lookup %s %q: %w", table, name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SaveImported is the import pipeline's single write: ensure terms, then in
// one transaction upsert the game (slug excluded from updates so inbound
// links never break), relink taxonomy idempotently, and replace the
// screenshot set wholesale.
func (r *Repo) SaveImported(ctx context.Context, g models.Game, tags, platforms []string, shots []models.Screenshot) error {
	tagIDs, err := r.EnsureTerms(ctx, "tags", tags)
	if err != nil {
		return err
	}
	platformIDs, err := r.EnsureTerms(ctx, "platforms", platforms)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO games (appid, title, slug, summary, header_image, hero_image,
		                   developer, publisher, release_date, metacritic_score,
		                   review_label, review_count, review_percent, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(appid) DO UPDATE SET
		  title = excluded.title,
		  summary = excluded.summary,
		  header_image = excluded.header_image,
		  hero_image = excluded.hero_image,
		  developer = excluded.developer,
		  publisher = excluded.publisher,
		  release_date = excluded.release_date,
		  metacritic_score = excluded.metacritic_score,
		  review_label = excluded.review_label,
		  review_count = excluded.review_count,
		  review_percent = excluded.review_percent,
		  updated_at = CURRENT_TIMESTAMP
	`,
		g.AppID, g.Title, g.Slug, nullStr(g.Summary), nullStr(g.HeaderImage), nullStr(g.HeroImage),
		nullStr(g.Developer), nullStr(g.Publisher), releaseDateStr(g.ReleaseDate), g.MetacriticScore,
		nullStr(g.ReviewLabel), g.ReviewCount, g.ReviewPercent,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("upsert game %d: %w", g.AppID, ErrDuplicateGame)
		}
		return fmt.Errorf("upsert game %d: %w", g.AppID, err)
	}

	if err := linkTerms(ctx, tx, "game_tags", "tag_id", g.AppID, tagIDs); err != nil {
		return err
	}
	if err := linkTerms(ctx, tx, "game_platforms", "platform_id", g.AppID, platformIDs); err != nil {
		return err
	}

	// full replacement: upstream has no stable screenshot ids to diff against
	if _, err := tx.ExecContext(ctx, `DELETE FROM screenshots WHERE appid = ?`, g.AppID); err != nil {
		return fmt.Errorf("clear screenshots %d: %w", g.AppID, err)
	}
	for _, s := range shots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO screenshots (appid, url, thumbnail, sort_index)
			VALUES (?, ?, ?, ?)
		`, g.AppID, s.URL, nullStr(s.Thumbnail), s.SortIndex); err != nil {
			return fmt.Errorf("insert screenshot %d: %w", g.AppID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import %d: %w", g.AppID, err)
	}
	return nil
}

func linkTerms(ctx context.Context, tx *sql.Tx, table, col string, appid int64, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (appid, `+col+`) VALUES (?, ?)`, appid, id); err != nil {
			return fmt.Errorf("link %s %d: %w", table, appid, err)
		}
	}
	return nil
}

type ListQuery struct {
	Q        string // keyword search in title/developer/publisher
	Tag      string
	Platform string
	Limit    int
	Offset   int
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Game, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	sqlStr, args := buildListSQL(q, false)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	out := make([]models.Game, 0, q.Limit)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	return out, nil
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Game, error) {
	row := r.DB.QueryRowContext(ctx, selectGame+` WHERE slug = ?`, slug)
	g, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.attachRelations(ctx, g)
}

func (r *Repo) GetByAppID(ctx context.Context, appid int64) (*models.Game, error) {
	row := r.DB.QueryRowContext(ctx, selectGame+` WHERE appid = ?`, appid)
	g, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.attachRelations(ctx, g)
}

const selectGame = `
	SELECT appid, title, slug, summary, header_image, hero_image,
	       developer, publisher, release_date, metacritic_score,
	       review_label, review_count, review_percent, updated_at
	FROM games
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*models.Game, error) {
	var (
		g                            models.Game
		summary, header, hero        sql.NullString
		developer, publisher         sql.NullString
		releaseDate, reviewLabel     sql.NullString
		metacritic, revCount, revPct sql.NullInt64
	)

	if err := row.Scan(
		&g.AppID, &g.Title, &g.Slug, &summary, &header, &hero,
		&developer, &publisher, &releaseDate, &metacritic,
		&reviewLabel, &revCount, &revPct, &g.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}

	g.Summary = summary.String
	g.HeaderImage = header.String
	g.HeroImage = hero.String
	g.Developer = developer.String
	g.Publisher = publisher.String
	g.ReviewLabel = reviewLabel.String
	if releaseDate.Valid {
		if t, err := time.Parse(releaseDateLayout, releaseDate.String); err == nil {
			g.ReleaseDate = &t
		}
	}
	if metacritic.Valid {
		v := int(metacritic.Int64)
		g.MetacriticScore = &v
	}
	if revCount.Valid {
		v := int(revCount.Int64)
		g.ReviewCount = &v
	}
	if revPct.Valid {
		v := int(revPct.Int64)
		g.ReviewPercent = &v
	}
	return &g, nil
}

func (r *Repo) attachRelations(ctx context.Context, g *models.Game) (*models.Game, error) {
	var err error
	if g.Tags, err = r.termNames(ctx, "game_tags", "tags", "tag_id", g.AppID); err != nil {
		return nil, err
	}
	if g.Platforms, err = r.termNames(ctx, "game_platforms", "platforms", "platform_id", g.AppID); err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT url, thumbnail, sort_index
		FROM screenshots
		WHERE appid = ?
		ORDER BY sort_index
	`, g.AppID)
	if err != nil {
		return nil, fmt.Errorf("screenshots %d: %w", g.AppID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Screenshot
		var thumb sql.NullString
		if err := rows.Scan(&s.URL, &thumb, &s.SortIndex); err != nil {
			return nil, fmt.Errorf("scan screenshot: %w", err)
		}
		s.Thumbnail = thumb.String
		g.Screenshots = append(g.Screenshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("screenshot rows: %w", err)
	}
	return g, nil
}

func (r *Repo) termNames(ctx context.Context, link, terms, col string, appid int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT t.name FROM `+terms+` t
		JOIN `+link+` l ON l.`+col+` = t.id
		WHERE l.appid = ?
		ORDER BY t.name
	`, appid)
	if err != nil {
		return nil, fmt.Errorf("%s for %d: %w", terms, appid, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan %s name: %w", terms, err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// buildListSQL builds either COUNT(*) or the paged SELECT. Tag and platform
// filters go through EXISTS on the join tables, compared case-insensitively.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	base := selectGame
	if countOnly {
		base = `SELECT COUNT(*) FROM games`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, `(LOWER(title) LIKE ? OR LOWER(developer) LIKE ? OR LOWER(publisher) LIKE ?)`)
		pat := "%" + strings.ToLower(kw) + "%"
		args = append(args, pat, pat, pat)
	}

	if tag := strings.TrimSpace(q.Tag); tag != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM game_tags gt JOIN tags t ON t.id = gt.tag_id
			WHERE gt.appid = games.appid AND LOWER(t.name) = ?
		)`)
		args = append(args, strings.ToLower(tag))
	}

	if platform := strings.TrimSpace(q.Platform); platform != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM game_platforms gp JOIN platforms p ON p.id = gp.platform_id
			WHERE gp.appid = games.appid AND LOWER(p.name) = ?
		)`)
		args = append(args, strings.ToLower(platform))
	}

	sqlStr := base
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	if !countOnly {
		sqlStr += " ORDER BY title LIMIT ? OFFSET ?"
	}
	return sqlStr, args
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func releaseDateStr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(releaseDateLayout)
}
