package importer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gameshelf/internal/steam"
	"gameshelf/pkg/models"
)

// Pure mapping from upstream payloads to storage entities. No I/O in this
// file: everything here must stay deterministic and unit-testable.

// CanonicalName trims, lowercases and collapses whitespace. Producers dedup
// taxonomy names on this form so upstream's inconsistent casing does not
// fragment the vocabulary.
func CanonicalName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Slugify derives the URL-safe slug: canonicalized title with everything
// non-alphanumeric as '-', suffixed with the appid so duplicate titles can
// never collide. Assigned at creation and never rewritten.
func Slugify(title string, appid int64) string {
	title = strings.ToLower(title)
	var b strings.Builder
	b.Grow(len(title))

	prevDash := true // swallow leading separators
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevDash = false
			continue
		}
		if !prevDash {
			b.WriteRune('-')
			prevDash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return fmt.Sprintf("app-%d", appid)
	}
	return fmt.Sprintf("%s-%d", slug, appid)
}

// NormalizeGame maps a detail payload plus optional review summary into the
// Game entity. Missing optional fields resolve to zero values, never errors.
func NormalizeGame(appid int64, d *steam.DetailPayload, r *steam.ReviewSummary) models.Game {
	title := strings.TrimSpace(d.Name)
	if title == "" {
		title = fmt.Sprintf("app-%d", appid)
	}

	g := models.Game{
		AppID:       appid,
		Title:       title,
		Slug:        Slugify(title, appid),
		Summary:     strings.TrimSpace(d.ShortDescription),
		HeaderImage: d.HeaderImage,
		HeroImage:   d.Background,
	}

	if len(d.Developers) > 0 {
		g.Developer = strings.TrimSpace(d.Developers[0])
	}
	if len(d.Publishers) > 0 {
		g.Publisher = strings.TrimSpace(d.Publishers[0])
	}
	if d.ReleaseDate != nil {
		g.ReleaseDate = parseReleaseDate(d.ReleaseDate.Date)
	}
	if d.Metacritic != nil {
		score := d.Metacritic.Score
		g.MetacriticScore = &score
	}

	if r != nil {
		g.ReviewLabel = r.ScoreDesc
		count := r.TotalReviews
		g.ReviewCount = &count
		if r.TotalReviews > 0 {
			pct := int(math.Round(100 * float64(r.TotalPositive) / float64(r.TotalReviews)))
			g.ReviewPercent = &pct
		}
	}

	return g
}

// NormalizeScreenshots keeps source order, preferring the full image URL and
// falling back to the thumbnail. Entries with no usable URL are dropped.
func NormalizeScreenshots(d *steam.DetailPayload) []models.Screenshot {
	out := make([]models.Screenshot, 0, len(d.Screenshots))
	for i, s := range d.Screenshots {
		u := s.PathFull
		if u == "" {
			u = s.PathThumbnail
		}
		if u == "" {
			continue
		}
		out = append(out, models.Screenshot{
			URL:       u,
			Thumbnail: s.PathThumbnail,
			SortIndex: i,
		})
	}
	return out
}

// TagNames merges genre and category names into one deduplicated tag list,
// keeping the first-seen display form of each canonical name.
func TagNames(d *steam.DetailPayload) []string {
	names := make([]string, 0, len(d.Genres)+len(d.Categories))
	for _, g := range d.Genres {
		names = append(names, g.Description)
	}
	for _, c := range d.Categories {
		names = append(names, c.Description)
	}
	return dedupeNames(names)
}

// PlatformNames maps the platform boolean flags into names.
func PlatformNames(d *steam.DetailPayload) []string {
	if d.Platforms == nil {
		return nil
	}
	var names []string
	if d.Platforms.Windows {
		names = append(names, "Windows")
	}
	if d.Platforms.Mac {
		names = append(names, "Mac")
	}
	if d.Platforms.Linux {
		names = append(names, "Linux")
	}
	return names
}

func dedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		display := strings.Join(strings.Fields(n), " ")
		if display == "" {
			continue
		}
		key := CanonicalName(display)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, display)
	}
	return out
}

var mdyPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

var releaseDateLayouts = []string{
	"Jan 2, 2006",
	"2 Jan, 2006",
	"January 2, 2006",
	"2006-01-02",
}

// parseReleaseDate best-effort parses upstream's free-text dates: known
// layouts, then M/D/Y, then a bare year. Unparseable dates resolve to nil.
func parseReleaseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}

	if m := mdyPattern.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}

	if year, err := strconv.Atoi(s); err == nil && year >= 1970 && year <= 2100 {
		t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}

	return nil
}
