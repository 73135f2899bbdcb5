package models

import "time"

// Game is the normalized, internal form of one catalog entry, keyed by the
// storefront's immutable numeric appid.
//
// Upstream payloads are mapped into this structure first, then the database
// layer writes from this representation. Nullable upstream fields stay nil
// rather than zero so re-imports never overwrite real data with blanks.
type Game struct {
	AppID           int64      `json:"appid"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"` // assigned at creation, never rewritten on re-import
	Summary         string     `json:"summary,omitempty"`
	HeaderImage     string     `json:"header_image,omitempty"`
	HeroImage       string     `json:"hero_image,omitempty"`
	Developer       string     `json:"developer,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	ReleaseDate     *time.Time `json:"release_date,omitempty"`
	MetacriticScore *int       `json:"metacritic_score,omitempty"`
	ReviewLabel     string     `json:"review_label,omitempty"`
	ReviewCount     *int       `json:"review_count,omitempty"`
	ReviewPercent   *int       `json:"review_percent,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Populated on detail reads, empty on list reads.
	Tags        []string     `json:"tags,omitempty"`
	Platforms   []string     `json:"platforms,omitempty"`
	Screenshots []Screenshot `json:"screenshots,omitempty"`
}

// Screenshot is an ordered child row of a Game. The whole set is replaced on
// every re-import because upstream provides no stable screenshot IDs.
type Screenshot struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
	SortIndex int    `json:"sort_index"`
}
