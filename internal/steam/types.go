package steam

// DetailPayload is the storefront appdetails `data` object, reduced to the
// fields the importer consumes. Everything is optional; absent fields decode
// to zero values and the normalizer deals with them.
type DetailPayload struct {
	Name             string            `json:"name"`
	Type             string            `json:"type"`
	ShortDescription string            `json:"short_description"`
	HeaderImage      string            `json:"header_image"`
	Background       string            `json:"background"`
	Developers       []string          `json:"developers"`
	Publishers       []string          `json:"publishers"`
	ReleaseDate      *ReleaseDate      `json:"release_date"`
	Metacritic       *Metacritic       `json:"metacritic"`
	Platforms        *PlatformFlags    `json:"platforms"`
	Genres           []NamedEntry      `json:"genres"`
	Categories       []NamedEntry      `json:"categories"`
	Screenshots      []ScreenshotEntry `json:"screenshots"`
}

type ReleaseDate struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"` // free-text, not always parseable
}

type Metacritic struct {
	Score int    `json:"score"`
	URL   string `json:"url"`
}

type PlatformFlags struct {
	Windows bool `json:"windows"`
	Mac     bool `json:"mac"`
	Linux   bool `json:"linux"`
}

type NamedEntry struct {
	Description string `json:"description"`
}

type ScreenshotEntry struct {
	ID            int    `json:"id"`
	PathThumbnail string `json:"path_thumbnail"`
	PathFull      string `json:"path_full"`
}

// ReviewSummary is the appreviews aggregate. Best-effort enrichment only.
type ReviewSummary struct {
	ScoreDesc     string `json:"review_score_desc"`
	TotalPositive int    `json:"total_positive"`
	TotalNegative int    `json:"total_negative"`
	TotalReviews  int    `json:"total_reviews"`
}

// OwnedGame is one entry of the account's owned list.
type OwnedGame struct {
	AppID           int64 `json:"appid"`
	PlaytimeMinutes int   `json:"playtime_forever"`
	LastPlayedEpoch int64 `json:"rtime_last_played"`
}
