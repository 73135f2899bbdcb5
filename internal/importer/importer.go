package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"gameshelf/internal/game"
	"gameshelf/internal/steam"
	"gameshelf/pkg/models"
)

type OutcomeKind string

const (
	KindImported OutcomeKind = "imported"
	KindSkipped  OutcomeKind = "skipped"
	KindErrored  OutcomeKind = "errored"
)

type SkipReason string

const (
	ReasonAlreadyImported SkipReason = "already_imported"
	ReasonNoDetails       SkipReason = "no_appdetails"
	ReasonDenylistedApp   SkipReason = "denylisted_app"
	ReasonDenylistedSlug  SkipReason = "denylisted_slug"
	ReasonOther           SkipReason = "other"
)

// Machine-readable codes returned on the HTTP surface.
const (
	CodeNoAppDetails   = "NO_APPDETAILS"
	CodeDenylistedApp  = "DENYLISTED_APP"
	CodeDenylistedSlug = "DENYLISTED_SLUG"
	CodeDuplicateApp   = "DUPLICATE_APP"
)

// Outcome is the classified result of importing one appid. Every import
// resolves to exactly one of imported/skipped/errored.
type Outcome struct {
	AppID      int64       `json:"appid"`
	Kind       OutcomeKind `json:"kind"`
	Reason     SkipReason  `json:"reason,omitempty"`
	Code       string      `json:"code,omitempty"`
	Err        string      `json:"error,omitempty"`
	HTTPStatus int         `json:"http_status,omitempty"` // upstream status, when known
}

// MetadataSource is what the importer needs from the upstream client.
type MetadataSource interface {
	AppDetails(ctx context.Context, appid int64) (*steam.DetailPayload, error)
	ReviewSummary(ctx context.Context, appid int64) *steam.ReviewSummary
}

// GameStore is the storage boundary: one atomic create-or-update of a game
// plus its taxonomy links and screenshot set.
type GameStore interface {
	SaveImported(ctx context.Context, g models.Game, tags, platforms []string, shots []models.Screenshot) error
}

type Importer struct {
	Source   MetadataSource
	Store    GameStore
	Denylist Denylist
}

func NewImporter(source MetadataSource, store GameStore, denylist Denylist) *Importer {
	return &Importer{Source: source, Store: store, Denylist: denylist}
}

// ImportOne imports exactly one appid: denylist check, fetch, normalize,
// denylist re-check on the derived slug, upsert. Every failure is classified
// locally; ImportOne never panics and never returns an error out-of-band.
func (imp *Importer) ImportOne(ctx context.Context, appid int64) Outcome {
	// id-level denylist short-circuits before any network call
	if imp.Denylist.BlockedApp(appid) {
		return Outcome{AppID: appid, Kind: KindSkipped, Reason: ReasonDenylistedApp, Code: CodeDenylistedApp}
	}

	detail, err := imp.Source.AppDetails(ctx, appid)
	if err != nil {
		return classify(appid, err)
	}

	review := imp.Source.ReviewSummary(ctx, appid)

	g := NormalizeGame(appid, detail, review)

	// slug depends on the title, which is only known post-fetch
	if imp.Denylist.BlockedSlug(g.Slug) {
		return Outcome{AppID: appid, Kind: KindSkipped, Reason: ReasonDenylistedSlug, Code: CodeDenylistedSlug}
	}

	if err := imp.Store.SaveImported(ctx, g, TagNames(detail), PlatformNames(detail), NormalizeScreenshots(detail)); err != nil {
		return classify(appid, err)
	}

	log.Info().Int64("appid", appid).Str("slug", g.Slug).Msg("imported")
	return Outcome{AppID: appid, Kind: KindImported}
}

// skipPhrases is the documented string-matching fallback for when upstream's
// status code is ambiguous. Case-insensitive substring match, fixed
// vocabulary; this table is the single place to amend if upstream rewords.
var skipPhrases = []struct {
	substr string
	reason SkipReason
	code   string
}{
	{"no_appdetails", ReasonNoDetails, CodeNoAppDetails},
	{"returned no data", ReasonNoDetails, CodeNoAppDetails},
	{"unique constraint", ReasonAlreadyImported, CodeDuplicateApp},
	{"already imported", ReasonAlreadyImported, CodeDuplicateApp},
}

// classify maps a failure to its outcome. Precedence: typed sentinels, then
// the upstream status code, then the substring fallback, then errored.
func classify(appid int64, err error) Outcome {
	if errors.Is(err, steam.ErrNoAppDetails) {
		return Outcome{AppID: appid, Kind: KindSkipped, Reason: ReasonNoDetails, Code: CodeNoAppDetails}
	}
	if errors.Is(err, game.ErrDuplicateGame) {
		return Outcome{AppID: appid, Kind: KindSkipped, Reason: ReasonAlreadyImported, Code: CodeDuplicateApp}
	}

	status := 0
	var se *steam.HTTPStatusError
	if errors.As(err, &se) {
		status = se.Status
		switch se.Status {
		case 404, 422:
			return Outcome{AppID: appid, Kind: KindSkipped, Reason: ReasonNoDetails, Code: CodeNoAppDetails, HTTPStatus: se.Status}
		case 409:
			return Outcome{AppID: appid, Kind: KindSkipped, Reason: ReasonAlreadyImported, Code: CodeDuplicateApp, HTTPStatus: se.Status}
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range skipPhrases {
		if strings.Contains(msg, p.substr) {
			return Outcome{AppID: appid, Kind: KindSkipped, Reason: p.reason, Code: p.code, HTTPStatus: status}
		}
	}

	log.Warn().Err(err).Int64("appid", appid).Msg("import failed")
	return Outcome{AppID: appid, Kind: KindErrored, Err: err.Error(), HTTPStatus: status}
}
