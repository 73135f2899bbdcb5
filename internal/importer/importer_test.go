package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gameshelf/internal/game"
	"gameshelf/internal/steam"
	"gameshelf/pkg/models"
)

type fakeSource struct {
	detail    *steam.DetailPayload
	detailErr error
	review    *steam.ReviewSummary
	calls     int
}

func (f *fakeSource) AppDetails(ctx context.Context, appid int64) (*steam.DetailPayload, error) {
	f.calls++
	return f.detail, f.detailErr
}

func (f *fakeSource) ReviewSummary(ctx context.Context, appid int64) *steam.ReviewSummary {
	return f.review
}

type fakeStore struct {
	saveErr error
	saved   []models.Game
	tags    []string
	shots   []models.Screenshot
}

func (f *fakeStore) SaveImported(ctx context.Context, g models.Game, tags, platforms []string, shots []models.Screenshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, g)
	f.tags = tags
	f.shots = shots
	return nil
}

func TestImportOneSuccess(t *testing.T) {
	src := &fakeSource{
		detail: &steam.DetailPayload{
			Name:   "Portal 2",
			Genres: []steam.NamedEntry{{Description: "Puzzle"}},
		},
		review: &steam.ReviewSummary{ScoreDesc: "Very Positive", TotalPositive: 9, TotalReviews: 10},
	}
	store := &fakeStore{}
	imp := NewImporter(src, store, Denylist{})

	out := imp.ImportOne(context.Background(), 620)
	assert.Equal(t, KindImported, out.Kind)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "portal-2-620", store.saved[0].Slug)
	assert.Equal(t, []string{"Puzzle"}, store.tags)
}

func TestImportOneAppDenylistSkipsNetwork(t *testing.T) {
	src := &fakeSource{detail: &steam.DetailPayload{Name: "X"}}
	imp := NewImporter(src, &fakeStore{}, NewDenylist([]int64{440}, nil))

	out := imp.ImportOne(context.Background(), 440)
	assert.Equal(t, KindSkipped, out.Kind)
	assert.Equal(t, ReasonDenylistedApp, out.Reason)
	assert.Equal(t, CodeDenylistedApp, out.Code)
	assert.Zero(t, src.calls)
}

func TestImportOneSlugDenylist(t *testing.T) {
	src := &fakeSource{detail: &steam.DetailPayload{Name: "Bad Game"}}
	store := &fakeStore{}
	imp := NewImporter(src, store, NewDenylist(nil, []string{"bad-game-13"}))

	out := imp.ImportOne(context.Background(), 13)
	assert.Equal(t, KindSkipped, out.Kind)
	assert.Equal(t, ReasonDenylistedSlug, out.Reason)
	assert.Empty(t, store.saved)
}

func TestImportOneNoDetails(t *testing.T) {
	src := &fakeSource{detailErr: steam.ErrNoAppDetails}
	imp := NewImporter(src, &fakeStore{}, Denylist{})

	out := imp.ImportOne(context.Background(), 7)
	assert.Equal(t, KindSkipped, out.Kind)
	assert.Equal(t, ReasonNoDetails, out.Reason)
	assert.Equal(t, CodeNoAppDetails, out.Code)
}

func TestImportOneDuplicate(t *testing.T) {
	src := &fakeSource{detail: &steam.DetailPayload{Name: "X"}}
	imp := NewImporter(src, &fakeStore{saveErr: game.ErrDuplicateGame}, Denylist{})

	out := imp.ImportOne(context.Background(), 7)
	assert.Equal(t, KindSkipped, out.Kind)
	assert.Equal(t, ReasonAlreadyImported, out.Reason)
	assert.Equal(t, CodeDuplicateApp, out.Code)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantKind   OutcomeKind
		wantReason SkipReason
	}{
		{"no details sentinel", steam.ErrNoAppDetails, KindSkipped, ReasonNoDetails},
		{"wrapped no details", errors.Join(errors.New("ctx"), steam.ErrNoAppDetails), KindSkipped, ReasonNoDetails},
		{"duplicate sentinel", game.ErrDuplicateGame, KindSkipped, ReasonAlreadyImported},
		{"status 404", &steam.HTTPStatusError{Status: 404}, KindSkipped, ReasonNoDetails},
		{"status 422", &steam.HTTPStatusError{Status: 422}, KindSkipped, ReasonNoDetails},
		{"status 409", &steam.HTTPStatusError{Status: 409}, KindSkipped, ReasonAlreadyImported},
		{"status 500", &steam.HTTPStatusError{Status: 500}, KindErrored, ""},
		{"phrase no_appdetails", errors.New("upstream said NO_APPDETAILS"), KindSkipped, ReasonNoDetails},
		{"phrase returned no data", errors.New("appdetails returned no data for id"), KindSkipped, ReasonNoDetails},
		{"phrase unique constraint", errors.New("UNIQUE constraint failed: games.appid"), KindSkipped, ReasonAlreadyImported},
		{"phrase already imported", errors.New("row already imported"), KindSkipped, ReasonAlreadyImported},
		{"unknown error", errors.New("connection reset by peer"), KindErrored, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := classify(42, tc.err)
			assert.Equal(t, int64(42), out.AppID)
			assert.Equal(t, tc.wantKind, out.Kind)
			assert.Equal(t, tc.wantReason, out.Reason)
			if out.Kind == KindErrored {
				assert.NotEmpty(t, out.Err)
			}
		})
	}
}

func TestClassifyCarriesHTTPStatus(t *testing.T) {
	out := classify(1, &steam.HTTPStatusError{Status: 503, Body: "down"})
	assert.Equal(t, KindErrored, out.Kind)
	assert.Equal(t, 503, out.HTTPStatus)
}
