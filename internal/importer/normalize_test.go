package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gameshelf/internal/steam"
)

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "free to play", CanonicalName("  Free   To Play "))
	assert.Equal(t, "action", CanonicalName("ACTION"))
	assert.Equal(t, "", CanonicalName("   "))
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		appid int64
		want  string
	}{
		{"Half-Life 2", 220, "half-life-2-220"},
		{"  Portal 2  ", 620, "portal-2-620"},
		{"DOOM: Eternal!!!", 782330, "doom-eternal-782330"},
		{"™®©", 123, "app-123"},
		{"", 456, "app-456"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.title, tc.appid), "title %q", tc.title)
	}
}

func TestNormalizeGameTitleFallback(t *testing.T) {
	g := NormalizeGame(999, &steam.DetailPayload{Name: "   "}, nil)
	assert.Equal(t, "app-999", g.Title)
	assert.Equal(t, "app-999-999", g.Slug)
}

func TestNormalizeGameFullPayload(t *testing.T) {
	d := &steam.DetailPayload{
		Name:             "Portal 2",
		ShortDescription: " The sequel. ",
		HeaderImage:      "https://cdn/header.jpg",
		Background:       "https://cdn/hero.jpg",
		Developers:       []string{"Valve", "Other"},
		Publishers:       []string{"Valve"},
		ReleaseDate:      &steam.ReleaseDate{Date: "Apr 18, 2011"},
		Metacritic:       &steam.Metacritic{Score: 95},
	}
	r := &steam.ReviewSummary{
		ScoreDesc:     "Overwhelmingly Positive",
		TotalPositive: 965,
		TotalReviews:  1000,
	}

	g := NormalizeGame(620, d, r)
	assert.Equal(t, int64(620), g.AppID)
	assert.Equal(t, "Portal 2", g.Title)
	assert.Equal(t, "portal-2-620", g.Slug)
	assert.Equal(t, "The sequel.", g.Summary)
	assert.Equal(t, "Valve", g.Developer)

	require.NotNil(t, g.ReleaseDate)
	assert.Equal(t, time.Date(2011, time.April, 18, 0, 0, 0, 0, time.UTC), *g.ReleaseDate)

	require.NotNil(t, g.MetacriticScore)
	assert.Equal(t, 95, *g.MetacriticScore)

	assert.Equal(t, "Overwhelmingly Positive", g.ReviewLabel)
	require.NotNil(t, g.ReviewPercent)
	assert.Equal(t, 97, *g.ReviewPercent) // round(96.5)
	require.NotNil(t, g.ReviewCount)
	assert.Equal(t, 1000, *g.ReviewCount)
}

func TestNormalizeGameNoReviews(t *testing.T) {
	g := NormalizeGame(1, &steam.DetailPayload{Name: "X"}, &steam.ReviewSummary{TotalReviews: 0})
	require.NotNil(t, g.ReviewCount)
	assert.Equal(t, 0, *g.ReviewCount)
	assert.Nil(t, g.ReviewPercent) // no percent when nothing to divide by
}

func TestParseReleaseDateVariants(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"Oct 10, 2007", time.Date(2007, time.October, 10, 0, 0, 0, 0, time.UTC)},
		{"18 Apr, 2011", time.Date(2011, time.April, 18, 0, 0, 0, 0, time.UTC)},
		{"October 10, 2007", time.Date(2007, time.October, 10, 0, 0, 0, 0, time.UTC)},
		{"2011-04-18", time.Date(2011, time.April, 18, 0, 0, 0, 0, time.UTC)},
		{"4/18/2011", time.Date(2011, time.April, 18, 0, 0, 0, 0, time.UTC)},
		{"2011", time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := parseReleaseDate(tc.in)
		require.NotNil(t, got, "input %q", tc.in)
		assert.Equal(t, tc.want, *got, "input %q", tc.in)
	}
}

func TestParseReleaseDateUnparseable(t *testing.T) {
	for _, in := range []string{"", "Coming soon", "TBA", "13/45/2011", "1800"} {
		assert.Nil(t, parseReleaseDate(in), "input %q", in)
	}
}

func TestNormalizeScreenshots(t *testing.T) {
	d := &steam.DetailPayload{Screenshots: []steam.ScreenshotEntry{
		{PathFull: "full0.jpg", PathThumbnail: "thumb0.jpg"},
		{PathThumbnail: "thumb1.jpg"}, // falls back to thumbnail
		{},                            // dropped
		{PathFull: "full3.jpg"},
	}}

	shots := NormalizeScreenshots(d)
	require.Len(t, shots, 3)
	assert.Equal(t, "full0.jpg", shots[0].URL)
	assert.Equal(t, 0, shots[0].SortIndex)
	assert.Equal(t, "thumb1.jpg", shots[1].URL)
	assert.Equal(t, 1, shots[1].SortIndex)
	assert.Equal(t, "full3.jpg", shots[2].URL)
	assert.Equal(t, 3, shots[2].SortIndex) // source index, not compacted
}

func TestTagNamesDedup(t *testing.T) {
	d := &steam.DetailPayload{
		Genres: []steam.NamedEntry{
			{Description: "Action"},
			{Description: "Free  To Play"},
		},
		Categories: []steam.NamedEntry{
			{Description: "action"},       // canonical dup of Action
			{Description: "free to play"}, // canonical dup after collapsing
			{Description: "Co-op"},
			{Description: ""},
		},
	}

	// first-seen display form wins
	assert.Equal(t, []string{"Action", "Free To Play", "Co-op"}, TagNames(d))
}

func TestPlatformNames(t *testing.T) {
	assert.Nil(t, PlatformNames(&steam.DetailPayload{}))
	assert.Equal(t,
		[]string{"Windows", "Linux"},
		PlatformNames(&steam.DetailPayload{Platforms: &steam.PlatformFlags{Windows: true, Linux: true}}),
	)
}
