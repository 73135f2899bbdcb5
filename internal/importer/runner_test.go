package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gameshelf/internal/steam"
)

type fakeOwned struct {
	games []steam.OwnedGame
	err   error
}

func (f *fakeOwned) OwnedGames(ctx context.Context, steamID, apiKey string) ([]steam.OwnedGame, error) {
	return f.games, f.err
}

// fakeItemImporter resolves each appid to a canned outcome and tracks how
// many imports were in flight at once.
type fakeItemImporter struct {
	mu        sync.Mutex
	outcomes  map[int64]Outcome
	order     []int64
	inFlight  int
	peak      int
	blockTime time.Duration
}

func (f *fakeItemImporter) ImportOne(ctx context.Context, appid int64) Outcome {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.order = append(f.order, appid)
	f.mu.Unlock()

	if f.blockTime > 0 {
		time.Sleep(f.blockTime)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if o, ok := f.outcomes[appid]; ok {
		return o
	}
	return Outcome{AppID: appid, Kind: KindImported}
}

type capturedEvent struct {
	events []any
	mu     sync.Mutex
}

func (c *capturedEvent) BroadcastJSON(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, v)
}

func ownedList(ids ...int64) []steam.OwnedGame {
	out := make([]steam.OwnedGame, len(ids))
	for i, id := range ids {
		out[i] = steam.OwnedGame{AppID: id}
	}
	return out
}

// newTestRunner wires a runner whose sleeps are recorded instead of slept.
func newTestRunner(owned ownedLister, imp itemImporter, d Denylist) (*Runner, *[]time.Duration) {
	r := NewRunner(owned, imp, d, nil)
	var sleeps []time.Duration
	r.sleep = func(ctx context.Context, dur time.Duration) error {
		sleeps = append(sleeps, dur)
		return ctx.Err()
	}
	return r, &sleeps
}

func TestRunPageCursorAdvancesByLimit(t *testing.T) {
	owned := &fakeOwned{games: ownedList(1, 2, 3, 4, 5, 6, 7)}
	imp := &fakeItemImporter{}
	r, _ := newTestRunner(owned, imp, Denylist{})

	res, err := r.RunPage(context.Background(), PageParams{Offset: 0, Limit: 3, Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 3, res.NextOffset)
	assert.True(t, res.HasMore)

	// short final window still advances by limit, not by processed
	res, err = r.RunPage(context.Background(), PageParams{Offset: 6, Limit: 3, Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 9, res.NextOffset)
	assert.False(t, res.HasMore)
}

func TestRunPageOffsetPastEnd(t *testing.T) {
	owned := &fakeOwned{games: ownedList(1, 2)}
	r, _ := newTestRunner(owned, &fakeItemImporter{}, Denylist{})

	res, err := r.RunPage(context.Background(), PageParams{Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Equal(t, 15, res.NextOffset)
	assert.False(t, res.HasMore)
}

func TestRunPageDenylistFiltersBeforePaging(t *testing.T) {
	owned := &fakeOwned{games: ownedList(1, 2, 3, 4)}
	imp := &fakeItemImporter{}
	r, _ := newTestRunner(owned, imp, NewDenylist([]int64{2, 3}, nil))

	res, err := r.RunPage(context.Background(), PageParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalOwned)
	assert.Equal(t, 2, res.Eligible)
	assert.Equal(t, 2, res.Denylisted)
	assert.ElementsMatch(t, []int64{1, 4}, imp.order)
}

func TestRunPageOwnedFetchFailure(t *testing.T) {
	owned := &fakeOwned{err: errors.New("api key invalid")}
	r, _ := newTestRunner(owned, &fakeItemImporter{}, Denylist{})

	res, err := r.RunPage(context.Background(), PageParams{})
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "fetch owned games")
}

func TestRunPageConcurrencyBound(t *testing.T) {
	owned := &fakeOwned{games: ownedList(1, 2, 3, 4, 5, 6, 7, 8)}
	imp := &fakeItemImporter{blockTime: 20 * time.Millisecond}
	r, _ := newTestRunner(owned, imp, Denylist{})

	res, err := r.RunPage(context.Background(), PageParams{Limit: 8, Concurrency: 4})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Processed)
	assert.LessOrEqual(t, imp.peak, 4)
	assert.GreaterOrEqual(t, imp.peak, 2) // the group really ran concurrently
}

func TestRunPageBackoffOnNoDetailBurst(t *testing.T) {
	owned := &fakeOwned{games: ownedList(1, 2, 3, 4, 5, 6, 7, 8)}
	imp := &fakeItemImporter{outcomes: map[int64]Outcome{
		// first group of 4: half fail with no_appdetails, hitting the threshold
		1: {AppID: 1, Kind: KindSkipped, Reason: ReasonNoDetails},
		2: {AppID: 2, Kind: KindSkipped, Reason: ReasonNoDetails},
	}}
	r, sleeps := newTestRunner(owned, imp, Denylist{})

	backoff := 10 * time.Second
	groupDelay := 50 * time.Millisecond
	res, err := r.RunPage(context.Background(), PageParams{
		Limit:        8,
		Concurrency:  4,
		GroupDelay:   groupDelay,
		BackoffDelay: backoff,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Processed)

	// one inter-group pause total, and it is the backoff (with up to 10%
	// jitter), not the plain group delay
	require.Len(t, *sleeps, 1)
	assert.GreaterOrEqual(t, (*sleeps)[0], backoff)
	assert.LessOrEqual(t, (*sleeps)[0], backoff+backoff/10)
}

func TestRunPageGroupDelayBelowThreshold(t *testing.T) {
	owned := &fakeOwned{games: ownedList(1, 2, 3, 4, 5, 6, 7, 8)}
	imp := &fakeItemImporter{outcomes: map[int64]Outcome{
		// one failure in four stays under the threshold
		1: {AppID: 1, Kind: KindSkipped, Reason: ReasonNoDetails},
	}}
	r, sleeps := newTestRunner(owned, imp, Denylist{})

	groupDelay := 50 * time.Millisecond
	_, err := r.RunPage(context.Background(), PageParams{
		Limit:        8,
		Concurrency:  4,
		GroupDelay:   groupDelay,
		BackoffDelay: 10 * time.Second,
	})
	require.NoError(t, err)

	require.Len(t, *sleeps, 1)
	assert.Equal(t, groupDelay, (*sleeps)[0])
}

func TestRunPageNoDelayAfterFinalGroup(t *testing.T) {
	owned := &fakeOwned{games: ownedList(1, 2, 3)}
	r, sleeps := newTestRunner(owned, &fakeItemImporter{}, Denylist{})

	_, err := r.RunPage(context.Background(), PageParams{
		Limit:       3,
		Concurrency: 4,
		GroupDelay:  time.Second,
	})
	require.NoError(t, err)
	assert.Empty(t, *sleeps)
}

func TestRunPageCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	owned := &fakeOwned{games: ownedList(1, 2, 3, 4)}
	imp := &fakeItemImporter{}
	r, _ := newTestRunner(owned, imp, Denylist{})

	cancel()
	res, err := r.RunPage(ctx, PageParams{Limit: 4, Concurrency: 2})
	assert.Nil(t, res) // partial results are never returned on abort
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunPageSkipBreakdownAndSamples(t *testing.T) {
	owned := &fakeOwned{games: ownedList(1, 2, 3)}
	imp := &fakeItemImporter{outcomes: map[int64]Outcome{
		1: {AppID: 1, Kind: KindSkipped, Reason: ReasonNoDetails},
		2: {AppID: 2, Kind: KindSkipped, Reason: ReasonAlreadyImported},
		3: {AppID: 3, Kind: KindErrored, Err: "boom"},
	}}
	r, _ := newTestRunner(owned, imp, Denylist{})

	res, err := r.RunPage(context.Background(), PageParams{Limit: 3, Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SkippedCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, 1, res.SkipBreakdown[ReasonNoDetails])
	assert.Equal(t, 1, res.SkipBreakdown[ReasonAlreadyImported])
	assert.Equal(t, []int64{1}, res.Samples[ReasonNoDetails])
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "boom", res.Errors[0].Error)
}

func TestRunPagePublishesEvents(t *testing.T) {
	owned := &fakeOwned{games: ownedList(1, 2)}
	hub := &capturedEvent{}
	r := NewRunner(owned, &fakeItemImporter{}, Denylist{}, hub)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := r.RunPage(context.Background(), PageParams{Limit: 2})
	require.NoError(t, err)
	// one per item plus the page summary
	assert.Len(t, hub.events, 3)
}

func TestRunIDs(t *testing.T) {
	imp := &fakeItemImporter{outcomes: map[int64]Outcome{
		2: {AppID: 2, Kind: KindSkipped, Reason: ReasonNoDetails},
	}}
	r, _ := newTestRunner(&fakeOwned{}, imp, Denylist{})

	res, err := r.RunIDs(context.Background(), []int64{1, 2, 3}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 2, res.ImportedCount)
	assert.Equal(t, 1, res.SkippedCount)
	assert.False(t, res.HasMore)
}
