package importer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gameshelf/internal/events"
	"gameshelf/internal/steam"
)

const (
	// backoffThreshold is the NoDetail failure ratio at which a group is
	// treated as an upstream rate-limit burst. Tunable, not load-bearing.
	backoffThreshold = 0.5

	maxConcurrency   = 10
	defaultPageLimit = 25
	sampleCap        = 8
)

// ownedLister and itemImporter are the Runner's two collaborators, kept as
// interfaces so tests can drive the state machine without a network or a
// database.
type ownedLister interface {
	OwnedGames(ctx context.Context, steamID, apiKey string) ([]steam.OwnedGame, error)
}

type itemImporter interface {
	ImportOne(ctx context.Context, appid int64) Outcome
}

// Broadcaster is satisfied by events.Hub. Nil disables publishing.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Runner pages through the filtered owned list and fans imports out in
// strictly sequential, bounded-concurrency groups.
type Runner struct {
	Owned    ownedLister
	Importer itemImporter
	Denylist Denylist
	Events   Broadcaster

	// stubbed in tests to observe backoff decisions
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(owned ownedLister, imp itemImporter, denylist Denylist, ev Broadcaster) *Runner {
	return &Runner{
		Owned:    owned,
		Importer: imp,
		Denylist: denylist,
		Events:   ev,
		sleep:    sleepCtx,
	}
}

type PageParams struct {
	SteamID      string
	APIKey       string
	Offset       int
	Limit        int
	Concurrency  int
	GroupDelay   time.Duration
	BackoffDelay time.Duration
	Verbose      bool
}

type SkippedItem struct {
	AppID  int64      `json:"appid"`
	Reason SkipReason `json:"reason"`
}

type ItemError struct {
	AppID      int64  `json:"appid"`
	Error      string `json:"error"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

type PageResult struct {
	TotalOwned    int                    `json:"total_owned"`
	Eligible      int                    `json:"eligible"`
	Denylisted    int                    `json:"denylisted"`
	Processed     int                    `json:"processed"`
	ImportedCount int                    `json:"imported_count"`
	SkippedCount  int                    `json:"skipped_count"`
	ErrorCount    int                    `json:"error_count"`
	Imported      []int64                `json:"imported"`
	Skipped       []SkippedItem          `json:"skipped"`
	Errors        []ItemError            `json:"errors"`
	SkipBreakdown map[SkipReason]int     `json:"skip_breakdown"`
	Offset        int                    `json:"offset"`
	Limit         int                    `json:"limit"`
	NextOffset    int                    `json:"next_offset"`
	HasMore       bool                   `json:"has_more"`
	Samples       map[SkipReason][]int64 `json:"samples,omitempty"` // verbose only, capped
}

// RunPage processes one [offset, offset+limit) window of the account's
// eligible owned list. Per-item failures never abort the page; only the
// owned-list fetch itself (or cancellation) surfaces as a top-level error.
func (r *Runner) RunPage(ctx context.Context, p PageParams) (*PageResult, error) {
	owned, err := r.Owned.OwnedGames(ctx, p.SteamID, p.APIKey)
	if err != nil {
		return nil, fmt.Errorf("fetch owned games: %w", err)
	}

	eligible := make([]int64, 0, len(owned))
	for _, g := range owned {
		if !r.Denylist.BlockedApp(g.AppID) {
			eligible = append(eligible, g.AppID)
		}
	}

	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	res := newPageResult(p.Verbose)
	res.TotalOwned = len(owned)
	res.Eligible = len(eligible)
	res.Denylisted = len(owned) - len(eligible)
	res.Offset = offset
	res.Limit = limit

	window := slice(eligible, offset, limit)

	log.Info().
		Int("owned", len(owned)).
		Int("eligible", len(eligible)).
		Int("offset", offset).
		Int("window", len(window)).
		Msg("import page start")

	if err := r.processGroups(ctx, res, window, p.Concurrency, p.GroupDelay, p.BackoffDelay); err != nil {
		// aborted mid-page: partial results are not returned
		return nil, err
	}

	// offset+limit, not offset+processed: forward progress is guaranteed
	// even when the last window comes up short.
	res.NextOffset = offset + limit
	res.HasMore = res.NextOffset < len(eligible)

	r.publish(events.TypeImportPage, res)
	return res, nil
}

// RunIDs imports an explicit id list with the same group machinery and no
// inter-group delays beyond adaptive backoff.
func (r *Runner) RunIDs(ctx context.Context, appids []int64, concurrency int, backoffDelay time.Duration) (*PageResult, error) {
	res := newPageResult(false)
	res.TotalOwned = len(appids)
	res.Eligible = len(appids)
	res.Limit = len(appids)

	if err := r.processGroups(ctx, res, appids, concurrency, 0, backoffDelay); err != nil {
		return nil, err
	}

	res.NextOffset = len(appids)
	r.publish(events.TypeImportPage, res)
	return res, nil
}

// processGroups partitions the window into consecutive concurrency-sized
// groups and runs them strictly in sequence: group N+1 never starts before
// group N's imports and its backoff/delay have completed.
func (r *Runner) processGroups(ctx context.Context, res *PageResult, window []int64, concurrency int, groupDelay, backoffDelay time.Duration) error {
	concurrency = clampConcurrency(concurrency)

	for start := 0; start < len(window); start += concurrency {
		end := start + concurrency
		if end > len(window) {
			end = len(window)
		}
		group := window[start:end]

		outcomes := r.runGroup(ctx, group)
		if err := ctx.Err(); err != nil {
			return err
		}

		// the group completes as a whole before the aggregate is touched
		noDetail := 0
		for _, o := range outcomes {
			res.add(o)
			if o.Kind == KindSkipped && o.Reason == ReasonNoDetails {
				noDetail++
			}
			r.publish(events.TypeImportItem, o)
		}

		if end == len(window) {
			break
		}

		// a NoDetail burst is how the upstream signals rate-limiting
		ratio := float64(noDetail) / float64(len(group))
		if ratio >= backoffThreshold && backoffDelay > 0 {
			d := backoffDelay + jitter(backoffDelay/10)
			log.Warn().
				Float64("ratio", ratio).
				Dur("backoff", d).
				Msg("upstream rejecting requests, backing off")
			if err := r.sleep(ctx, d); err != nil {
				return err
			}
		} else if groupDelay > 0 {
			if err := r.sleep(ctx, groupDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// runGroup fans the group's imports out concurrently and collects every
// settled outcome; member failures never cancel their siblings.
func (r *Runner) runGroup(ctx context.Context, group []int64) []Outcome {
	outcomes := make([]Outcome, len(group))
	var wg sync.WaitGroup
	for i, appid := range group {
		wg.Add(1)
		go func(i int, appid int64) {
			defer wg.Done()
			outcomes[i] = r.Importer.ImportOne(ctx, appid)
		}(i, appid)
	}
	wg.Wait()
	return outcomes
}

func (r *Runner) publish(t events.Type, payload any) {
	if r.Events != nil {
		r.Events.BroadcastJSON(events.Event{Type: t, Payload: payload})
	}
}

func newPageResult(verbose bool) *PageResult {
	res := &PageResult{
		Imported:      []int64{},
		Skipped:       []SkippedItem{},
		Errors:        []ItemError{},
		SkipBreakdown: make(map[SkipReason]int),
	}
	if verbose {
		res.Samples = make(map[SkipReason][]int64)
	}
	return res
}

func (res *PageResult) add(o Outcome) {
	res.Processed++
	switch o.Kind {
	case KindImported:
		res.ImportedCount++
		res.Imported = append(res.Imported, o.AppID)
	case KindSkipped:
		res.SkippedCount++
		res.Skipped = append(res.Skipped, SkippedItem{AppID: o.AppID, Reason: o.Reason})
		res.SkipBreakdown[o.Reason]++
		if res.Samples != nil && len(res.Samples[o.Reason]) < sampleCap {
			res.Samples[o.Reason] = append(res.Samples[o.Reason], o.AppID)
		}
	default:
		res.ErrorCount++
		res.Errors = append(res.Errors, ItemError{AppID: o.AppID, Error: o.Err, HTTPStatus: o.HTTPStatus})
	}
}

func clampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxConcurrency {
		return maxConcurrency
	}
	return n
}

func slice(ids []int64, offset, limit int) []int64 {
	if offset >= len(ids) {
		return nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end]
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
