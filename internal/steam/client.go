package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
)

const (
	defaultStoreURL = "https://store.steampowered.com"
	defaultAPIURL   = "https://api.steampowered.com"

	retryAttempts = 3
)

// ErrNoAppDetails means the storefront answered but had nothing usable for
// the appid: an explicit success:false, a 404/422, or an unrecognizable body.
var ErrNoAppDetails = errors.New("appdetails returned no data")

// HTTPStatusError carries a non-200 upstream status through the retry layer
// so callers can classify it.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Client talks to the storefront (appdetails, appreviews) and the web API
// (owned games). Zero-value delays are replaced with sane defaults; tests
// set them explicitly to keep runs fast.
type Client struct {
	HTTP     *http.Client
	StoreURL string
	APIURL   string

	// delay between appdetails attempt profiles; the pause before the last
	// profile is LongDelay instead.
	ShortDelay time.Duration
	LongDelay  time.Duration
	RetryDelay time.Duration
}

func NewClient(storeURL, apiURL string) *Client {
	if storeURL == "" {
		storeURL = defaultStoreURL
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		HTTP:       &http.Client{Timeout: 15 * time.Second},
		StoreURL:   storeURL,
		APIURL:     apiURL,
		ShortDelay: 400 * time.Millisecond,
		LongDelay:  3 * time.Second,
		RetryDelay: 500 * time.Millisecond,
	}
}

// detailProfiles vary the request across attempts. The store answers 403 to
// anything that smells automated or age-gated; flipping the field filter and
// the mature-content cookie between attempts is what unsticks it.
var detailProfiles = []struct {
	filtered     bool
	matureCookie bool
}{
	{filtered: false, matureCookie: false},
	{filtered: true, matureCookie: false},
	{filtered: false, matureCookie: true},
	{filtered: true, matureCookie: true},
}

// AppDetails fetches one app's metadata. A (nil, ErrNoAppDetails) return is
// the normal "store has nothing for this id" outcome; any other error is a
// transport-level failure that exhausted its retries.
func (c *Client) AppDetails(ctx context.Context, appid int64) (*DetailPayload, error) {
	var lastErr error

	for i, profile := range detailProfiles {
		if i > 0 {
			if err := sleepCtx(ctx, c.profileDelay(i)); err != nil {
				return nil, err
			}
		}

		body, err := c.get(ctx, c.detailURL(appid, profile.filtered), profile.matureCookie)
		if err != nil {
			var se *HTTPStatusError
			if errors.As(err, &se) {
				if se.Status == http.StatusForbidden {
					// anti-automation signal, not a real failure: next profile
					log.Debug().Int64("appid", appid).Int("attempt", i+1).Msg("appdetails 403, rotating request profile")
					lastErr = err
					continue
				}
				if se.Status >= 400 && se.Status < 500 {
					return nil, fmt.Errorf("appdetails %d: %w", appid, ErrNoAppDetails)
				}
			}
			lastErr = err
			continue
		}

		shape, ok, payload := DecodeDetail(appid, body)
		if !ok || payload == nil {
			lastErr = fmt.Errorf("appdetails %d (shape %s): %w", appid, shape, ErrNoAppDetails)
			continue
		}
		return payload, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("appdetails %d: %w", appid, ErrNoAppDetails)
	}
	return nil, lastErr
}

// ReviewSummary fetches the aggregate review score. Reviews are optional
// enrichment: any failure is logged and swallowed.
func (c *Client) ReviewSummary(ctx context.Context, appid int64) *ReviewSummary {
	u := fmt.Sprintf("%s/appreviews/%d?json=1&language=all&purchase_type=all&num_per_page=0", c.StoreURL, appid)

	body, err := c.get(ctx, u, false)
	if err != nil {
		log.Debug().Err(err).Int64("appid", appid).Msg("review summary unavailable")
		return nil
	}

	var resp struct {
		Success      int            `json:"success"`
		QuerySummary *ReviewSummary `json:"query_summary"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Success != 1 {
		return nil
	}
	return resp.QuerySummary
}

// OwnedGames fetches the account's full owned list. Private or empty
// profiles produce an empty slice, not an error. Entries arrive either as
// objects or as bare numeric ids depending on API vintage; both are
// normalized.
func (c *Client) OwnedGames(ctx context.Context, steamID, apiKey string) ([]OwnedGame, error) {
	u, err := url.Parse(c.APIURL + "/IPlayerService/GetOwnedGames/v1/")
	if err != nil {
		return nil, fmt.Errorf("owned games url: %w", err)
	}
	q := u.Query()
	q.Set("key", apiKey)
	q.Set("steamid", steamID)
	q.Set("include_played_free_games", "1")
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String(), false)
	if err != nil {
		return nil, fmt.Errorf("owned games: %w", err)
	}

	var resp struct {
		Response struct {
			GameCount int               `json:"game_count"`
			Games     []json.RawMessage `json:"games"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("owned games decode: %w", err)
	}

	out := make([]OwnedGame, 0, len(resp.Response.Games))
	for _, raw := range resp.Response.Games {
		var g OwnedGame
		if err := json.Unmarshal(raw, &g); err == nil && g.AppID != 0 {
			out = append(out, g)
			continue
		}
		var id int64
		if err := json.Unmarshal(raw, &id); err == nil && id != 0 {
			out = append(out, OwnedGame{AppID: id})
		}
	}
	return out, nil
}

func (c *Client) detailURL(appid int64, filtered bool) string {
	u, _ := url.Parse(c.StoreURL + "/api/appdetails")
	q := u.Query()
	q.Set("appids", strconv.FormatInt(appid, 10))
	q.Set("l", "en")
	q.Set("cc", "us")
	if filtered {
		q.Set("filters", "basic,developers,publishers,platforms,metacritic,categories,genres,screenshots,release_date")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// get runs one GET with up to retryAttempts tries. Only network failures and
// 5xx are retried; 4xx is an immediately classifiable outcome, not a fault.
func (c *Client) get(ctx context.Context, rawURL string, matureCookie bool) ([]byte, error) {
	var body []byte

	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("build request: %w", err))
		}
		if matureCookie {
			req.AddCookie(&http.Cookie{Name: "birthtime", Value: "0"})
			req.AddCookie(&http.Cookie{Name: "mature_content", Value: "1"})
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		b, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return &HTTPStatusError{Status: resp.StatusCode, Body: truncate(b, 200)}
		}
		body = b
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(c.retryDelay()),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
	return body, err
}

func isTransient(err error) bool {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	return true
}

func (c *Client) retryDelay() time.Duration {
	if c.RetryDelay > 0 {
		return c.RetryDelay
	}
	return time.Millisecond
}

func (c *Client) profileDelay(attempt int) time.Duration {
	if attempt == len(detailProfiles)-1 {
		return c.LongDelay
	}
	return c.ShortDelay + jitter(c.ShortDelay)
}

func jitter(d time.Duration) time.Duration {
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

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
