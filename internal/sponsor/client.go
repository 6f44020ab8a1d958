package sponsor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Client fetches segment lists from a SponsorBlock-compatible API.
// Fetch failures are not fatal to playback: callers log them and continue
// with no segments.
type Client struct {
	baseURL string
	actions map[string]Action
	http    *http.Client
	cache   *lru.Cache[string, []Segment]
	logger  zerolog.Logger
}

func NewClient(baseURL string, actions map[string]Action, timeout time.Duration, cacheSize int, logger zerolog.Logger) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[string, []Segment](cacheSize)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		actions: actions,
		http:    &http.Client{Timeout: timeout},
		cache:   cache,
		logger:  logger,
	}, nil
}

// apiSegment is the wire shape of one segment in the API response.
type apiSegment struct {
	UUID     string     `json:"UUID"`
	Category string     `json:"category"`
	Segment  [2]float64 `json:"segment"`
}

// FetchSegments returns the ordered segment list for videoID, with the
// per-category action already resolved. Results are cached per video; a 404
// (no segments submitted) is cached as an empty list, not an error.
func (c *Client) FetchSegments(ctx context.Context, videoID string) ([]Segment, error) {
	if cached, ok := c.cache.Get(videoID); ok {
		return cached, nil
	}

	categories := make([]string, 0, len(c.actions))
	for cat := range c.actions {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	catJSON, err := json.Marshal(categories)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("videoID", videoID)
	q.Set("categories", string(catJSON))
	endpoint := c.baseURL + "/skipSegments?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.cache.Add(videoID, nil)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("segment source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var raw []apiSegment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing segment response: %w", err)
	}

	segments := make([]Segment, 0, len(raw))
	for _, s := range raw {
		if s.Segment[0] >= s.Segment[1] {
			c.logger.Debug().
				Str("uuid", s.UUID).
				Float64("start", s.Segment[0]).
				Float64("end", s.Segment[1]).
				Msg("dropping segment with non-positive duration")
			continue
		}
		action, ok := c.actions[s.Category]
		if !ok {
			action = ActionSkip
		}
		segments = append(segments, Segment{
			UUID:     s.UUID,
			Category: s.Category,
			Start:    s.Segment[0],
			End:      s.Segment[1],
			Action:   action,
		})
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	c.cache.Add(videoID, segments)
	c.logger.Debug().
		Str("video_id", videoID).
		Int("segments", len(segments)).
		Msg("fetched segment list")
	return segments, nil
}
