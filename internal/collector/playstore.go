package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultPlayStoreURL = "https://play.google.com"
	batchExecutePath    = "/_/PlayStoreUi/data/batchexecute"
	responsePrefix      = ")]}'"
	maxPageSize         = 200
)

// PlayStore fetches reviews from Google Play's batchexecute endpoint, paging
// with continuation tokens until the requested count is reached.
type PlayStore struct {
	client   *resty.Client
	limiter  *rate.Limiter
	pageSize int
}

// NewPlayStore creates a Play Store source. baseURL may be empty for the
// public endpoint; requestsPerSecond paces page requests.
func NewPlayStore(baseURL string, pageSize int, requestsPerSecond float64) *PlayStore {
	if baseURL == "" {
		baseURL = DefaultPlayStoreURL
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	return &PlayStore{
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		pageSize: pageSize,
	}
}

func (p *PlayStore) Fetch(ctx context.Context, req FetchRequest) ([]Fetched, error) {
	if req.AppID == "" {
		return nil, fmt.Errorf("app id is required")
	}
	var (
		out   []Fetched
		token string
	)
	for len(out) < req.Count {
		n := min(p.pageSize, req.Count-len(out))
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, next, err := p.fetchPage(ctx, req, n, token)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" || len(page) == 0 {
			break
		}
		token = next
	}
	if len(out) > req.Count {
		out = out[:req.Count]
	}
	return out, nil
}

func (p *PlayStore) fetchPage(ctx context.Context, req FetchRequest, count int, token string) ([]Fetched, string, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"hl": req.Lang, "gl": req.Country}).
		SetBody("f.req=" + url.QueryEscape(reviewsPayload(req.AppID, req.Sort, count, token))).
		Post(batchExecutePath)
	if err != nil {
		return nil, "", fmt.Errorf("requesting reviews for %s: %w", req.AppID, err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("requesting reviews for %s: status %d", req.AppID, resp.StatusCode())
	}
	return parseReviewsResponse(resp.String())
}

func reviewsPayload(appID string, sort Sort, count int, token string) string {
	tok := "null"
	if token != "" {
		tok = fmt.Sprintf(`\"%s\"`, token)
	}
	inner := fmt.Sprintf(`[null,null,[2,%d,[%d,null,%s],null,[null,null]],[\"%s\",7]]`, sort, count, tok, appID)
	return fmt.Sprintf(`[[["UsvDTd","%s",null,"generic"]]]`, inner)
}

// parseReviewsResponse decodes the envelope: a guarded JSON array whose
// [0][2] element is itself a JSON document holding reviews and the next token.
func parseReviewsResponse(body string) ([]Fetched, string, error) {
	idx := strings.Index(body, responsePrefix)
	if idx < 0 {
		return nil, "", fmt.Errorf("unexpected response: missing %q guard", responsePrefix)
	}
	var envelope []interface{}
	if err := json.NewDecoder(strings.NewReader(body[idx+len(responsePrefix):])).Decode(&envelope); err != nil {
		return nil, "", fmt.Errorf("decoding response envelope: %w", err)
	}

	payload, ok := at(envelope, 0, 2).(string)
	if !ok {
		// no reviews for this app/locale
		return nil, "", nil
	}
	var data []interface{}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, "", fmt.Errorf("decoding review payload: %w", err)
	}

	items, _ := at(data, 0).([]interface{})
	reviews := make([]Fetched, 0, len(items))
	for _, item := range items {
		r, ok := item.([]interface{})
		if !ok {
			continue
		}
		f := Fetched{
			ID:         str(at(r, 0)),
			UserName:   str(at(r, 1, 0)),
			Content:    str(at(r, 4)),
			Score:      int(num(at(r, 2))),
			ThumbsUp:   int(num(at(r, 6))),
			AppVersion: str(at(r, 10)),
		}
		if secs := num(at(r, 5, 0)); secs > 0 {
			f.At = time.Unix(int64(secs), 0).UTC()
		}
		reviews = append(reviews, f)
	}

	var token string
	if len(data) >= 2 {
		if tail, ok := data[len(data)-2].([]interface{}); ok && len(tail) > 0 {
			token = str(tail[len(tail)-1])
		}
	}
	return reviews, token, nil
}

// at walks nested JSON arrays, returning nil when any step is missing.
func at(v interface{}, path ...int) interface{} {
	for _, i := range path {
		arr, ok := v.([]interface{})
		if !ok || i < 0 || i >= len(arr) {
			return nil
		}
		v = arr[i]
	}
	return v
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func num(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}
