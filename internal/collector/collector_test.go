package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/logging"
	"github.com/reviewlens/reviewlens/internal/review"
)

// instantTimer fires immediately and counts how often a sleep was requested.
type instantTimer struct {
	starts int
	waits  []time.Duration
	ch     chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{ch: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.starts++
	t.waits = append(t.waits, d)
	t.ch <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.ch }

var errUnavailable = errors.New("service unavailable")

func testConfig(t *testing.T, banks ...config.Bank) config.Config {
	t.Helper()
	cfg := config.Default()
	if len(banks) > 0 {
		cfg.Banks = banks
	}
	cfg.Dirs.Raw = t.TempDir()
	cfg.Scraper.RetryDelay = 2 * time.Second
	return cfg
}

func sampleReviews(n int) []Fetched {
	out := make([]Fetched, n)
	for i := range out {
		out[i] = Fetched{
			ID:      fmt.Sprintf("r%d", i),
			Content: fmt.Sprintf("review number %d", i),
			Score:   i%5 + 1,
			At:      time.Date(2024, 5, 1+i, 9, 30, 0, 0, time.UTC),
		}
	}
	return out
}

func TestFetchWithRetry_SucceedsOnThirdAttempt(t *testing.T) {
	cbe := config.Bank{Code: "CBE", Name: "Commercial Bank of Ethiopia", AppID: "com.combanketh.mobilebanking"}
	cfg := testConfig(t, cbe)
	src := NewMockSource().On(cbe.AppID,
		MockResponse{Err: errUnavailable},
		MockResponse{Err: errUnavailable},
		MockResponse{Reviews: sampleReviews(4)},
	)
	timer := newInstantTimer()

	c := New(cfg, src, logging.Discard())
	c.Timer = timer

	got, attempts, err := c.FetchWithRetry(context.Background(), cbe)
	if err != nil {
		t.Fatalf("FetchWithRetry() error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("expected 4 reviews, got %d", len(got))
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if timer.starts != 2 {
		t.Errorf("expected 2 sleeps, got %d", timer.starts)
	}
	for _, w := range timer.waits {
		if w != 2*time.Second {
			t.Errorf("expected fixed 2s delay, got %s", w)
		}
	}
}

func TestFetchWithRetry_Exhausted(t *testing.T) {
	boa := config.Bank{Code: "BOA", Name: "Bank of Abyssinia", AppID: "com.boa.boaMobileBanking"}
	cfg := testConfig(t, boa)
	src := NewMockSource().On(boa.AppID, MockResponse{Err: errUnavailable})
	timer := newInstantTimer()

	c := New(cfg, src, logging.Discard())
	c.Timer = timer

	got, attempts, err := c.FetchWithRetry(context.Background(), boa)
	if !errors.Is(err, errUnavailable) {
		t.Fatalf("expected last error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no reviews, got %d", len(got))
	}
	if attempts != 3 || src.Calls[boa.AppID] != 3 {
		t.Errorf("expected 3 attempts, got %d (calls %d)", attempts, src.Calls[boa.AppID])
	}
	if timer.starts != 2 {
		t.Errorf("expected 2 sleeps, got %d", timer.starts)
	}
}

func TestFetchWithRetry_SingleAttempt(t *testing.T) {
	bank := config.Bank{Code: "X", Name: "X Bank", AppID: "com.x"}
	cfg := testConfig(t, bank)
	cfg.Scraper.MaxAttempts = 1
	src := NewMockSource().On(bank.AppID, MockResponse{Err: errUnavailable})
	timer := newInstantTimer()

	c := New(cfg, src, logging.Discard())
	c.Timer = timer

	if _, _, err := c.FetchWithRetry(context.Background(), bank); err == nil {
		t.Fatal("expected error")
	}
	if timer.starts != 0 {
		t.Errorf("expected no sleeps, got %d", timer.starts)
	}
}

func TestCollect_ContinuesAfterExhaustedBank(t *testing.T) {
	cfg := testConfig(t)
	cbe, boa, dashen := cfg.Banks[0], cfg.Banks[1], cfg.Banks[2]
	src := NewMockSource().
		On(cbe.AppID, MockResponse{Reviews: sampleReviews(3)}).
		On(boa.AppID, MockResponse{Err: errUnavailable}).
		On(dashen.AppID, MockResponse{Err: errUnavailable}, MockResponse{Reviews: sampleReviews(2)})

	c := New(cfg, src, logging.Discard())
	c.Timer = newInstantTimer()
	c.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	res, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if res.Total != 5 {
		t.Errorf("expected 5 reviews total, got %d", res.Total)
	}
	if res.Failed() != 1 {
		t.Errorf("expected 1 failed bank, got %d", res.Failed())
	}
	if len(res.Banks) != 3 {
		t.Fatalf("expected 3 bank results, got %d", len(res.Banks))
	}
	if res.Banks[1].Reviews != 0 || res.Banks[1].CSVPath != "" {
		t.Errorf("exhausted bank should have no output: %+v", res.Banks[1])
	}

	files, _ := filepath.Glob(filepath.Join(cfg.Dirs.Raw, "*_reviews_*.csv"))
	if len(files) != 2 {
		t.Fatalf("expected 2 review files, got %v", files)
	}

	csvPath := filepath.Join(cfg.Dirs.Raw, "cbe_reviews_20240601_120000.csv")
	rows, err := review.ReadRaw(csvPath)
	if err != nil {
		t.Fatalf("ReadRaw() error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].BankName != "CBE" || rows[0].Source != review.SourceGooglePlay {
		t.Errorf("unexpected row: %+v", rows[0])
	}
	if rows[0].Date != "2024-05-01" {
		t.Errorf("unexpected date %q", rows[0].Date)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Dirs.Raw, "cbe_metadata_20240601_120000.json"))
	if err != nil {
		t.Fatalf("reading metadata: %v", err)
	}
	var meta review.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("decoding metadata: %v", err)
	}
	if meta.TotalReviews != 3 || meta.AppID != cbe.AppID || meta.RunID != res.RunID {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.ConfigUsed == nil {
		t.Error("expected config_used to be recorded")
	}
}

func TestCollect_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(cfg, NewMockSource(), logging.Discard())
	if _, err := c.Collect(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func playResponse(t *testing.T, reviews [][]interface{}, token string) string {
	var tail interface{}
	if token != "" {
		tail = []interface{}{nil, token}
	}
	inner, err := json.Marshal([]interface{}{reviews, tail, nil})
	if err != nil {
		t.Error(err)
	}
	outer, err := json.Marshal([]interface{}{[]interface{}{"wrb.fr", "UsvDTd", string(inner), nil, nil, nil, "generic"}})
	if err != nil {
		t.Error(err)
	}
	return ")]}'\n\n" + string(outer)
}

func playReview(id, user, content string, score int, at int64) []interface{} {
	return []interface{}{id, []interface{}{user}, score, nil, content, []interface{}{at, 0}, 2, nil, nil, nil, "3.1.0"}
}

func TestPlayStore_Paginates(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != batchExecutePath {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("hl") != "en" || r.URL.Query().Get("gl") != "et" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
			return
		}
		freq := r.PostForm.Get("f.req")
		requests = append(requests, freq)

		if strings.Contains(freq, `\"TOKEN1\"`) {
			fmt.Fprint(w, playResponse(t, [][]interface{}{
				playReview("c", "carol", "slow to load", 2, 1714694400),
			}, ""))
			return
		}
		fmt.Fprint(w, playResponse(t, [][]interface{}{
			playReview("a", "alice", "great app", 5, 1714521600),
			playReview("b", "bob", "cannot login", 1, 1714608000),
		}, "TOKEN1"))
	}))
	defer srv.Close()

	p := NewPlayStore(srv.URL, 2, 0)
	got, err := p.Fetch(context.Background(), FetchRequest{
		AppID: "com.combanketh.mobilebanking", Lang: "en", Country: "et", Sort: SortNewest, Count: 3,
	})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 page requests, got %d", len(requests))
	}
	if !strings.Contains(requests[0], "com.combanketh.mobilebanking") || !strings.Contains(requests[0], "[2,2,[2,null,null]") {
		t.Errorf("unexpected first payload %s", requests[0])
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(got))
	}
	want := Fetched{ID: "a", UserName: "alice", Content: "great app", Score: 5,
		At: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), ThumbsUp: 2, AppVersion: "3.1.0"}
	if got[0] != want {
		t.Errorf("got %+v, want %+v", got[0], want)
	}
	if got[2].Content != "slow to load" {
		t.Errorf("unexpected third review %+v", got[2])
	}
}

func TestPlayStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewPlayStore(srv.URL, 200, 0)
	if _, err := p.Fetch(context.Background(), FetchRequest{AppID: "com.x", Count: 10}); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestParseReviewsResponse_Empty(t *testing.T) {
	got, token, err := parseReviewsResponse(")]}'\n\n[[\"wrb.fr\",\"UsvDTd\",null]]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || token != "" {
		t.Errorf("expected empty page, got %d reviews, token %q", len(got), token)
	}

	if _, _, err := parseReviewsResponse("<html>blocked</html>"); err == nil {
		t.Error("expected error for unguarded body")
	}
}
