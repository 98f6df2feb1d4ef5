package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
)

var testNow = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)

const techFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Tech</title><link>https://tech.example</link><description>d</description>
<item><title>Fresh model launch</title><link>https://tech.example/fresh</link><description>&lt;p&gt;New &lt;b&gt;model&lt;/b&gt; released&lt;/p&gt;</description><pubDate>Wed, 14 Oct 2026 08:00:00 +0000</pubDate></item>
<item><title>Old news</title><link>https://tech.example/old</link><description>old</description><pubDate>Mon, 12 Oct 2026 08:00:00 +0000</pubDate></item>
<item><title>Undated</title><link>https://tech.example/undated</link><description>no date</description></item>
</channel></rss>`

const labFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>Lab</title><id>urn:lab</id><updated>2026-10-14T10:00:00Z</updated>
<entry><title>Lab result</title><link href="https://lab.example/result"/><id>urn:1</id><updated>2026-10-14T10:00:00Z</updated><content type="html">&lt;p&gt;Full body&lt;/p&gt;</content></entry>
</feed>`

func rssItem(title, link, body string, pub time.Time) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><description>%s</description><pubDate>%s</pubDate></item>`,
		title, link, body, pub.Format(time.RFC1123Z))
}

func rssDoc(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>x</title><link>https://x.example</link><description>x</description>` +
		strings.Join(items, "") + `</channel></rss>`
}

func feedServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if body == "" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/xml")
			_, _ = io.WriteString(w, body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestCollector(srv *httptest.Server, concurrency int) *Collector {
	c := NewCollector(Options{Client: srv.Client(), Window: 24 * time.Hour, Concurrency: concurrency})
	c.now = func() time.Time { return testNow }
	return c
}

func TestCollectFiltersAndIsolatesSources(t *testing.T) {
	srv := feedServer(t, map[string]string{
		"/tech":   techFeed,
		"/broken": "",
		"/lab":    labFeed,
	})
	c := newTestCollector(srv, 1)

	res := c.Collect(context.Background(), []Source{
		{Name: "Tech", URL: srv.URL + "/tech"},
		{Name: "Broken", URL: srv.URL + "/broken"},
		{Name: "Lab", URL: srv.URL + "/lab"},
	})

	if len(res.SourceErrors) != 1 || res.SourceErrors[0].Source.Name != "Broken" {
		t.Fatalf("expected one source error for Broken, got %+v", res.SourceErrors)
	}
	if res.SourcesOK != 2 {
		t.Errorf("expected 2 sources ok, got %d", res.SourcesOK)
	}
	if len(res.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d: %+v", len(res.Articles), res.Articles)
	}

	fresh := res.Articles[0]
	if fresh.URL != "https://tech.example/fresh" || fresh.Source != "Tech" {
		t.Errorf("unexpected first article: %+v", fresh)
	}
	if fresh.Content != "New model released" {
		t.Errorf("expected markup stripped, got %q", fresh.Content)
	}
	if !fresh.PublishedAt.Equal(time.Date(2026, time.October, 14, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected published time %v", fresh.PublishedAt)
	}

	lab := res.Articles[1]
	if lab.Title != "Lab result" || lab.Content != "Full body" {
		t.Errorf("expected content fallback for atom entry, got %+v", lab)
	}

	reasons := map[SkipReason]int{}
	for _, s := range res.Skipped {
		reasons[s.Reason]++
	}
	if reasons[SkipExpired] != 1 || reasons[SkipNoTimestamp] != 1 {
		t.Errorf("unexpected skip reasons: %v", reasons)
	}
}

func TestCollectTruncatesContent(t *testing.T) {
	long := strings.Repeat("é", 2500)
	srv := feedServer(t, map[string]string{
		"/long": rssDoc(rssItem("Long", "https://x.example/long", long, testNow.Add(-time.Hour))),
	})
	c := newTestCollector(srv, 1)

	res := c.Collect(context.Background(), []Source{{Name: "Long", URL: srv.URL + "/long"}})
	if len(res.Articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(res.Articles))
	}
	if n := utf8.RuneCountInString(res.Articles[0].Content); n != 2000 {
		t.Errorf("expected 2000 runes, got %d", n)
	}
}

func TestCollectDropsDuplicateURLs(t *testing.T) {
	item := rssItem("Same", "https://x.example/same", "body", testNow.Add(-time.Hour))
	srv := feedServer(t, map[string]string{
		"/a": rssDoc(item),
		"/b": rssDoc(item, rssItem("Other", "https://x.example/other", "b", testNow.Add(-2*time.Hour))),
	})
	c := newTestCollector(srv, 1)

	res := c.Collect(context.Background(), []Source{
		{Name: "A", URL: srv.URL + "/a"},
		{Name: "B", URL: srv.URL + "/b"},
	})
	if len(res.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(res.Articles))
	}
	if res.Articles[0].Source != "A" {
		t.Errorf("expected first occurrence to win, got %s", res.Articles[0].Source)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != SkipDuplicate {
		t.Errorf("expected one duplicate skip, got %+v", res.Skipped)
	}
}

func TestCollectConcurrentKeepsSourceOrder(t *testing.T) {
	routes := map[string]string{}
	var sources []Source
	for i := 0; i < 6; i++ {
		path := fmt.Sprintf("/f%d", i)
		routes[path] = rssDoc(rssItem(fmt.Sprintf("Item %d", i), fmt.Sprintf("https://x.example/%d", i), "b", testNow.Add(-time.Hour)))
		sources = append(sources, Source{Name: fmt.Sprintf("F%d", i), URL: path})
	}
	srv := feedServer(t, routes)
	for i := range sources {
		sources[i].URL = srv.URL + sources[i].URL
	}
	c := newTestCollector(srv, 4)

	res := c.Collect(context.Background(), sources)
	if len(res.Articles) != 6 {
		t.Fatalf("expected 6 articles, got %d", len(res.Articles))
	}
	for i, a := range res.Articles {
		if a.Source != fmt.Sprintf("F%d", i) {
			t.Errorf("position %d: got source %s", i, a.Source)
		}
	}
}

func TestResolvePublished(t *testing.T) {
	published := time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)
	updated := time.Date(2026, time.October, 13, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		item     gofeed.Item
		wantKind stampKind
		want     time.Time
	}{
		{
			name:     "structured published wins",
			item:     gofeed.Item{PublishedParsed: &published, Published: "garbage", UpdatedParsed: &updated},
			wantKind: stampPublished,
			want:     published,
		},
		{
			name:     "free text published",
			item:     gofeed.Item{Published: "May 8, 2026 5:57:51 PM", UpdatedParsed: &updated},
			wantKind: stampPublishedText,
			want:     time.Date(2026, time.May, 8, 17, 57, 51, 0, time.UTC),
		},
		{
			name:     "unparseable text falls back to updated",
			item:     gofeed.Item{Published: "sometime last week", UpdatedParsed: &updated},
			wantKind: stampUpdated,
			want:     updated,
		},
		{
			name:     "updated only",
			item:     gofeed.Item{UpdatedParsed: &updated},
			wantKind: stampUpdated,
			want:     updated,
		},
		{
			name:     "nothing resolvable",
			item:     gofeed.Item{Published: "n/a"},
			wantKind: stampNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind := resolvePublished(&tt.item)
			if kind != tt.wantKind {
				t.Fatalf("kind = %d, want %d", kind, tt.wantKind)
			}
			if kind != stampNone && !got.Equal(tt.want) {
				t.Errorf("time = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntryToArticleRequiresTitleAndLink(t *testing.T) {
	c := NewCollector(Options{})
	pub := testNow.Add(-time.Hour)
	cutoff := testNow.Add(-24 * time.Hour)
	src := Source{Name: "S"}

	if _, reason := c.entryToArticle(&gofeed.Item{Link: "https://x", PublishedParsed: &pub}, src, cutoff); reason != SkipNoTitle {
		t.Errorf("expected no_title, got %q", reason)
	}
	if _, reason := c.entryToArticle(&gofeed.Item{Title: "T", PublishedParsed: &pub}, src, cutoff); reason != SkipNoLink {
		t.Errorf("expected no_link, got %q", reason)
	}
	a, reason := c.entryToArticle(&gofeed.Item{Title: " T ", Link: "https://x", Description: "  ", Content: "c", PublishedParsed: &pub}, src, cutoff)
	if reason != "" {
		t.Fatalf("unexpected skip %q", reason)
	}
	if a.Title != "T" || a.Content != "c" {
		t.Errorf("unexpected article %+v", a)
	}
}

func TestBodyOfSkipsMarkupOnlySummary(t *testing.T) {
	tests := []struct {
		name string
		item gofeed.Item
		want string
	}{
		{"summary text wins", gofeed.Item{Description: "<p>Short</p>", Content: "<p>Long body</p>"}, "Short"},
		{"image only summary", gofeed.Item{Description: `<img src="https://x.example/a.png"/>`, Content: "<p>Long body</p>"}, "Long body"},
		{"blank summary", gofeed.Item{Description: "  ", Content: "body"}, "body"},
		{"nothing", gofeed.Item{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bodyOf(&tt.item); got != tt.want {
				t.Errorf("bodyOf = %q, want %q", got, tt.want)
			}
		})
	}
}
