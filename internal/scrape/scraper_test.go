package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"web-analysis-platform/internal/models"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>  Acme Widgets  </title>
	<meta name="description" content="Widgets for every occasion">
	<script>console.log("should not leak into text")</script>
</head>
<body>
	<h1>Acme Widgets</h1>
	<h2>Our Products</h2>
	<h2>Why Acme</h2>
	<main>
		<p>We build the finest widgets   since 1988.</p>
		<a href="/pricing">Pricing</a>
		<a href="https://partner.example/deal">Partner</a>
		<a href="#section">Skip</a>
		<img src="/logo.png" alt="Acme logo">
	</main>
</body>
</html>`

func TestScrapeExtractsRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	s := New(5*time.Second, "test-agent")
	page, err := s.Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}

	if page.Title != "Acme Widgets" {
		t.Fatalf("title: got %q", page.Title)
	}
	if page.Description != "Widgets for every occasion" {
		t.Fatalf("description: got %q", page.Description)
	}
	if len(page.Headings.H1) != 1 || len(page.Headings.H2) != 2 {
		t.Fatalf("headings: %+v", page.Headings)
	}
	if !strings.Contains(page.Text, "finest widgets since 1988") {
		t.Fatalf("text not collapsed/extracted: %q", page.Text)
	}
	if strings.Contains(page.Text, "should not leak") {
		t.Fatalf("script content leaked into text: %q", page.Text)
	}

	// Relative links resolve against the page URL; fragments are dropped.
	if len(page.Links) != 2 {
		t.Fatalf("links: %+v", page.Links)
	}
	if page.Links[0].URL != srv.URL+"/pricing" {
		t.Fatalf("relative link not resolved: %q", page.Links[0].URL)
	}
	if len(page.Images) != 1 || page.Images[0].Alt != "Acme logo" {
		t.Fatalf("images: %+v", page.Images)
	}
	if page.Markdown == "" {
		t.Fatal("expected markdown rendering")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("日", 10)

	got := truncate(s, 7)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate split a rune: %q", got)
	}
	if utf8.RuneCountInString(got) != 7 {
		t.Fatalf("expected 7 runes, got %d", utf8.RuneCountInString(got))
	}
	if truncate("short", 100) != "short" {
		t.Fatal("strings under the cap must pass through unchanged")
	}
}

func TestScrapeAllDegradesFailedURLs(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	s := New(5*time.Second, "test-agent")
	pages := s.ScrapeAll(context.Background(), []string{good.URL, bad.URL})
	if len(pages) != 2 {
		t.Fatalf("expected a record per url, got %d", len(pages))
	}
	if pages[0].Status != models.PageOK {
		t.Fatalf("expected first page ok: %+v", pages[0])
	}
	if pages[1].Status != models.PageError || !strings.Contains(pages[1].Error, "HTTP 500") {
		t.Fatalf("expected degraded error record: %+v", pages[1])
	}
}
