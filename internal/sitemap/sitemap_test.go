package sitemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const urlsetXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc>https://example.com/about</loc></url>
  <url><loc>https://example.com/about</loc></url>
  <url><loc>https://example.com/pricing</loc></url>
</urlset>`

func newDiscoverer(maxURLs int) *Discoverer {
	return New(2*time.Second, "test-agent", maxURLs)
}

func TestDiscoverURLSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(urlsetXML))
	}))
	defer srv.Close()

	result, err := newDiscoverer(20).Discover(context.Background(), srv.URL+"/some/page")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if result.SitemapURL != srv.URL+"/sitemap.xml" {
		t.Fatalf("sitemap url = %s", result.SitemapURL)
	}
	if result.Total != 3 {
		t.Fatalf("expected 3 deduped urls, got %d: %v", result.Total, result.URLs)
	}
	if result.URLs[0] != "https://example.com/" {
		t.Fatalf("first url = %s", result.URLs[0])
	}
}

func TestDiscoverFallsBackToIndex(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap_index.xml":
			w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + srv.URL + `/posts.xml</loc></sitemap>
</sitemapindex>`))
		case "/posts.xml":
			w.Write([]byte(urlsetXML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	result, err := newDiscoverer(20).Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if result.SitemapURL != srv.URL+"/sitemap_index.xml" {
		t.Fatalf("sitemap url = %s", result.SitemapURL)
	}
	if result.Total != 3 {
		t.Fatalf("expected 3 urls from child sitemap, got %d", result.Total)
	}
}

func TestDiscoverCapsURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(urlsetXML))
	}))
	defer srv.Close()

	result, err := newDiscoverer(2).Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected cap of 2, got %d", result.Total)
	}
}

func TestDiscoverNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newDiscoverer(20).Discover(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for site without sitemap")
	}
}

func TestDiscoverRejectsInvalidURL(t *testing.T) {
	if _, err := newDiscoverer(20).Discover(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}
