package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

const orderedSitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc><priority>0.5</priority></url>
  <url><loc>https://example.com/b</loc><priority>1.0</priority></url>
  <url><loc>
    https://example.com/c
  </loc></url>
  <url><lastmod>2024-06-15</lastmod></url>
</urlset>`

const foreignNamespaceXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://example.com/not-sitemaps">
  <url><loc>https://example.com/a</loc></url>
</urlset>`

const invalidSitemapXML = `<not valid xml<<<`

func TestParsePreservesDocumentOrder(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(orderedSitemapXML))
	require.NoError(t, err)
	require.Equal(t, KindURLSet, doc.Kind)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}, doc.Locs)
}

func TestParseSitemapIndex(t *testing.T) {
	t.Parallel()

	body := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-pages.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-blog.xml</loc></sitemap>
</sitemapindex>`
	doc, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Equal(t, KindIndex, doc.Kind)
	require.Equal(t, []string{"https://example.com/sitemap-pages.xml", "https://example.com/sitemap-blog.xml"}, doc.Locs)
}

func TestParseRejectsForeignNamespace(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(foreignNamespaceXML))
	require.Error(t, err)
}

func TestParseRejectsMalformedXML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(invalidSitemapXML))
	require.Error(t, err)
}

func TestFetchURLsOrdered(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "site-indexer-test/1.0" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(orderedSitemapXML))
	}))
	defer srv.Close()

	reader := NewReader(srv.Client(), "site-indexer-test/1.0", zap.NewNop())
	urls, err := reader.FetchURLs(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}, urls)
}

func TestFetchURLsExpandsIndexInOrder(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<sitemapindex xmlns="%s">
  <sitemap><loc>%s/first.xml</loc></sitemap>
  <sitemap><loc>%s/second.xml</loc></sitemap>
</sitemapindex>`, Namespace, srv.URL, srv.URL)
	})
	mux.HandleFunc("/first.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="%s"><url><loc>https://example.com/1</loc></url><url><loc>https://example.com/2</loc></url></urlset>`, Namespace)
	})
	mux.HandleFunc("/second.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="%s"><url><loc>https://example.com/3</loc></url></urlset>`, Namespace)
	})

	urls, err := NewReader(srv.Client(), "", nil).FetchURLs(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}, urls)
}

func TestFetchURLsSkipsFailingChild(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<sitemapindex xmlns="%s">
  <sitemap><loc>%s/first.xml</loc></sitemap>
  <sitemap><loc>%s/broken.xml</loc></sitemap>
  <sitemap><loc>%s/third.xml</loc></sitemap>
</sitemapindex>`, Namespace, srv.URL, srv.URL, srv.URL)
	})
	mux.HandleFunc("/first.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="%s"><url><loc>https://example.com/1</loc></url></urlset>`, Namespace)
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/third.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="%s"><url><loc>https://example.com/3</loc></url></urlset>`, Namespace)
	})

	urls, err := NewReader(srv.Client(), "", nil).FetchURLs(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/1", "https://example.com/3"}, urls)
}

func TestFetchURLsEveryChildFails(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<sitemapindex xmlns="%s"><sitemap><loc>%s/gone.xml</loc></sitemap></sitemapindex>`, Namespace, srv.URL)
	})

	urls, err := NewReader(srv.Client(), "", nil).FetchURLs(context.Background(), srv.URL+"/sitemap.xml")
	require.ErrorIs(t, err, indexing.ErrFetch)
	require.True(t, indexing.IsRecoverable(err))
	require.NotNil(t, urls)
	require.Empty(t, urls)
}

func TestFetchURLsRecoverableFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"server error", http.StatusInternalServerError, "oops", indexing.ErrFetch},
		{"not found", http.StatusNotFound, "", indexing.ErrFetch},
		{"malformed xml", http.StatusOK, invalidSitemapXML, indexing.ErrParse},
		{"empty body", http.StatusOK, "", indexing.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			urls, err := NewReader(srv.Client(), "", nil).FetchURLs(context.Background(), srv.URL)
			require.Error(t, err)
			require.ErrorIs(t, err, tt.sentinel)
			require.True(t, indexing.IsRecoverable(err))
			require.NotNil(t, urls)
			require.Empty(t, urls)
		})
	}
}

func TestFetchURLsNetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	urls, err := NewReader(nil, "", nil).FetchURLs(context.Background(), addr+"/sitemap.xml")
	require.ErrorIs(t, err, indexing.ErrFetch)
	require.True(t, indexing.IsRecoverable(err))
	require.Empty(t, urls)
	require.True(t, strings.Contains(err.Error(), addr))
}
