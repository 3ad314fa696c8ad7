// Package sitemap fetches a sitemap (or sitemap index) and returns its page
// URLs in document order. Order matters: it decides which pages are
// submitted first when the quota cannot cover them all.
package sitemap

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Namespace is the sitemap protocol namespace; elements outside it are ignored.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// maxBodyBytes is the protocol's 50MB cap on an uncompressed sitemap.
const maxBodyBytes = 50 << 20

// Kind distinguishes a URL set from a sitemap index.
type Kind int

// Document kinds.
const (
	KindURLSet Kind = iota + 1
	KindIndex
)

// Document is a parsed sitemap. Locs are page URLs for KindURLSet and
// child sitemap URLs for KindIndex.
type Document struct {
	Kind Kind
	Locs []string
}

type xmlDocument struct {
	XMLName  xml.Name
	URLs     []xmlEntry `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 url"`
	Sitemaps []xmlEntry `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 sitemap"`
}

type xmlEntry struct {
	Loc string `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 loc"`
}

// Parse decodes a sitemap body. Entries without a loc are skipped.
func Parse(body []byte) (Document, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("decode xml: %w", err)
	}
	if doc.XMLName.Space != Namespace {
		return Document{}, fmt.Errorf("root element %q is not in namespace %s", doc.XMLName.Local, Namespace)
	}
	switch doc.XMLName.Local {
	case "urlset":
		return Document{Kind: KindURLSet, Locs: locs(doc.URLs)}, nil
	case "sitemapindex":
		return Document{Kind: KindIndex, Locs: locs(doc.Sitemaps)}, nil
	default:
		return Document{}, fmt.Errorf("unexpected root element %q", doc.XMLName.Local)
	}
}

func locs(entries []xmlEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		loc := strings.TrimSpace(e.Loc)
		if loc == "" {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// Reader fetches sitemaps over HTTP.
type Reader struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewReader builds a Reader. A nil client means http.DefaultClient.
func NewReader(client *http.Client, userAgent string, logger *zap.Logger) *Reader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{client: client, userAgent: userAgent, logger: logger}
}

// FetchURLs returns the page URLs of sitemapURL in document order. A
// sitemap index is expanded one level, children in index order; a child that
// cannot be read is skipped. Failures are recoverable *indexing.Error values
// wrapping ErrFetch or ErrParse, returned together with an empty slice. An
// index whose every child fails returns the last child error.
func (r *Reader) FetchURLs(ctx context.Context, sitemapURL string) ([]string, error) {
	doc, err := r.fetch(ctx, sitemapURL)
	if err != nil {
		return r.fail(sitemapURL, err)
	}
	if doc.Kind == KindURLSet {
		r.logger.Info("found URLs in sitemap", zap.String("sitemap", sitemapURL), zap.Int("total", len(doc.Locs)))
		return doc.Locs, nil
	}

	r.logger.Info("expanding sitemap index", zap.String("sitemap", sitemapURL), zap.Int("children", len(doc.Locs)))
	urls := make([]string, 0)
	var lastErr error
	read := 0
	for _, child := range doc.Locs {
		childDoc, err := r.fetch(ctx, child)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(child, err)
			}
			r.logger.Warn("skipping unreadable child sitemap", zap.String("sitemap", child), zap.Error(err))
			lastErr = err
			continue
		}
		read++
		if childDoc.Kind != KindURLSet {
			r.logger.Warn("skipping nested sitemap index", zap.String("sitemap", child))
			continue
		}
		urls = append(urls, childDoc.Locs...)
	}
	if read == 0 && lastErr != nil {
		return r.fail(sitemapURL, lastErr)
	}
	r.logger.Info("found URLs in sitemap", zap.String("sitemap", sitemapURL), zap.Int("total", len(urls)))
	return urls, nil
}

func (r *Reader) fail(sitemapURL string, err error) ([]string, error) {
	r.logger.Warn("error fetching sitemap", zap.String("sitemap", sitemapURL), zap.Error(err))
	return []string{}, err
}

func (r *Reader) fetch(ctx context.Context, sitemapURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return Document{}, fetchError(sitemapURL, fmt.Errorf("build request: %w", err))
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "application/xml, text/xml;q=0.9, */*;q=0.1")

	resp, err := r.client.Do(req)
	if err != nil {
		return Document{}, fetchError(sitemapURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Document{}, fetchError(sitemapURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return Document{}, fetchError(sitemapURL, fmt.Errorf("read body: %w", err))
	}
	if len(body) > maxBodyBytes {
		return Document{}, parseError(sitemapURL, errors.New("sitemap exceeds 50MB"))
	}

	doc, err := Parse(body)
	if err != nil {
		return Document{}, parseError(sitemapURL, err)
	}
	return doc, nil
}

func fetchError(sitemapURL string, err error) error {
	return indexing.NewError(indexing.KindRecoverable, "fetch sitemap", sitemapURL, indexing.ErrFetch, err)
}

func parseError(sitemapURL string, err error) error {
	return indexing.NewError(indexing.KindRecoverable, "parse sitemap", sitemapURL, indexing.ErrParse, err)
}
