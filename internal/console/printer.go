// Package console prints the operator-facing run output: a banner, one
// progress line per submission and a closing summary block.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

var rule = strings.Repeat("=", 50)

// Printer writes run output to w. Write errors are ignored.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, format, args...)
}

// Banner prints the run header.
func (p *Printer) Banner(domain string, at time.Time) {
	p.printf("%s - Indexing API Submission\n%s\nDomain: %s\nTimestamp: %s\n%s\n",
		strings.ToUpper(domain), rule, domain, at.Format(time.RFC3339), rule)
}

// Quota prints today's usage against the allowance.
func (p *Printer) Quota(used, allowance, remaining int) {
	p.printf("Current quota usage: %d/%d requests\nRemaining quota: %d\n", used, allowance, remaining)
}

// QuotaExhausted prints the skip notice.
func (p *Printer) QuotaExhausted() {
	p.printf("Daily quota limit reached. Skipping submission.\n")
}

// NoURLs prints the notice for an empty or unreachable sitemap.
func (p *Printer) NoURLs() {
	p.printf("No URLs found in sitemap. Skipping submission.\n")
}

// Progress prints one line per attempt. It matches submit.ProgressFunc.
func (p *Printer) Progress(position, total int, result indexing.Result) {
	p.printf("Progress: %d/%d - %s - Status: %s\n", position, total, result.URL, result.StatusCode)
}

// Summary prints the closing block.
func (p *Printer) Summary(s indexing.DailySummary) {
	p.printf("%s\nSUBMISSION COMPLETE\nURLs processed: %d\nSuccessful: %d\nFailed: %d\nSuccess rate: %s\n",
		rule, s.TotalURLs, s.Successful, s.Failed, s.SuccessRate)
}
