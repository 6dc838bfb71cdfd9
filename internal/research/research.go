// Package research pulls readable text from a trend's source links to build
// the generator's prompt context.
package research

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/porkreport/porkbot/internal/ratelimit"
)

const maxFindingLength = 1500

// Fetcher fetches source pages and extracts their readable text.
type Fetcher struct {
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewFetcher creates a research fetcher. The limiter guards the shared
// short-window read-fetch quota; nil disables throttling.
func NewFetcher(timeout time.Duration, limiter *ratelimit.Limiter) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		limiter: limiter,
	}
}

// Fetch extracts readable text from each link. Failures are logged and
// skipped; a domain that fails once is not retried within the call.
func (f *Fetcher) Fetch(ctx context.Context, links []string) []string {
	var findings []string
	failedDomains := make(map[string]struct{})

	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil || u.Host == "" {
			continue
		}
		domain := strings.ToLower(u.Host)
		if _, failed := failedDomains[domain]; failed {
			continue
		}

		if f.limiter != nil {
			if err := f.limiter.Acquire(ctx, 1); err != nil {
				log.Printf("Research fetch aborted: %v", err)
				return findings
			}
		}

		text, err := f.fetchReadable(ctx, link)
		if err != nil {
			failedDomains[domain] = struct{}{}
			log.Printf("Research fetch failed for %s, skipping remaining from %s", link, domain)
			continue
		}
		if text != "" {
			findings = append(findings, text)
		}
	}
	return findings
}

func (f *Fetcher) fetchReadable(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "porkbot/1.0 (research fetcher)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(link)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > maxFindingLength {
		text = text[:maxFindingLength] + "..."
	}
	if len(text) < 100 {
		return "", nil
	}
	return text, nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
