// Package edgar downloads company filings from the SEC EDGAR full-text
// archive into the local company-docs directory.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	submissionsURL = "https://data.sec.gov/submissions/CIK%010d.json"
	archivesURL    = "https://www.sec.gov/Archives/edgar/data/%d/%s/%s"

	maxRetries = 3
	retryDelay = 2 * time.Second
)

// Filing is one entry from a company's recent submissions index.
type Filing struct {
	AccessionNumber string
	Form            string
	FilingDate      string
	PrimaryDocument string
}

// submissions mirrors the column-oriented shape of the EDGAR submissions
// feed: parallel arrays, one element per filing.
type submissions struct {
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// Client talks to EDGAR with the fixed user agent and request rate the SEC
// asks automated tools to observe.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	robots     *robotsChecker
	userAgent  string
	logger     *zap.Logger

	// format strings for the two endpoints; overridable in tests
	submissionsURL string
	archivesURL    string

	sleep func(time.Duration) // injectable for tests
}

// NewClient creates an EDGAR client. requestsPerSecond must stay at or below
// the SEC's published limit of 10.
func NewClient(userAgent string, requestsPerSecond float64, logger *zap.Logger) *Client {
	if requestsPerSecond <= 0 || requestsPerSecond > 10 {
		requestsPerSecond = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		limiter:        rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		robots:         newRobotsChecker(userAgent, 10*time.Second),
		userAgent:      userAgent,
		logger:         logger,
		submissionsURL: submissionsURL,
		archivesURL:    archivesURL,
		sleep:          time.Sleep,
	}
}

// RecentFilings fetches the submissions index for cik and returns filings
// matching the given form types (e.g. "10-K", "10-Q"). Empty forms means all.
func (c *Client) RecentFilings(ctx context.Context, cik int64, forms []string) ([]Filing, error) {
	var subs submissions
	url := fmt.Sprintf(c.submissionsURL, cik)
	if err := c.getJSON(ctx, url, &subs); err != nil {
		return nil, fmt.Errorf("fetch submissions for CIK %d: %w", cik, err)
	}

	wanted := make(map[string]bool, len(forms))
	for _, f := range forms {
		wanted[strings.ToUpper(f)] = true
	}

	recent := subs.Filings.Recent
	var filings []Filing
	for i := range recent.AccessionNumber {
		if len(wanted) > 0 && !wanted[strings.ToUpper(recent.Form[i])] {
			continue
		}
		if recent.PrimaryDocument[i] == "" {
			continue
		}
		filings = append(filings, Filing{
			AccessionNumber: recent.AccessionNumber[i],
			Form:            recent.Form[i],
			FilingDate:      recent.FilingDate[i],
			PrimaryDocument: recent.PrimaryDocument[i],
		})
	}
	c.logger.Info("submissions index fetched",
		zap.Int64("cik", cik),
		zap.String("company", subs.Name),
		zap.Int("filings", len(filings)))
	return filings, nil
}

// Download fetches a filing's primary document into dir. The file name is
// <form>_<filing-date>_<primary-document> with path separators stripped.
func (c *Client) Download(ctx context.Context, cik int64, filing Filing, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	accession := strings.ReplaceAll(filing.AccessionNumber, "-", "")
	url := fmt.Sprintf(c.archivesURL, cik, accession, filing.PrimaryDocument)

	if allowed, delay, err := c.robots.canFetch(ctx, url); err == nil {
		if !allowed {
			return "", fmt.Errorf("robots.txt disallows %s", url)
		}
		if delay > 0 {
			c.sleep(delay)
		}
	}

	body, err := c.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", filing.AccessionNumber, err)
	}

	doc := filepath.Base(filing.PrimaryDocument)
	switch strings.ToLower(filepath.Ext(doc)) {
	case ".htm", ".html":
		// HTML filings are converted to plain text so the knowledge
		// base can ingest them.
		text, err := htmlToText(body)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", filing.AccessionNumber, err)
		}
		body = []byte(text)
		doc = strings.TrimSuffix(doc, filepath.Ext(doc)) + ".txt"
	}

	name := fmt.Sprintf("%s_%s_%s",
		strings.ReplaceAll(filing.Form, "/", "-"),
		filing.FilingDate,
		doc)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write filing: %w", err)
	}

	c.logger.Info("filing downloaded",
		zap.String("form", filing.Form),
		zap.String("date", filing.FilingDate),
		zap.String("path", path))
	return path, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// get performs one rate-limited GET with bounded retry on 429 and 5xx.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	delay := retryDelay
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying EDGAR request",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			c.sleep(delay)
			delay *= 2
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	// Accept-Encoding is left to the transport so gzip responses are
	// decompressed transparently.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		return data, false, err
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	default:
		return nil, false, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
}
