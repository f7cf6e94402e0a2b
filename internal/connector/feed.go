package connector

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

var (
	tagRE    = regexp.MustCompile(`<[^>]+>`)
	spacesRE = regexp.MustCompile(`\s+`)
)

// stripMarkup flattens embedded HTML into plain text.
func stripMarkup(text string) string {
	clean := tagRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(spacesRE.ReplaceAllString(clean, " "))
}

type feedValidators struct {
	etag         string
	lastModified string
}

// FeedConnector fetches RSS/Atom feeds with conditional-request headers.
type FeedConnector struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu         sync.Mutex
	validators map[uuid.UUID]feedValidators
}

var _ ports.Connector = (*FeedConnector)(nil)

// NewFeedConnector wires the shared HTTP client.
func NewFeedConnector(client *http.Client, userAgent string, logger *slog.Logger) *FeedConnector {
	return &FeedConnector{
		client:     client,
		userAgent:  userAgent,
		logger:     logger,
		validators: map[uuid.UUID]feedValidators{},
	}
}

// Method identifies the connector inside the registry.
func (f *FeedConnector) Method() domain.FetchMethod {
	return domain.FetchFeed
}

// Fetch downloads and parses the feed, emitting one candidate per entry.
// A 304 response and every recoverable failure yield an empty slice.
func (f *FeedConnector) Fetch(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		f.warn("feed request build failed", source, err)
		return nil, nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	f.mu.Lock()
	cached := f.validators[source.ID]
	f.mu.Unlock()
	if cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}
	if cached.lastModified != "" {
		req.Header.Set("If-Modified-Since", cached.lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.warn("feed fetch failed", source, err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		f.debug("feed not modified", source)
		return nil, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		f.logger.Warn("feed returned error status", "source", source.Name, "status", resp.Status)
		return nil, nil
	}

	f.mu.Lock()
	f.validators[source.ID] = feedValidators{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	f.mu.Unlock()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		f.warn("feed parse failed", source, err)
		return nil, nil
	}

	items := make([]domain.CandidateItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		items = append(items, entryToCandidate(entry, source))
	}

	f.logger.Info("feed fetched", "source", source.Name, "items", len(items))
	return items, nil
}

func entryToCandidate(entry *gofeed.Item, source domain.Source) domain.CandidateItem {
	externalID := entry.GUID
	if externalID == "" {
		externalID = entry.Link
	}

	link := entry.Link
	if link == "" {
		link = source.URL
	}

	// Prefer the summary; fall back to the first content block.
	raw := entry.Description
	if raw == "" {
		raw = entry.Content
	}

	html := ""
	if strings.Contains(entry.Content, "<") {
		html = entry.Content
	}

	return domain.CandidateItem{
		ExternalID:  externalID,
		URL:         link,
		Title:       entry.Title,
		ContentText: stripMarkup(raw),
		ContentHTML: html,
		PublishedAt: entryPublishedAt(entry),
	}
}

// entryPublishedAt tolerates the usual feed date variants and defaults to the
// zero time rather than failing an entry.
func entryPublishedAt(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	for _, raw := range []string{entry.Published, entry.Updated} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

func (f *FeedConnector) warn(msg string, source domain.Source, err error) {
	f.logger.Warn(msg, "source", source.Name, "url", source.URL, "error", err)
}

func (f *FeedConnector) debug(msg string, source domain.Source) {
	f.logger.Debug(msg, "source", source.Name, "url", source.URL)
}
