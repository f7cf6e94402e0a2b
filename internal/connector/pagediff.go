package connector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

const parseRuleSelector = "css_selector"

var repoTitleRE = regexp.MustCompile(`([\w.-]+)\s*/\s*([\w.-]+)`)

// PageDiffConnector polls an HTML page and emits one candidate per block of
// newly added text since the previous snapshot. The first fetch for a source
// only establishes the baseline; a diff needs two points.
type PageDiffConnector struct {
	client    *http.Client
	snapshots ports.SnapshotRepository
	userAgent string
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.Connector = (*PageDiffConnector)(nil)

// NewPageDiffConnector wires the HTTP client and the snapshot store.
func NewPageDiffConnector(client *http.Client, snapshots ports.SnapshotRepository, userAgent string, logger *slog.Logger) *PageDiffConnector {
	return &PageDiffConnector{
		client:    client,
		snapshots: snapshots,
		userAgent: userAgent,
		logger:    logger,
		now:       time.Now,
	}
}

// Method identifies the connector inside the registry.
func (p *PageDiffConnector) Method() domain.FetchMethod {
	return domain.FetchPageDiff
}

// Fetch hashes the page body, short-circuits when unchanged, stores a new
// snapshot, and diffs the extracted text against the previous capture.
func (p *PageDiffConnector) Fetch(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		p.logger.Warn("page request build failed", "source", source.Name, "error", err)
		return nil, nil
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("page fetch failed", "source", source.Name, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		p.logger.Warn("page returned error status", "source", source.Name, "status", resp.Status)
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		p.logger.Warn("page parse failed", "source", source.Name, "error", err)
		return nil, nil
	}

	raw, err := doc.Html()
	if err != nil {
		p.logger.Warn("page serialize failed", "source", source.Name, "error", err)
		return nil, nil
	}
	sum := sha256.Sum256([]byte(raw))
	contentHash := hex.EncodeToString(sum[:])

	prev, err := p.snapshots.Latest(ctx, source.ID)
	if err != nil {
		p.logger.Warn("snapshot load failed", "source", source.Name, "error", err)
		return nil, nil
	}

	if prev != nil && prev.ContentHash == contentHash {
		p.logger.Debug("page unchanged", "source", source.Name)
		return nil, nil
	}

	currentText := extractPageText(doc, source.ParseRules[parseRuleSelector])

	snapshot := domain.Snapshot{
		ID:          uuid.New(),
		SourceID:    source.ID,
		ContentHash: contentHash,
		Text:        currentText,
		FetchedAt:   p.now(),
	}
	if err := p.snapshots.Save(ctx, snapshot); err != nil {
		p.logger.Warn("snapshot save failed", "source", source.Name, "error", err)
		return nil, nil
	}

	if prev == nil {
		p.logger.Info("page baseline stored", "source", source.Name)
		return nil, nil
	}

	added := addedLines(prev.Text, currentText)
	if len(added) == 0 {
		p.logger.Debug("page text unchanged despite hash diff", "source", source.Name)
		return nil, nil
	}

	items := splitChangeBlocks(strings.Join(added, "\n"), source)
	p.logger.Info("page diffed", "source", source.Name, "items", len(items))
	return items, nil
}

// extractPageText flattens the selected element (or the whole page) into
// line-oriented plain text, ready for line-level diffing.
func extractPageText(doc *goquery.Document, selector string) string {
	sel := doc.Selection
	if selector != "" {
		if target := doc.Find(selector); target.Length() > 0 {
			sel = target.First()
		}
	}

	var lines []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "script", "style":
			case "#text":
				if t := strings.TrimSpace(c.Text()); t != "" {
					lines = append(lines, t)
				}
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return strings.Join(lines, "\n")
}

// addedLines returns the "+" lines of a unified diff between the previous and
// current extracted text.
func addedLines(prev, current string) []string {
	diff := difflib.UnifiedDiff{
		A:       difflib.SplitLines(prev),
		B:       difflib.SplitLines(current),
		Context: 2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil
	}

	var added []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			added = append(added, strings.TrimRight(line[1:], "\r"))
		}
	}
	return added
}

// splitChangeBlocks turns the accumulated added text into candidate items,
// one per blank-line-separated block.
func splitChangeBlocks(changeText string, source domain.Source) []domain.CandidateItem {
	var items []domain.CandidateItem
	for _, block := range strings.Split(changeText, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		sum := sha256.Sum256([]byte(block))
		items = append(items, domain.CandidateItem{
			ExternalID:  hex.EncodeToString(sum[:])[:16],
			URL:         source.URL,
			Title:       blockTitle(block),
			ContentText: block,
			PublishedAt: time.Now(),
		})
	}
	return items
}

// blockTitle derives a best-effort title from a diff block: an owner/name
// token when present, else the first sufficiently alphabetic line, else a
// truncated first line.
func blockTitle(block string) string {
	if m := repoTitleRE.FindStringSubmatch(block); m != nil {
		return m[1] + "/" + m[2]
	}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 10 {
			continue
		}
		alpha := 0
		for _, r := range line {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				alpha++
			}
		}
		if float64(alpha) > float64(len(line))*0.3 {
			return truncate(line, 120)
		}
	}
	first, _, _ := strings.Cut(block, "\n")
	return truncate(first, 120)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
