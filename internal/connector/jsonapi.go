package connector

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// Parse-rule keys understood by the JSON connector. Each field mapping is
// independently overridable per source.
const (
	ruleItemsKey     = "items_key"
	ruleURLField     = "url_field"
	ruleTitleField   = "title_field"
	ruleIDField      = "id_field"
	ruleContentField = "content_field"
	ruleDateField    = "date_field"
)

// Well-known record-list keys tried when no items_key is configured.
var knownListKeys = []string{"results", "items", "data", "posts", "hits"}

const maxJSONBody = 8 << 20

// JSONAPIConnector polls a JSON endpoint and maps records to candidates using
// the source's parse rules. Hacker News Algolia URLs are recognized but route
// to the same generic parser; no provider-specific shape differs in practice.
type JSONAPIConnector struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

var _ ports.Connector = (*JSONAPIConnector)(nil)

// NewJSONAPIConnector wires the shared HTTP client.
func NewJSONAPIConnector(client *http.Client, userAgent string, logger *slog.Logger) *JSONAPIConnector {
	return &JSONAPIConnector{client: client, userAgent: userAgent, logger: logger}
}

// Method identifies the connector inside the registry.
func (j *JSONAPIConnector) Method() domain.FetchMethod {
	return domain.FetchJSONAPI
}

// Fetch downloads the payload and maps its records to candidate items.
func (j *JSONAPIConnector) Fetch(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		j.logger.Warn("api request build failed", "source", source.Name, "error", err)
		return nil, nil
	}
	req.Header.Set("User-Agent", j.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		j.logger.Warn("api poll failed", "source", source.Name, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		j.logger.Warn("api returned error status", "source", source.Name, "status", resp.Status)
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		j.logger.Warn("api body read failed", "source", source.Name, "error", err)
		return nil, nil
	}

	if !gjson.ValidBytes(body) {
		j.logger.Warn("api payload is not valid json", "source", source.Name)
		return nil, nil
	}

	items := parseGenericJSON(gjson.ParseBytes(body), source)
	j.logger.Info("api polled", "source", source.Name, "items", len(items))
	return items, nil
}

// parseGenericJSON locates the record list (direct array, configured key, the
// first well-known key, else the whole payload as one record), then maps
// configured field names onto the candidate schema.
func parseGenericJSON(root gjson.Result, source domain.Source) []domain.CandidateItem {
	rules := source.ParseRules

	var records []gjson.Result
	switch {
	case root.IsArray():
		records = root.Array()
	case rules[ruleItemsKey] != "":
		records = root.Get(rules[ruleItemsKey]).Array()
	case root.IsObject():
		for _, key := range knownListKeys {
			if list := root.Get(key); list.IsArray() {
				records = list.Array()
				break
			}
		}
		if records == nil {
			records = []gjson.Result{root}
		}
	}

	urlField := ruleOr(rules, ruleURLField, "url")
	titleField := ruleOr(rules, ruleTitleField, "title")
	idField := ruleOr(rules, ruleIDField, "id")
	contentField := ruleOr(rules, ruleContentField, "description")
	dateField := ruleOr(rules, ruleDateField, "created_at")

	mapped := map[string]bool{
		urlField: true, titleField: true, idField: true,
		contentField: true, dateField: true,
	}

	var items []domain.CandidateItem
	for _, record := range records {
		if !record.IsObject() {
			continue
		}

		link := record.Get(urlField).String()
		if link == "" {
			link = source.URL
		}

		var published time.Time
		if raw := record.Get(dateField).String(); raw != "" {
			if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
				published = parsed
			}
		}

		metadata := map[string]string{}
		record.ForEach(func(key, value gjson.Result) bool {
			if mapped[key.String()] {
				return true
			}
			switch value.Type {
			case gjson.String, gjson.Number, gjson.True, gjson.False:
				metadata[key.String()] = value.String()
			}
			return true
		})

		items = append(items, domain.CandidateItem{
			ExternalID:  record.Get(idField).String(),
			URL:         link,
			Title:       record.Get(titleField).String(),
			ContentText: record.Get(contentField).String(),
			PublishedAt: published,
			Metadata:    metadata,
		})
	}

	return items
}

func ruleOr(rules map[string]string, key, fallback string) string {
	if v := rules[key]; v != "" {
		return v
	}
	return fallback
}
