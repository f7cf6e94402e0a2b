// Package summarizer produces grounded structured summaries through the
// Anthropic API.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
	"aidigest/internal/taxonomy"
)

const systemPromptTemplate = `You are a factual AI news summarizer. Your job is to produce structured
summaries of AI industry updates. You MUST follow these rules:

1. NEVER invent facts. Every claim in "what_changed" MUST have a citation URL.
2. Separate facts (what_changed) from interpretation (why_it_matters).
3. If the source is first-party (Tier 1), you may say "released" or "updated."
   If only Tier 2/3/4 sources exist, say "reported" or "according to [source]."
4. Include at least one verbatim evidence snippet from the source material.
5. Tag with categories from this taxonomy: %s
6. Flag breaking_change = true only if the change removes existing functionality
   or requires developer action to avoid breakage.
7. Set confidence: "confirmed" if Tier 1, "likely" if Tier 2, "unverified" if Tier 3/4.
8. Keep title under 100 characters, action-oriented.
9. Keep why_it_matters to 1-2 sentences max.

OUTPUT FORMAT: JSON matching this schema exactly:
{
  "title": "string, short action-oriented headline, <=100 chars",
  "what_changed": [
    {
      "fact": "string, one factual statement",
      "citation_url": "string, URL backing this fact"
    }
  ],
  "why_it_matters": "string, 1-2 sentences, interpretation/analysis",
  "action_items": ["string, optional concrete next steps"],
  "citations": ["url1", "url2"],
  "evidence_snippets": ["exact quote or data point from source"],
  "tags": {
    "categories": ["category name from taxonomy"],
    "company": "string",
    "product_line": "string or null"
  },
  "breaking_change": false,
  "confidence": "confirmed | likely | unverified",
  "severity_suggestion": "HIGH | MEDIUM | LOW"
}`

const userPromptTemplate = `Summarize the following source material about an AI industry update.

Source trust tier: %d
Source company: %s
Source URL: %s
Published: %s

--- SOURCE CONTENT START ---
%s
--- SOURCE CONTENT END ---

Produce the JSON summary.`

// maxContentChars keeps the prompt inside the token budget.
const maxContentChars = 4000

const (
	shortSummaryLimit  = 300
	mediumSummaryLimit = 1000
)

// summaryOutput mirrors the JSON schema the model is instructed to emit.
type summaryOutput struct {
	Title        string        `json:"title"`
	WhatChanged  []domain.Fact `json:"what_changed"`
	WhyItMatters string        `json:"why_it_matters"`
	ActionItems  []string      `json:"action_items"`
	Citations    []string      `json:"citations"`
	Evidence     []string      `json:"evidence_snippets"`
	Tags         struct {
		Categories  []string `json:"categories"`
		Company     string   `json:"company"`
		ProductLine string   `json:"product_line"`
	} `json:"tags"`
	BreakingChange     bool   `json:"breaking_change"`
	Confidence         string `json:"confidence"`
	SeveritySuggestion string `json:"severity_suggestion"`
}

// AnthropicSummarizer fills event summary fields via the Anthropic messages
// API. Any API or parse failure degrades to a fallback summary and a nil
// error, so one bad call never stalls the pipeline.
type AnthropicSummarizer struct {
	apiKey       string
	model        string
	maxTokens    int
	systemPrompt string
	logger       *slog.Logger

	// prompt is swappable for tests.
	prompt func(systemPrompt, userPrompt, schema, apiKey string, settings types.RequestSettings, files ...types.File) (*types.AnthropicResponse, error)
}

var _ ports.Summarizer = (*AnthropicSummarizer)(nil)

func NewAnthropicSummarizer(apiKey, model string, maxTokens int, rules taxonomy.Rules, logger *slog.Logger) *AnthropicSummarizer {
	return &AnthropicSummarizer{
		apiKey:       apiKey,
		model:        model,
		maxTokens:    maxTokens,
		systemPrompt: fmt.Sprintf(systemPromptTemplate, strings.Join(rules.CategoryNames(), ", ")),
		logger:       logger.With("component", "summarizer"),
		prompt:       anthropic.PromptWithSettings,
	}
}

// Summarize calls the model and applies its structured output onto the event.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, event *domain.Event, sourceText string) error {
	content := buildContent(event, sourceText)
	if content == "" {
		s.logger.Warn("no content to summarize", "event_id", event.ID)
		setFallbackSummary(event)
		return nil
	}
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
	}

	sourceURL := ""
	if len(event.Citations) > 0 {
		sourceURL = event.Citations[0]
	}
	published := ""
	if !event.PublishedAt.IsZero() {
		published = event.PublishedAt.Format("2006-01-02 15:04")
	}
	userPrompt := fmt.Sprintf(userPromptTemplate,
		event.TrustTier, event.CompanyName, sourceURL, published, content)

	settings := types.RequestSettings{
		Model:     s.model,
		MaxTokens: s.maxTokens,
	}
	response, err := s.prompt(s.systemPrompt, userPrompt, "", s.apiKey, settings)
	if err != nil {
		s.logger.Error("summarization call failed", "event_id", event.ID, "error", err)
		setFallbackSummary(event)
		return nil
	}
	if len(response.Content) == 0 {
		s.logger.Warn("empty summarization response", "event_id", event.ID)
		setFallbackSummary(event)
		return nil
	}

	output, ok := parseModelJSON(response.Content[0].Text)
	if !ok {
		s.logger.Warn("unparseable summarization output", "event_id", event.ID)
		setFallbackSummary(event)
		return nil
	}

	applyOutput(event, output)
	return nil
}

// buildContent assembles the prompt body from the raw source text plus the
// fields already on the event.
func buildContent(event *domain.Event, sourceText string) string {
	var parts []string
	if event.Title != "" {
		parts = append(parts, "Title: "+event.Title)
	}
	if sourceText != "" {
		parts = append(parts, sourceText)
	}
	for _, fact := range event.WhatChanged {
		if fact.Fact != "" {
			parts = append(parts, fact.Fact)
		}
	}
	if event.WhyItMatters != "" {
		parts = append(parts, event.WhyItMatters)
	}
	if len(parts) == 0 {
		return event.Title
	}
	return strings.Join(parts, "\n")
}

// parseModelJSON extracts the JSON object from model output, tolerating
// markdown code fences and surrounding prose.
func parseModelJSON(text string) (*summaryOutput, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		var kept []string
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.Join(kept, "\n")
	}

	var output summaryOutput
	if err := json.Unmarshal([]byte(text), &output); err == nil {
		return &output, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &output); err == nil {
			return &output, true
		}
	}
	return nil, false
}

func applyOutput(event *domain.Event, output *summaryOutput) {
	if output.Title != "" {
		event.Title = truncate(output.Title, 200)
	}
	if len(output.WhatChanged) > 0 {
		event.WhatChanged = output.WhatChanged
	}
	if output.WhyItMatters != "" {
		event.WhyItMatters = output.WhyItMatters
	}
	if len(output.ActionItems) > 0 {
		event.ActionItems = output.ActionItems
	}
	if len(output.Citations) > 0 {
		event.Citations = output.Citations
	}
	if len(output.Evidence) > 0 {
		event.EvidenceSnippets = output.Evidence
	}
	if len(output.Tags.Categories) > 0 {
		event.Categories = output.Tags.Categories
	}
	if output.Tags.Company != "" {
		event.CompanyName = output.Tags.Company
	}
	if output.Tags.ProductLine != "" {
		event.ProductLine = output.Tags.ProductLine
	}
	if output.BreakingChange {
		event.BreakingChange = true
	}
	switch domain.Confidence(output.Confidence) {
	case domain.ConfidenceConfirmed, domain.ConfidenceLikely, domain.ConfidenceUnverified:
		event.Confidence = domain.Confidence(output.Confidence)
	}
	switch domain.Severity(output.SeveritySuggestion) {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh:
		event.Severity = domain.Severity(output.SeveritySuggestion)
	}

	var facts []string
	for _, fact := range event.WhatChanged {
		facts = append(facts, "- "+fact.Fact)
	}
	event.SummaryShort = truncate(event.Title+". "+event.WhyItMatters, shortSummaryLimit)
	event.SummaryMedium = truncate(
		event.Title+"\n\n"+strings.Join(facts, "\n")+"\n\n"+event.WhyItMatters,
		mediumSummaryLimit)
}

// setFallbackSummary fills the minimal summary so the event still renders in
// a digest even when the model call failed.
func setFallbackSummary(event *domain.Event) {
	event.SummaryShort = truncate(event.Title, shortSummaryLimit)
	event.SummaryMedium = truncate(event.Title, mediumSummaryLimit)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
