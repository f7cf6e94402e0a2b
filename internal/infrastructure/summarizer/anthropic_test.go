package summarizer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/google/uuid"

	"aidigest/internal/domain"
	"aidigest/internal/taxonomy"
)

func newTestSummarizer(response string, err error) *AnthropicSummarizer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewAnthropicSummarizer("key", "model", 1024, taxonomy.Default(), logger)
	s.prompt = func(_, _, _, _ string, _ types.RequestSettings, _ ...types.File) (*types.AnthropicResponse, error) {
		if err != nil {
			return nil, err
		}
		return &types.AnthropicResponse{
			Content: []types.Content{{Text: response}},
		}, nil
	}
	return s
}

const validOutput = `{
	"title": "Acme ships streaming API",
	"what_changed": [{"fact": "Streaming is generally available", "citation_url": "https://acme.test/post"}],
	"why_it_matters": "Lower latency for chat products.",
	"action_items": ["Upgrade the SDK"],
	"citations": ["https://acme.test/post"],
	"evidence_snippets": ["streaming responses are now GA"],
	"tags": {"categories": ["API changes (endpoints/auth/schemas)"], "company": "Acme", "product_line": "Acme API"},
	"breaking_change": false,
	"confidence": "confirmed",
	"severity_suggestion": "MEDIUM"
}`

func baseEvent() *domain.Event {
	return &domain.Event{
		ID:          uuid.New(),
		Title:       "Acme update",
		CompanyName: "Acme",
		TrustTier:   1,
		Severity:    domain.SeverityLow,
		Confidence:  domain.ConfidenceConfirmed,
		Citations:   []string{"https://acme.test/post"},
	}
}

func TestSummarizeAppliesStructuredOutput(t *testing.T) {
	t.Parallel()

	s := newTestSummarizer(validOutput, nil)
	event := baseEvent()

	if err := s.Summarize(context.Background(), event, "streaming responses are now GA"); err != nil {
		t.Fatalf("Summarize error: %v", err)
	}

	if event.Title != "Acme ships streaming API" {
		t.Fatalf("title not applied: %q", event.Title)
	}
	if len(event.WhatChanged) != 1 || event.WhatChanged[0].CitationURL == "" {
		t.Fatalf("what_changed not applied: %+v", event.WhatChanged)
	}
	if event.Severity != domain.SeverityMedium {
		t.Fatalf("severity suggestion not applied: %s", event.Severity)
	}
	if event.SummaryShort == "" || !strings.HasPrefix(event.SummaryShort, "Acme ships streaming API.") {
		t.Fatalf("unexpected short summary: %q", event.SummaryShort)
	}
	if !strings.Contains(event.SummaryMedium, "- Streaming is generally available") {
		t.Fatalf("unexpected medium summary: %q", event.SummaryMedium)
	}
}

func TestSummarizeRecoversFencedJSON(t *testing.T) {
	t.Parallel()

	s := newTestSummarizer("```json\n"+validOutput+"\n```", nil)
	event := baseEvent()

	if err := s.Summarize(context.Background(), event, "source text"); err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if event.Title != "Acme ships streaming API" {
		t.Fatalf("fenced JSON not recovered: %q", event.Title)
	}
}

func TestSummarizeRecoversEmbeddedJSON(t *testing.T) {
	t.Parallel()

	s := newTestSummarizer("Here is the summary you asked for:\n"+validOutput+"\nLet me know if you need more.", nil)
	event := baseEvent()

	if err := s.Summarize(context.Background(), event, "source text"); err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if event.Title != "Acme ships streaming API" {
		t.Fatalf("embedded JSON not recovered: %q", event.Title)
	}
}

func TestSummarizeFallsBackOnAPIError(t *testing.T) {
	t.Parallel()

	s := newTestSummarizer("", errors.New("rate limited"))
	event := baseEvent()

	if err := s.Summarize(context.Background(), event, "source text"); err != nil {
		t.Fatalf("API errors must not propagate, got %v", err)
	}
	if event.SummaryShort != "Acme update" {
		t.Fatalf("expected title fallback, got %q", event.SummaryShort)
	}
	if event.Title != "Acme update" {
		t.Fatalf("title must stay untouched on failure")
	}
}

func TestSummarizeFallsBackOnGarbageOutput(t *testing.T) {
	t.Parallel()

	s := newTestSummarizer("I cannot produce JSON right now.", nil)
	event := baseEvent()

	if err := s.Summarize(context.Background(), event, "source text"); err != nil {
		t.Fatalf("parse failures must not propagate, got %v", err)
	}
	if event.SummaryShort != "Acme update" {
		t.Fatalf("expected title fallback, got %q", event.SummaryShort)
	}
}

func TestParseModelJSONRejectsMangledPayload(t *testing.T) {
	t.Parallel()

	if _, ok := parseModelJSON("{ broken json"); ok {
		t.Fatalf("mangled payload must not parse")
	}
	if _, ok := parseModelJSON(""); ok {
		t.Fatalf("empty payload must not parse")
	}
}

func TestSummarizeIgnoresInvalidEnums(t *testing.T) {
	t.Parallel()

	output := strings.Replace(validOutput, `"MEDIUM"`, `"CATASTROPHIC"`, 1)
	output = strings.Replace(output, `"confirmed"`, `"absolutely"`, 1)

	s := newTestSummarizer(output, nil)
	event := baseEvent()

	if err := s.Summarize(context.Background(), event, "source text"); err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if event.Severity != domain.SeverityLow {
		t.Fatalf("invalid severity must be ignored, got %s", event.Severity)
	}
	if event.Confidence != domain.ConfidenceConfirmed {
		t.Fatalf("invalid confidence must be ignored, got %s", event.Confidence)
	}
}
