package connector

import (
	"errors"
	"testing"

	"aidigest/internal/domain"
)

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	feed := NewFeedConnector(nil, "test-agent", discardLogger())
	registry.Register(feed)

	resolved, err := registry.Resolve(domain.FetchFeed)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if resolved != feed {
		t.Fatalf("unexpected connector resolved")
	}

	if _, err := registry.Resolve(domain.FetchMethod("bogus")); !errors.Is(err, ErrUnknownFetchMethod) {
		t.Fatalf("expected ErrUnknownFetchMethod, got %v", err)
	}
}
