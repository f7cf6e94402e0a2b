package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPublishDigestSendsForm(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText, gotMode string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotChat = r.PostFormValue("chat_id")
		gotText = r.PostFormValue("text")
		gotMode = r.PostFormValue("parse_mode")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier("token123", "chat456")
	n.apiBase = server.URL
	n.client = server.Client()

	if err := n.PublishDigest(context.Background(), "*AI Digest*\ncontent"); err != nil {
		t.Fatalf("PublishDigest error: %v", err)
	}

	if gotPath != "/bottoken123/sendMessage" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotChat != "chat456" || gotMode != "Markdown" {
		t.Fatalf("unexpected form values: chat=%s mode=%s", gotChat, gotMode)
	}
	if !strings.Contains(gotText, "AI Digest") {
		t.Fatalf("unexpected text: %q", gotText)
	}
}

func TestPublishDigestSplitsLongMessages(t *testing.T) {
	t.Parallel()

	var messages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		messages = append(messages, r.PostFormValue("text"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier("token", "chat")
	n.apiBase = server.URL
	n.client = server.Client()

	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, strings.Repeat("x", 100))
	}
	long := strings.Join(lines, "\n")

	if err := n.PublishDigest(context.Background(), long); err != nil {
		t.Fatalf("PublishDigest error: %v", err)
	}

	if len(messages) < 2 {
		t.Fatalf("expected the digest to be split, got %d messages", len(messages))
	}
	for _, msg := range messages {
		if len(msg) > maxMessageLen {
			t.Fatalf("chunk exceeds telegram limit: %d", len(msg))
		}
	}
}

func TestPublishDigestErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	n := NewNotifier("token", "chat")
	n.apiBase = server.URL
	n.client = server.Client()

	if err := n.PublishDigest(context.Background(), "text"); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}

func TestPublishDigestMisconfigured(t *testing.T) {
	t.Parallel()

	n := NewNotifier("", "")
	if err := n.PublishDigest(context.Background(), "text"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestSplitMessagePreservesShortText(t *testing.T) {
	t.Parallel()

	chunks := splitMessage("hello\nworld", maxMessageLen)
	if len(chunks) != 1 || chunks[0] != "hello\nworld" {
		t.Fatalf("short text must stay one chunk: %v", chunks)
	}
}
