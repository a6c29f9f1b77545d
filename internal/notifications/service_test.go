package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"whittle/internal/config"
	"whittle/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func publishAndCapture(t *testing.T, cfg config.Config, event notifications.Event, payload notifications.Payload) *captured {
	t.Helper()
	var got *captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = &captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), event, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}
	return got
}

func TestPublishJobCompletedCarriesSummary(t *testing.T) {
	got := publishAndCapture(t, config.Default(), notifications.EventJobCompleted, notifications.Payload{
		"source":    "disk01.img",
		"recovered": "42",
		"errored":   "3",
		"write_ms":  "1200",
		"parse_ms":  "80",
	})
	if got == nil {
		t.Fatal("expected a request")
	}
	if got.title != "Whittle - Job Complete" {
		t.Errorf("title = %q", got.title)
	}
	if got.tags != "whittle,job,completed" {
		t.Errorf("tags = %q", got.tags)
	}
	for _, want := range []string{"disk01.img", "42 recovered", "3 errors", "1200 ms", "80 ms"} {
		if !strings.Contains(got.body, want) {
			t.Errorf("body %q missing %q", got.body, want)
		}
	}
}

func TestPublishUnitErrorHighPriority(t *testing.T) {
	got := publishAndCapture(t, config.Default(), notifications.EventUnitError, notifications.Payload{
		"unit":  "Unalloc_30_0_16777216",
		"error": "engine exit 1",
	})
	if got == nil {
		t.Fatal("expected a request")
	}
	if got.priority != "high" {
		t.Errorf("priority = %q, want high", got.priority)
	}
	if !strings.Contains(got.body, "Unalloc_30_0_16777216") {
		t.Errorf("body %q missing unit name", got.body)
	}
}

func TestPublishRespectsCategoryToggles(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobEvents = false
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventJobStarted, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if requests != 0 {
		t.Fatalf("disabled category still sent %d requests", requests)
	}
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("publish test: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected the test event to send, got %d requests", requests)
	}
}

func TestPublishSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error from 403 response")
	}
}
