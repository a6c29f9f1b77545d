package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"whittle/internal/config"
)

const userAgent = "Whittle/0.1.0"

// Event enumerates the notification-worthy milestones of a carving run.
type Event string

const (
	EventJobStarted     Event = "job_started"
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventUnitError      Event = "unit_error"
	EventDeviceAttached Event = "device_attached"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries the string fields an event's message is rendered from.
type Payload map[string]string

// Service delivers events to the configured notification transport.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		jobEvents:    cfg.Notifications.JobEvents,
		unitErrors:   cfg.Notifications.UnitErrors,
		deviceEvents: cfg.Notifications.DeviceEvents,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	jobEvents    bool
	unitErrors   bool
	deviceEvents bool
}

// Publish renders the event into an ntfy message and posts it. Events whose
// category is disabled in configuration are dropped silently.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	return n.send(ctx, render(event, payload))
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventJobStarted, EventJobCompleted, EventJobFailed:
		return n.jobEvents
	case EventUnitError:
		return n.unitErrors
	case EventDeviceAttached:
		return n.deviceEvents
	default:
		return true
	}
}

func render(event Event, payload Payload) message {
	get := func(key string) string {
		return strings.TrimSpace(payload[key])
	}

	switch event {
	case EventJobStarted:
		return message{
			title: "Whittle - Job Started",
			body:  fmt.Sprintf("Carving %s (%s units)", get("source"), orUnknown(get("units"))),
			tags:  []string{"whittle", "job", "started"},
		}
	case EventJobCompleted:
		return message{
			title: "Whittle - Job Complete",
			body: fmt.Sprintf("Carving complete for %s: %s recovered, %s errors\nWrite time: %s ms, parse time: %s ms",
				get("source"), orZero(get("recovered")), orZero(get("errored")),
				orZero(get("write_ms")), orZero(get("parse_ms"))),
			tags: []string{"whittle", "job", "completed"},
		}
	case EventJobFailed:
		return message{
			title:    "Whittle - Job Failed",
			body:     fmt.Sprintf("Carving failed for %s: %s", get("source"), orUnknown(get("error"))),
			tags:     []string{"whittle", "job", "failed"},
			priority: "high",
		}
	case EventUnitError:
		return message{
			title:    "Whittle - Unit Error",
			body:     fmt.Sprintf("Unable to carve %s: %s", get("unit"), orUnknown(get("error"))),
			tags:     []string{"whittle", "unit", "error"},
			priority: "high",
		}
	case EventDeviceAttached:
		return message{
			title: "Whittle - Device Attached",
			body:  fmt.Sprintf("Block device attached: %s", get("device")),
			tags:  []string{"whittle", "device", "attached"},
		}
	case EventError:
		body := "Error"
		if label := get("context"); label != "" {
			body += " with " + label
		}
		body += ": " + orUnknown(get("error"))
		return message{
			title:    "Whittle - Error",
			body:     body,
			tags:     []string{"whittle", "error", "alert"},
			priority: "high",
		}
	case EventTest:
		return message{
			title:    "Whittle - Test",
			body:     "Notification system test",
			tags:     []string{"whittle", "test"},
			priority: "low",
		}
	default:
		return message{
			title: "Whittle",
			body:  string(event),
			tags:  []string{"whittle"},
		}
	}
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func orZero(value string) string {
	if value == "" {
		return "0"
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
