package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"corral/internal/config"
)

const userAgent = "Corral-Go/0.1.0"

// Service defines the push-notification surface exposed to the daemon.
type Service interface {
	NotifySyncStarted(ctx context.Context, count int) error
	NotifySyncCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyItemFailed(ctx context.Context, itemType string, itemID int64, reason string) error
	NotifyStuckItems(ctx context.Context, count int, critical bool) error
	NotifyConflictDetected(ctx context.Context, table, recordID string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifySyncStarted(ctx context.Context, count int) error {
	data := payload{
		title:   "Corral - Sync Started",
		message: fmt.Sprintf("Syncing %d queued items", count),
		tags:    []string{"corral", "sync", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if failed == 0 {
		title = "Corral - Sync Complete"
		message = fmt.Sprintf("Synced %d items in %s", processed, durationText)
	} else {
		title = "Corral - Sync Complete (with errors)"
		message = fmt.Sprintf("Synced %d items, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"corral", "sync", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemFailed(ctx context.Context, itemType string, itemID int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:   "Corral - Item Failed",
		message: fmt.Sprintf("Item %d (%s) gave up after retries: %s", itemID, itemType, reason),
		tags:    []string{"corral", "sync", "failed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStuckItems(ctx context.Context, count int, critical bool) error {
	priority := "default"
	title := "Corral - Stuck Items"
	if critical {
		priority = "high"
		title = "Corral - Stuck Items (critical)"
	}
	data := payload{
		title:    title,
		message:  fmt.Sprintf("%d items are stuck in the sync queue\nManual review may be required", count),
		tags:     []string{"corral", "queue", "stuck"},
		priority: priority,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConflictDetected(ctx context.Context, table, recordID string) error {
	table = strings.TrimSpace(table)
	recordID = strings.TrimSpace(recordID)
	data := payload{
		title:   "Corral - Conflict Detected",
		message: fmt.Sprintf("Concurrent edit on %s/%s\nA merged version was uploaded; review the conflict list", table, recordID),
		tags:    []string{"corral", "conflict", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Corral - Error",
		message:  builder.String(),
		tags:     []string{"corral", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Corral - Test",
		message:  "Notification system test",
		tags:     []string{"corral", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

func (noopService) NotifySyncStarted(context.Context, int) error                      { return nil }
func (noopService) NotifySyncCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyItemFailed(context.Context, string, int64, string) error     { return nil }
func (noopService) NotifyStuckItems(context.Context, int, bool) error                 { return nil }
func (noopService) NotifyConflictDetected(context.Context, string, string) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
