package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tether/internal/config"
)

const userAgent = "Tether/0.1.0"

// Service defines the notification surface exposed to the scheduler.
type Service interface {
	NotifyMountOutage(ctx context.Context, consecutiveScans int) error
	NotifyMountRecovered(ctx context.Context, outage time.Duration) error
	NotifyItemsMissing(ctx context.Context, names []string) error
	NotifyItemRemoved(ctx context.Context, name string) error
	NotifyReviewNeeded(ctx context.Context, count int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
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
		cfg:      cfg.Notifications,
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
	cfg      config.Notifications
}

func (n *ntfyService) NotifyMountOutage(ctx context.Context, consecutiveScans int) error {
	if !n.cfg.MountOutage {
		return nil
	}
	data := payload{
		title:    "Tether - Mount Outage",
		message:  fmt.Sprintf("Mount has been unreadable for %d consecutive scans; status downgrades paused", consecutiveScans),
		tags:     []string{"tether", "mount", "outage"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMountRecovered(ctx context.Context, outage time.Duration) error {
	if !n.cfg.MountOutage {
		return nil
	}
	outage = outage.Round(time.Second)
	if outage < 0 {
		outage = 0
	}
	data := payload{
		title:   "Tether - Mount Recovered",
		message: fmt.Sprintf("Mount is readable again after %s; reconciliation resumed", outage),
		tags:    []string{"tether", "mount", "recovered"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemsMissing(ctx context.Context, names []string) error {
	if !n.cfg.Missing || len(names) == 0 {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "%d item(s) confirmed missing from the mount:\n", len(names))
	const maxListed = 10
	for i, name := range names {
		if i == maxListed {
			fmt.Fprintf(&builder, "… and %d more", len(names)-maxListed)
			break
		}
		builder.WriteString(name)
		builder.WriteByte('\n')
	}
	data := payload{
		title:    "Tether - Items Missing",
		message:  strings.TrimSpace(builder.String()),
		tags:     []string{"tether", "missing"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemRemoved(ctx context.Context, name string) error {
	if !n.cfg.Removed {
		return nil
	}
	data := payload{
		title:   "Tether - Item Removed",
		message: fmt.Sprintf("No longer tracked: %s", strings.TrimSpace(name)),
		tags:    []string{"tether", "removed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewNeeded(ctx context.Context, count int) error {
	if !n.cfg.Review || count == 0 {
		return nil
	}
	data := payload{
		title:   "Tether - Review Needed",
		message: fmt.Sprintf("%d descriptor(s) could not be parsed; run 'tether items' to inspect", count),
		tags:    []string{"tether", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.cfg.Errors {
		return nil
	}
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
		title:    "Tether - Error",
		message:  builder.String(),
		tags:     []string{"tether", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Tether - Test",
		message:  "Notification system test",
		tags:     []string{"tether", "test"},
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

func (noopService) NotifyMountOutage(context.Context, int) error              { return nil }
func (noopService) NotifyMountRecovered(context.Context, time.Duration) error { return nil }
func (noopService) NotifyItemsMissing(context.Context, []string) error        { return nil }
func (noopService) NotifyItemRemoved(context.Context, string) error           { return nil }
func (noopService) NotifyReviewNeeded(context.Context, int) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
