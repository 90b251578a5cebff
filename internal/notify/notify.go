// Package notify sends push notifications through an ntfy topic when a
// watched reservation task succeeds.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/amonks/rail/train"
)

// DefaultTimeout bounds a single publish.
const DefaultTimeout = 10 * time.Second

// Message is one push notification.
type Message struct {
	Title string
	Body  string
}

// Options configures a Notifier.
type Options struct {
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Notifier publishes messages to an ntfy topic URL. A Notifier with an
// empty URL is disabled and Send is a no-op.
type Notifier struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// New returns a Notifier for topicURL.
func New(topicURL string, opts Options) *Notifier {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Notifier{
		url:    strings.TrimSpace(topicURL),
		client: client,
		logger: opts.Logger,
	}
}

// Enabled reports whether a topic URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Send publishes msg.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		n.logf("ntfy url not set; skipping push %q", msg.Title)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBufferString(msg.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Title", msg.Title)
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "tada")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send ntfy push: %s", resp.Status)
	}
	n.logf("sent push %q", msg.Title)
	return nil
}

// TaskSucceeded builds the push announcing a successful reservation.
func TaskSucceeded(mode train.Mode, task train.Task) Message {
	depTime := task.SelectedDepTime
	if depTime == "" {
		depTime = task.TimeFrom
	}
	return Message{
		Title: fmt.Sprintf("[%s] 예약 성공!", mode),
		Body:  fmt.Sprintf("%s->%s %s", task.DepStation, task.ArrStation, depTime),
	}
}

// TaskFinished publishes a push if task reached SUCCESS. Other outcomes are
// ignored.
func (n *Notifier) TaskFinished(ctx context.Context, mode train.Mode, task train.Task) error {
	if task.Status != train.StatusSuccess {
		return nil
	}
	return n.Send(ctx, TaskSucceeded(mode, task))
}

func (n *Notifier) logf(format string, args ...any) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.Printf(format, args...)
}
