package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

const sinkShoutrrr = "shoutrrr"

// sender is the part of the shoutrrr router used here.
type sender interface {
	Send(message string, params *stypes.Params) []error
}

// ShoutrrrNotifier sends human readable alerts for drift and quarantine
// events. Other event types are ignored.
type ShoutrrrNotifier struct {
	sender sender
	title  string
}

// NewShoutrrrNotifier builds a sender for urls.
func NewShoutrrrNotifier(urls []string, title string, timeout time.Duration) (*ShoutrrrNotifier, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one URL is required")
	}
	router, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("invalid shoutrrr URL: %w", scrubURLs(err, urls))
	}
	if timeout > 0 {
		router.Timeout = timeout
	}
	router.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrNotifier{sender: router, title: title}, nil
}

// Name returns "shoutrrr".
func (s *ShoutrrrNotifier) Name() string { return sinkShoutrrr }

// Publish sends an alert for drift and quarantine events.
func (s *ShoutrrrNotifier) Publish(_ context.Context, ev *Event) error {
	if ev.Type != EventDriftDetected && ev.Type != EventGenerationQuarantined {
		return nil
	}

	params := stypes.Params{}
	if s.title != "" {
		params.SetTitle(s.title)
	}
	for _, err := range s.sender.Send(FormatAlert(ev), &params) {
		if err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (s *ShoutrrrNotifier) Close() error { return nil }

// FormatAlert renders ev as a one paragraph message.
func FormatAlert(ev *Event) string {
	var b strings.Builder
	switch ev.Type {
	case EventGenerationQuarantined:
		fmt.Fprintf(&b, "Quarantined generation %s of %q", ev.Reference, ev.FileName)
	default:
		fmt.Fprintf(&b, "Confidence drift on %q", ev.FileName)
	}
	fmt.Fprintf(&b, ": KS D=%.3f p=%.4f over %d predictions", ev.Statistic, ev.PValue, ev.Predictions)
	if ev.PreviousReference != "" {
		fmt.Fprintf(&b, " (live generation %s)", ev.PreviousReference)
	}
	if ev.Policy != "" {
		fmt.Fprintf(&b, ", policy %s", ev.Policy)
	}
	return b.String()
}

// scrubURLs removes service URLs, which embed tokens, from err's text.
func scrubURLs(err error, urls []string) error {
	msg := err.Error()
	for _, u := range urls {
		if u != "" {
			msg = strings.ReplaceAll(msg, u, "[redacted]")
		}
	}
	return fmt.Errorf("%s", msg)
}
