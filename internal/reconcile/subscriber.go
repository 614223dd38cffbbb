package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/net/websocket"

	"github.com/recipestack/scanreview/internal/models"
)

// reconnectDelay is the fixed pause between connection attempts.
const reconnectDelay = 5 * time.Second

// Subscriber maintains a websocket connection to the pipeline's status
// feed and applies every received event through a Reconciler. The
// connection is re-established after any failure; missed events are
// recovered by the unknown-identifier refetch path.
type Subscriber struct {
	url        string
	reconciler *Reconciler
}

// NewSubscriber creates a subscriber for the given websocket URL.
func NewSubscriber(wsURL string, reconciler *Reconciler) *Subscriber {
	return &Subscriber{url: wsURL, reconciler: reconciler}
}

// Run connects and consumes status events until the context is canceled,
// reconnecting with a fixed delay after every disconnect.
func (s *Subscriber) Run(ctx context.Context) error {
	origin, err := originFor(s.url)
	if err != nil {
		return err
	}

	for {
		if err := s.consume(ctx, origin); err != nil && ctx.Err() == nil {
			slog.Warn("status feed disconnected", "url", s.url, "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// consume runs one connection lifetime: dial, receive until error or
// cancellation.
func (s *Subscriber) consume(ctx context.Context, origin string) error {
	ws, err := websocket.Dial(s.url, "", origin)
	if err != nil {
		return fmt.Errorf("failed to dial status feed: %w", err)
	}
	defer ws.Close()
	slog.Info("status feed connected", "url", s.url)

	// Receive blocks without a context, so cancellation closes the
	// connection out from under it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()

	for {
		var event models.StatusEvent
		if err := websocket.JSON.Receive(ws, &event); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("status feed closed: %w", err)
			}
			return fmt.Errorf("failed to read status event: %w", err)
		}
		s.reconciler.Apply(ctx, event)
	}
}

// originFor derives the HTTP origin the websocket handshake reports from
// the feed URL.
func originFor(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("invalid status feed URL %q: %w", wsURL, err)
	}
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host), nil
}
