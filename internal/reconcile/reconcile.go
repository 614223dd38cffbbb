// Package reconcile merges pipeline status pushes into the review cache.
// Events carry only identifier and status; they patch known entries in
// place and trigger a full refetch for unknown identifiers, so local
// session state survives every push.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/recipestack/scanreview/internal/models"
	"github.com/recipestack/scanreview/internal/review"
)

// Reconciler applies status events to a review store.
type Reconciler struct {
	store *review.Store
}

// New creates a reconciler over the given store.
func New(store *review.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Apply merges one status event into the cache. Heartbeats are discarded,
// unknown event kinds are logged and ignored, and a failed refetch is
// non-fatal since a later event or refresh corrects the view.
func (r *Reconciler) Apply(ctx context.Context, event models.StatusEvent) {
	if event.Heartbeat() {
		return
	}

	switch event.Kind {
	case models.EventKindPage, models.EventKindPageAlias:
		if err := r.store.UpdatePageStatus(ctx, event.ID, models.PageStatus(event.Status)); err != nil {
			slog.Warn("page status merge failed", "pageID", event.ID, "status", event.Status, "err", err)
		}
	case models.EventKindRecord:
		if err := r.store.UpdateRecordStatus(ctx, event.ID, models.RecordStatus(event.Status)); err != nil {
			slog.Warn("record status merge failed", "recordID", event.ID, "status", event.Status, "err", err)
		}
	default:
		slog.Warn("ignoring status event with unknown kind", "kind", event.Kind, "id", event.ID)
	}
}
