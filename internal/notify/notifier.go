package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/msgcat"
	"github.com/park285/cheese-review/internal/service/review"
)

var _ review.Notifier = (*Notifier)(nil)

// Notifier turns review events into published messages. Delivery failures
// are logged and dropped.
type Notifier struct {
	egress Egress
	cat    *msgcat.Catalog
	logger *zap.Logger
}

func NewNotifier(e Egress, cat *msgcat.Catalog, logger *zap.Logger) *Notifier {
	if e == nil {
		e = nopEgress{}
	}
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{egress: e, cat: cat, logger: logger}
}

func (n *Notifier) Progress(ctx context.Context, p review.Progress) {
	text, err := n.cat.Render("notify.progress", map[string]any{
		"Ply":   p.Ply,
		"Total": p.Total,
		"SAN":   p.SAN,
		"Label": p.Classification.String(),
	})
	if err != nil {
		n.logger.Warn("notify_render_failed", zap.String("key", "notify.progress"), zap.Error(err))
		return
	}
	n.publish(ctx, Event{
		Type:  EventProgress,
		Key:   p.Key,
		Ply:   p.Ply,
		Total: p.Total,
		SAN:   p.SAN,
		Label: p.Classification.Label.String(),
		Text:  text,
	})
}

func (n *Notifier) Finished(ctx context.Context, r *review.GameReview) {
	if r == nil {
		return
	}
	summary := fmt.Sprintf("White %.1f%% (%d), Black %.1f%% (%d)",
		r.White.Accuracy, r.White.Elo, r.Black.Accuracy, r.Black.Elo)
	text, err := n.cat.Render("notify.done", map[string]any{"ID": r.ID, "Summary": summary})
	if err != nil {
		n.logger.Warn("notify_render_failed", zap.String("key", "notify.done"), zap.Error(err))
		return
	}
	n.publish(ctx, Event{
		Type:  EventDone,
		Key:   r.Key,
		ID:    r.ID,
		Total: len(r.Moves),
		Text:  text,
	})
}

func (n *Notifier) publish(ctx context.Context, ev Event) {
	if err := n.egress.Publish(ctx, ev); err != nil {
		n.logger.Warn("notify_publish_failed",
			zap.String("type", ev.Type),
			zap.String("key", ev.Key),
			zap.Error(err))
	}
}
