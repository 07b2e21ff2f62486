package review

import "context"

// Progress is published after each classified ply.
type Progress struct {
	Key            string         `json:"key"`
	Ply            int            `json:"ply"`
	Total          int            `json:"total"`
	SAN            string         `json:"san"`
	Classification Classification `json:"classification"`
}

// Notifier receives review events. Implementations handle their own
// failures; a notifier never aborts a review.
type Notifier interface {
	Progress(ctx context.Context, p Progress)
	Finished(ctx context.Context, r *GameReview)
}

type nopNotifier struct{}

func (nopNotifier) Progress(context.Context, Progress)     {}
func (nopNotifier) Finished(context.Context, *GameReview) {}
