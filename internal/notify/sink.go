package notify

import (
	"context"
	stdErrors "errors"

	"github.com/angelmondragon/packfinderz-driver/internal/proximity"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

// LogSink writes each alert as a structured log line.
type LogSink struct {
	logg *logger.Logger
}

func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Notify(ctx context.Context, n proximity.Notification) error {
	if s.logg == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"notification_id": n.ID,
		"order_id":        n.OrderID,
		"title":           n.Title,
		"body":            n.Body,
		"phone":           n.Phone,
	})
	s.logg.Info(ctx, "arrival notification")
	return nil
}

// Fanout delivers to every sink and joins their errors.
type Fanout []proximity.Notifier

func (f Fanout) Notify(ctx context.Context, n proximity.Notification) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return stdErrors.Join(errs...)
}
