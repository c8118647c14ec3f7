package notifications

import (
	"context"
	"time"
)

type outcome int

const (
	outcomeSent outcome = iota
	outcomeDuplicate
	outcomeStoreError
	outcomeSendError
)

func (o outcome) String() string {
	switch o {
	case outcomeSent:
		return "sent"
	case outcomeDuplicate:
		return "duplicate"
	case outcomeStoreError:
		return "store_error"
	default:
		return "send_error"
	}
}

// emit claims the dedup key and sends the notification.
//
// A claim failure abandons the emission without persisting anything, so the
// next cycle retries it. If every sender fails the claim is released for the
// same reason.
func (e *Engine) emit(ctx context.Context, d Due, now time.Time) outcome {
	key := d.Key.String()
	result := e.dispatch(ctx, d, key, now)
	e.metrics.Notification(d.Milestone.String(), result.String())
	return result
}

func (e *Engine) dispatch(ctx context.Context, d Due, key string, now time.Time) outcome {
	claimed, err := e.store.TryClaim(ctx, key, now)
	if err != nil {
		e.logger.Warn("Dedup claim failed, will retry next cycle",
			"key", key, "error", err)
		return outcomeStoreError
	}
	if !claimed {
		return outcomeDuplicate
	}

	n := e.display.build(d.Milestone.Title(), d.Milestone.Body(d.Match), key, "")
	if err := e.sender.Send(ctx, n); err != nil {
		e.logger.Warn("Notification send failed",
			"key", key, "milestone", d.Milestone.String(), "error", err)
		if relErr := e.store.Release(ctx, key); relErr != nil {
			e.logger.Error("Dedup release failed, notification will not retry",
				"key", key, "error", relErr)
		}
		return outcomeSendError
	}

	e.logger.Info("Notification sent",
		"milestone", d.Milestone.String(),
		"team1", d.Match.Team1, "team2", d.Match.Team2,
		"start", d.Match.Start.Format(time.RFC3339))
	return outcomeSent
}
